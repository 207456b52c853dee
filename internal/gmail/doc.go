// Package gmail implements mailbox.Backend on top of the Gmail API.
//
// Message references are Gmail message ids and thread ids are Gmail thread
// ids, so drafts and replies land in the original conversation. Folders are
// passed through as Gmail search terms ("in:<folder>"), with INBOX meaning the
// plain unread query.
package gmail
