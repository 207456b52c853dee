// Package mail holds the backend-independent email logic of inboxreply.
//
// Everything here operates on already-fetched, in-memory structures and
// performs no I/O:
//
//   - HeaderSet lookup (case-insensitive, first match wins)
//   - Body extraction from a MIME part tree, preferring text/plain
//   - Reply threading headers (To, Subject, In-Reply-To, References)
//   - Sender classification against a vocabulary of automated-mail markers
//
// Backends (Gmail API, IMAP) convert their wire representations into Part
// trees and HeaderSets, call into this package, and serialize the results.
// All functions are safe for concurrent use.
package mail
