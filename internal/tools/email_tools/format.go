package email_tools

import (
	"fmt"
	"strings"

	"github.com/teemow/inboxreply/internal/instrumentation"
	"github.com/teemow/inboxreply/internal/mail"
	"github.com/teemow/inboxreply/internal/mailbox"
)

const (
	noUnreadText = "No unread emails found"
	separator    = "--------------------------------------------------------------------------------"
)

// FormatEmails renders the get_unread_emails listing.
func FormatEmails(emails []mail.Email) string {
	if len(emails) == 0 {
		return noUnreadText
	}
	blocks := make([]string, len(emails))
	for i, e := range emails {
		var b strings.Builder
		fmt.Fprintf(&b, "Thread ID: %s\n", e.ThreadID)
		fmt.Fprintf(&b, "Message ID: %s\n", e.ID)
		fmt.Fprintf(&b, "From: %s\n", e.From)
		fmt.Fprintf(&b, "Subject: %s\n", e.Subject)
		fmt.Fprintf(&b, "Date: %s\n", e.Date)
		fmt.Fprintf(&b, "Body:\n%s\n", e.Body)
		b.WriteString(separator)
		blocks[i] = b.String()
	}
	return fmt.Sprintf("Found %d unread email(s):\n\n", len(emails)) + strings.Join(blocks, "\n\n")
}

// FormatDraft renders the create_draft_reply confirmation.
func FormatDraft(backend string, d *mailbox.DraftResult) string {
	where := "The draft has been added to the email thread in Gmail."
	if backend != instrumentation.BackendGmail {
		where = "The draft has been saved to your drafts mailbox."
	}
	return fmt.Sprintf("✓ Draft reply created successfully!\n\nDraft ID: %s\nThread ID: %s\n\n%s",
		d.DraftID, d.ThreadID, where)
}

// FormatSent renders the send_reply and send_email confirmation.
func FormatSent(r *mailbox.SendResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ Email sent to %d recipient(s).\n\n", len(r.Recipients))
	fmt.Fprintf(&b, "Message ID: %s\n", r.MessageID)
	if r.ThreadID != "" {
		fmt.Fprintf(&b, "Thread ID: %s\n", r.ThreadID)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatClassifications lists each sender with its verdict and the
// patterns that matched.
func FormatClassifications(results []mail.Classification) string {
	if len(results) == 0 {
		return noUnreadText
	}
	flagged := 0
	lines := make([]string, len(results))
	for i, c := range results {
		if c.Flagged {
			flagged++
			lines[i] = fmt.Sprintf("[automated] %s (matched: %s)", c.Sender, strings.Join(c.Matches, ", "))
		} else {
			lines[i] = fmt.Sprintf("[personal]  %s", c.Sender)
		}
	}
	return fmt.Sprintf("Classified %d sender(s), %d flagged as automated:\n\n", len(results), flagged) +
		strings.Join(lines, "\n")
}
