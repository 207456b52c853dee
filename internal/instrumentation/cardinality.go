package instrumentation

import "strings"

// Operation label values for backend metrics and spans.
const (
	OperationList   = "list"
	OperationFetch  = "fetch"
	OperationThread = "thread"
	OperationDraft  = "draft"
	OperationSend   = "send"
)

// ExtractUserDomain returns the domain of an address such as
// "Jane <jane@example.com>" or "jane@example.com", or "unknown".
//
// Use it instead of the full address whenever an address ends up in a label
// or a non-audit log line.
func ExtractUserDomain(address string) string {
	address = strings.TrimSpace(address)
	if i := strings.LastIndexByte(address, '<'); i >= 0 {
		address = strings.TrimSuffix(address[i+1:], ">")
	}
	at := strings.LastIndexByte(address, '@')
	if at < 1 || at == len(address)-1 {
		return "unknown"
	}
	return strings.ToLower(address[at+1:])
}

// FolderLabel collapses arbitrary folder names so that only well-known
// mailboxes become distinct label values.
func FolderLabel(folder string) string {
	switch strings.ToUpper(folder) {
	case "", "INBOX":
		return "inbox"
	case "SPAM", "JUNK":
		return "spam"
	case "DRAFTS", "[GMAIL]/DRAFTS":
		return "drafts"
	default:
		return "other"
	}
}
