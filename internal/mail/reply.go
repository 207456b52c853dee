package mail

import (
	"errors"
	"strings"

	gomail "github.com/emersion/go-message/mail"
)

// ErrMissingThreadData is returned when a reply is requested for a thread
// that has no messages to anchor the threading headers on.
var ErrMissingThreadData = errors.New("thread has no messages to reply to")

const replyPrefix = "Re: "

// ReplyDraft is a reply ready to be serialized by a backend. An empty
// InReplyTo or References means the header must be left out.
type ReplyDraft struct {
	To         string
	Subject    string
	InReplyTo  string
	References string
	Body       string
}

// BuildReply builds a reply to the last message of thread, which must list
// the thread's header sets oldest first.
func BuildReply(thread []HeaderSet, body string) (ReplyDraft, error) {
	if len(thread) == 0 {
		return ReplyDraft{}, ErrMissingThreadData
	}
	return BuildReplyFromHeaders(thread[len(thread)-1], body), nil
}

// BuildReplyFromHeaders builds a reply to the message carrying last.
func BuildReplyFromHeaders(last HeaderSet, body string) ReplyDraft {
	messageID := last.Get(HeaderMessageID)
	refs := ParseReferences(last.Get(HeaderReferences)).AppendIfAbsent(messageID)

	return ReplyDraft{
		To:         last.Get(HeaderFrom),
		Subject:    ReplySubject(last.Get(HeaderSubject)),
		InReplyTo:  messageID,
		References: refs.String(),
		Body:       body,
	}
}

// ReplySubject prefixes subject with "Re: " unless it already carries a
// reply prefix. An empty subject stays empty.
func ReplySubject(subject string) string {
	if subject == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return replyPrefix + subject
}

// ReplyAllRecipients computes the recipients of a reply-all to last. To is
// the Reply-To address when present, otherwise From. Cc is every original To
// and Cc recipient except the sender and self, without duplicates.
func ReplyAllRecipients(last HeaderSet, self string) (to []string, cc []string) {
	primary := last.Get(HeaderReplyTo)
	if primary == "" {
		primary = last.Get(HeaderFrom)
	}
	if primary != "" {
		to = []string{primary}
	}

	seen := make(map[string]bool)
	for _, addr := range parseAddresses(primary) {
		seen[addr.key] = true
	}
	for _, addr := range parseAddresses(last.Get(HeaderFrom)) {
		seen[addr.key] = true
	}
	for _, addr := range parseAddresses(self) {
		seen[addr.key] = true
	}

	for _, name := range []string{HeaderTo, HeaderCc} {
		for _, value := range last.Values(name) {
			for _, addr := range parseAddresses(value) {
				if seen[addr.key] {
					continue
				}
				seen[addr.key] = true
				cc = append(cc, addr.display)
			}
		}
	}
	return to, cc
}

type address struct {
	key     string
	display string
}

func parseAddresses(value string) []address {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	list, err := gomail.ParseAddressList(value)
	if err == nil {
		out := make([]address, 0, len(list))
		for _, a := range list {
			out = append(out, address{key: strings.ToLower(a.Address), display: a.String()})
		}
		return out
	}

	var out []address
	for _, raw := range strings.Split(value, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		out = append(out, address{key: strings.ToLower(bareAddress(raw)), display: raw})
	}
	return out
}

// bareAddress extracts addr from "Name <addr>" when it cannot be parsed.
func bareAddress(raw string) string {
	if i := strings.LastIndexByte(raw, '<'); i >= 0 {
		if j := strings.IndexByte(raw[i:], '>'); j > 0 {
			return raw[i+1 : i+j]
		}
	}
	return raw
}
