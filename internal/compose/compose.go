// Package compose serializes outgoing messages to RFC 5322 bytes.
package compose

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	gomail "github.com/emersion/go-message/mail"

	"github.com/teemow/inboxreply/internal/mail"
	"github.com/teemow/inboxreply/internal/mailbox"
)

type options struct {
	bccHeader bool
	now       func() time.Time
}

// Option adjusts serialization.
type Option func(*options)

// WithBccHeader writes a Bcc header. The Gmail API reads blind recipients
// from it and strips it before delivery; SMTP and SES must not see it.
func WithBccHeader() Option {
	return func(o *options) { o.bccHeader = true }
}

// WithClock fixes the Date header.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Message serializes msg as a single inline text/plain UTF-8 part. An empty
// from leaves the From header to the transport.
func Message(from string, msg mailbox.Outgoing, opts ...Option) ([]byte, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	var h gomail.Header
	h.SetDate(o.now())
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}

	if from != "" {
		addrs, err := ParseAddresses([]string{from})
		if err != nil {
			return nil, fmt.Errorf("invalid from address: %w", err)
		}
		h.SetAddressList(mail.HeaderFrom, addrs)
	}

	fields := []struct {
		name string
		list []string
	}{
		{mail.HeaderTo, msg.To},
		{mail.HeaderCc, msg.Cc},
	}
	if o.bccHeader {
		fields = append(fields, struct {
			name string
			list []string
		}{"Bcc", msg.Bcc})
	}
	for _, f := range fields {
		if len(f.list) == 0 {
			continue
		}
		addrs, err := ParseAddresses(f.list)
		if err != nil {
			return nil, fmt.Errorf("invalid %s address: %w", f.name, err)
		}
		h.SetAddressList(f.name, addrs)
	}

	if msg.Subject != "" {
		h.SetSubject(msg.Subject)
	}
	if msg.InReplyTo != "" {
		h.Set(mail.HeaderInReplyTo, msg.InReplyTo)
	}
	if msg.References != "" {
		h.Set(mail.HeaderReferences, msg.References)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message writer: %w", err)
	}
	if _, err := io.WriteString(w, msg.Body); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finish message: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseAddresses parses every entry of list, each of which may itself be a
// comma-separated address list.
func ParseAddresses(list []string) ([]*gomail.Address, error) {
	var out []*gomail.Address
	for _, entry := range list {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		addrs, err := gomail.ParseAddressList(entry)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", entry, err)
		}
		out = append(out, addrs...)
	}
	return out, nil
}

// Envelope returns the bare envelope recipients of msg (To, Cc and Bcc).
func Envelope(msg mailbox.Outgoing) ([]string, error) {
	addrs, err := ParseAddresses(msg.Recipients())
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		key := strings.ToLower(a.Address)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a.Address)
	}
	return out, nil
}

// EnvelopeFrom returns the bare address of from.
func EnvelopeFrom(from string) (string, error) {
	addr, err := gomail.ParseAddress(from)
	if err != nil {
		return "", fmt.Errorf("invalid from address %q: %w", from, err)
	}
	return addr.Address, nil
}
