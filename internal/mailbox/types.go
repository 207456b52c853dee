package mailbox

import (
	"context"
	"errors"

	"github.com/teemow/inboxreply/internal/mail"
)

// DefaultFolder is used when a caller does not name a folder.
const DefaultFolder = "INBOX"

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

var (
	ErrThreadIDRequired  = errors.New("thread_id is required")
	ErrBodyRequired      = errors.New("reply body is required")
	ErrRecipientRequired = errors.New("at least one recipient is required")

	// ErrNotFound is wrapped by backends when a message or thread does not
	// exist in the selected folder.
	ErrNotFound = errors.New("not found")
)

// Backend is a mail store. Implementations must be safe for concurrent use.
type Backend interface {
	// Name identifies the backend in logs and metrics, e.g. "gmail".
	Name() string

	// ListUnread returns up to limit message references, newest first.
	ListUnread(ctx context.Context, folder string, limit int) ([]string, error)

	// FetchMessage loads one message by the reference ListUnread returned.
	FetchMessage(ctx context.Context, folder, ref string) (*RawMessage, error)

	// ThreadHistory returns the headers of every message in the thread,
	// oldest first.
	ThreadHistory(ctx context.Context, folder, threadID string) ([]mail.HeaderSet, error)

	SaveDraft(ctx context.Context, req DraftRequest) (*DraftResult, error)
	Send(ctx context.Context, msg Outgoing) (*SendResult, error)
}

// RawMessage is a message as a backend returns it, before normalization.
type RawMessage struct {
	ID       string
	ThreadID string
	Headers  mail.HeaderSet
	Root     *mail.Part
	Snippet  string
}

// Outgoing is a message to be serialized and delivered or stored. Empty
// InReplyTo and References leave those headers out.
type Outgoing struct {
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string

	InReplyTo  string
	References string

	// ThreadID asks the backend to file the message into an existing
	// conversation when it supports that.
	ThreadID string
}

// Recipients returns To, Cc and Bcc in that order.
func (o Outgoing) Recipients() []string {
	out := make([]string, 0, len(o.To)+len(o.Cc)+len(o.Bcc))
	out = append(out, o.To...)
	out = append(out, o.Cc...)
	return append(out, o.Bcc...)
}

// DraftRequest asks a backend to store Message as a draft.
type DraftRequest struct {
	Folder  string
	Message Outgoing
}

type DraftResult struct {
	DraftID  string
	ThreadID string
}

type SendResult struct {
	MessageID string
	ThreadID  string
	// Recipients is filled in by Service with every address the message
	// went to.
	Recipients []string
}

// ReplyMessage turns a reply draft into an Outgoing message. cc may be nil.
func ReplyMessage(d mail.ReplyDraft, to, cc []string, threadID string) Outgoing {
	if len(to) == 0 && d.To != "" {
		to = []string{d.To}
	}
	return Outgoing{
		To:         to,
		Cc:         cc,
		Subject:    d.Subject,
		Body:       d.Body,
		InReplyTo:  d.InReplyTo,
		References: d.References,
		ThreadID:   threadID,
	}
}
