// Package outbound defines how serialized messages leave the server when the
// mailbox backend cannot deliver them itself (IMAP has no submission verb).
package outbound

import (
	"context"
	"errors"
)

// ErrNoRecipients is returned when a message has no envelope recipients.
var ErrNoRecipients = errors.New("no envelope recipients")

// Sender delivers an RFC 5322 message to the given envelope recipients.
type Sender interface {
	Name() string
	Send(ctx context.Context, from string, rcpts []string, raw []byte) error
}

// Recorder is the subset of instrumentation.Metrics used by Instrument.
type Recorder interface {
	RecordOutboundMessage(ctx context.Context, transport, status string)
}

type instrumented struct {
	Sender
	rec Recorder
}

// Instrument wraps s so every Send is counted by transport and status.
// A nil recorder returns s unchanged.
func Instrument(s Sender, rec Recorder) Sender {
	if rec == nil {
		return s
	}
	return &instrumented{Sender: s, rec: rec}
}

func (i *instrumented) Send(ctx context.Context, from string, rcpts []string, raw []byte) error {
	err := i.Sender.Send(ctx, from, rcpts, raw)
	status := "success"
	if err != nil {
		status = "error"
	}
	i.rec.RecordOutboundMessage(ctx, i.Sender.Name(), status)
	return err
}
