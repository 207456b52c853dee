package gmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/inboxreply/internal/compose"
	"github.com/teemow/inboxreply/internal/instrumentation"
	"github.com/teemow/inboxreply/internal/logging"
	"github.com/teemow/inboxreply/internal/mail"
	"github.com/teemow/inboxreply/internal/mailbox"
)

const (
	userID      = "me"
	maxPageSize = 100
)

// threadHeaders are requested for thread history; only these feed reply
// construction.
var threadHeaders = []string{
	mail.HeaderFrom, mail.HeaderTo, mail.HeaderCc, mail.HeaderReplyTo,
	mail.HeaderSubject, mail.HeaderMessageID, mail.HeaderReferences, mail.HeaderDate,
}

// Backend is a Gmail API mailbox.
type Backend struct {
	users  *gmail.UsersService
	from   string
	logger *slog.Logger
}

// Options configure New.
type Options struct {
	// From is written as the From header of outgoing mail. Empty lets
	// Gmail fill in the authenticated account.
	From   string
	Logger *slog.Logger
}

// New creates a backend using httpClient for authorized requests. Extra
// client options such as option.WithEndpoint are applied after it.
func New(ctx context.Context, httpClient *http.Client, o Options, opts ...option.ClientOption) (*Backend, error) {
	all := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gmail.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		users:  svc.Users,
		from:   o.From,
		logger: logging.WithBackend(logger, instrumentation.BackendGmail),
	}, nil
}

func (b *Backend) Name() string { return instrumentation.BackendGmail }

// ListUnread pages through the unread search until limit ids are collected.
func (b *Backend) ListUnread(ctx context.Context, folder string, limit int) ([]string, error) {
	q := unreadQuery(folder)
	var ids []string
	pageToken := ""
	for len(ids) < limit {
		pageSize := limit - len(ids)
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
		call := b.users.Messages.List(userID).Q(q).MaxResults(int64(pageSize)).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Do()
		if err != nil {
			return nil, wrapAPIError(err, "list messages")
		}
		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}
		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	b.logger.DebugContext(ctx, "listed unread", slog.String("query", q), slog.Int("count", len(ids)))
	return ids, nil
}

func (b *Backend) FetchMessage(ctx context.Context, _ string, ref string) (*mailbox.RawMessage, error) {
	msg, err := b.users.Messages.Get(userID, ref).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError(err, "get message "+ref)
	}
	raw := &mailbox.RawMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
	}
	if msg.Payload != nil {
		raw.Headers = toHeaders(msg.Payload.Headers)
		root, err := toPart(msg.Payload)
		if err != nil {
			// Root stays nil; the snippet becomes the body.
			b.logger.WarnContext(ctx, "undecodable message body", logging.MessageID(ref), logging.Err(err))
		} else {
			raw.Root = root
		}
	}
	return raw, nil
}

func (b *Backend) ThreadHistory(ctx context.Context, _ string, threadID string) ([]mail.HeaderSet, error) {
	thread, err := b.users.Threads.Get(userID, threadID).
		Format("metadata").
		MetadataHeaders(threadHeaders...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapAPIError(err, "get thread "+threadID)
	}
	history := make([]mail.HeaderSet, 0, len(thread.Messages))
	for _, m := range thread.Messages {
		if m.Payload == nil {
			history = append(history, nil)
			continue
		}
		history = append(history, toHeaders(m.Payload.Headers))
	}
	return history, nil
}

func (b *Backend) SaveDraft(ctx context.Context, req mailbox.DraftRequest) (*mailbox.DraftResult, error) {
	raw, err := compose.Message(b.from, req.Message, compose.WithBccHeader())
	if err != nil {
		return nil, err
	}
	draft, err := b.users.Drafts.Create(userID, &gmail.Draft{
		Message: &gmail.Message{Raw: encodeRaw(raw), ThreadId: req.Message.ThreadID},
	}).Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError(err, "create draft")
	}
	result := &mailbox.DraftResult{DraftID: draft.Id, ThreadID: req.Message.ThreadID}
	if draft.Message != nil && draft.Message.ThreadId != "" {
		result.ThreadID = draft.Message.ThreadId
	}
	return result, nil
}

func (b *Backend) Send(ctx context.Context, msg mailbox.Outgoing) (*mailbox.SendResult, error) {
	raw, err := compose.Message(b.from, msg, compose.WithBccHeader())
	if err != nil {
		return nil, err
	}
	sent, err := b.users.Messages.Send(userID, &gmail.Message{
		Raw:      encodeRaw(raw),
		ThreadId: msg.ThreadID,
	}).Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError(err, "send message")
	}
	return &mailbox.SendResult{MessageID: sent.Id, ThreadID: sent.ThreadId}, nil
}

func wrapAPIError(err error, what string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w", what, mailbox.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
