package mailbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/inboxreply/internal/instrumentation"
	"github.com/teemow/inboxreply/internal/logging"
	"github.com/teemow/inboxreply/internal/mail"
)

const defaultFetchConcurrency = 4

// Service runs the mail flows against a Backend.
type Service struct {
	backend     Backend
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	self        string
	concurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records backend metrics on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSelfAddress sets the mailbox owner's address, which reply-all leaves
// out of the recipients.
func WithSelfAddress(address string) Option {
	return func(s *Service) { s.self = address }
}

// WithFetchConcurrency bounds the number of messages fetched in parallel.
func WithFetchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func NewService(backend Backend, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		backend:     backend,
		logger:      logging.WithBackend(logger, backend.Name()),
		concurrency: defaultFetchConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BackendName returns the name of the underlying backend.
func (s *Service) BackendName() string {
	return s.backend.Name()
}

// SelfAddress returns the configured owner address, possibly "".
func (s *Service) SelfAddress() string {
	return s.self
}

// NormalizeLimit clamps limit into [1, MaxLimit], mapping values below one
// to DefaultLimit.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

func normalizeFolder(folder string) string {
	if strings.TrimSpace(folder) == "" {
		return DefaultFolder
	}
	return folder
}

// FetchUnread returns up to limit unread messages of folder in the order the
// backend listed them.
func (s *Service) FetchUnread(ctx context.Context, folder string, limit int) ([]mail.Email, error) {
	folder = normalizeFolder(folder)
	limit = NormalizeLimit(limit)

	var refs []string
	err := s.observe(ctx, instrumentation.OperationList, folder, func(ctx context.Context) error {
		var err error
		refs, err = s.backend.ListUnread(ctx, folder, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list unread in %s: %w", folder, err)
	}
	if len(refs) > limit {
		refs = refs[:limit]
	}

	emails := make([]mail.Email, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			var raw *RawMessage
			err := s.observe(gctx, instrumentation.OperationFetch, folder, func(ctx context.Context) error {
				var err error
				raw, err = s.backend.FetchMessage(ctx, folder, ref)
				return err
			})
			if err != nil {
				return fmt.Errorf("fetch message %s: %w", ref, err)
			}
			emails[i] = mail.NewEmail(raw.ID, raw.ThreadID, raw.Headers, raw.Root, raw.Snippet)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "fetched unread messages",
		logging.Folder(folder),
		slog.Int("count", len(emails)))
	return emails, nil
}

// CreateDraftReply stores a threaded reply to the last message of threadID
// as a draft.
func (s *Service) CreateDraftReply(ctx context.Context, folder, threadID, body string) (*DraftResult, error) {
	draft, _, err := s.prepareReply(ctx, folder, threadID, body)
	if err != nil {
		return nil, err
	}

	req := DraftRequest{
		Folder:  normalizeFolder(folder),
		Message: ReplyMessage(draft, nil, nil, threadID),
	}

	var result *DraftResult
	err = s.observe(ctx, instrumentation.OperationDraft, req.Folder, func(ctx context.Context) error {
		var err error
		result, err = s.backend.SaveDraft(ctx, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("save draft reply in thread %s: %w", threadID, err)
	}
	if result == nil {
		result = &DraftResult{}
	}
	if result.ThreadID == "" {
		result.ThreadID = threadID
	}

	s.logger.InfoContext(ctx, "draft reply created",
		logging.ThreadID(threadID),
		slog.String("draft_id", result.DraftID))
	return result, nil
}

// SendReply sends a threaded reply to the last message of threadID. With
// replyAll the other original recipients are copied.
func (s *Service) SendReply(ctx context.Context, folder, threadID, body string, replyAll bool) (*SendResult, error) {
	draft, last, err := s.prepareReply(ctx, folder, threadID, body)
	if err != nil {
		return nil, err
	}

	var to, cc []string
	if replyAll {
		to, cc = mail.ReplyAllRecipients(last, s.self)
	}
	msg := ReplyMessage(draft, to, cc, threadID)
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("reply to thread %s: %w", threadID, ErrRecipientRequired)
	}

	result, err := s.send(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("send reply in thread %s: %w", threadID, err)
	}
	s.logger.InfoContext(ctx, "reply sent",
		logging.ThreadID(threadID),
		slog.Bool("reply_all", replyAll),
		slog.Int("recipients", len(msg.Recipients())))
	return result, nil
}

// Send delivers a new message.
func (s *Service) Send(ctx context.Context, msg Outgoing) (*SendResult, error) {
	if len(msg.To) == 0 {
		return nil, ErrRecipientRequired
	}
	if strings.TrimSpace(msg.Body) == "" {
		return nil, ErrBodyRequired
	}
	result, err := s.send(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	s.logger.InfoContext(ctx, "message sent", slog.Int("recipients", len(msg.Recipients())))
	return result, nil
}

// ClassifyUnread classifies the sender of each unread message in folder.
func (s *Service) ClassifyUnread(ctx context.Context, folder string, limit int) ([]mail.Classification, error) {
	emails, err := s.FetchUnread(ctx, folder, limit)
	if err != nil {
		return nil, err
	}
	out := make([]mail.Classification, 0, len(emails))
	for _, e := range emails {
		c := mail.Classify(e.From)
		s.metrics.RecordClassification(ctx, e.From, c.Flagged)
		if c.Flagged {
			s.logger.DebugContext(ctx, "automated sender",
				logging.SenderHash(e.From),
				logging.Domain(e.From),
				slog.Any("matches", c.Matches))
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Service) prepareReply(ctx context.Context, folder, threadID, body string) (mail.ReplyDraft, mail.HeaderSet, error) {
	if strings.TrimSpace(threadID) == "" {
		return mail.ReplyDraft{}, nil, ErrThreadIDRequired
	}
	if strings.TrimSpace(body) == "" {
		return mail.ReplyDraft{}, nil, ErrBodyRequired
	}
	folder = normalizeFolder(folder)

	var history []mail.HeaderSet
	err := s.observe(ctx, instrumentation.OperationThread, folder, func(ctx context.Context) error {
		var err error
		history, err = s.backend.ThreadHistory(ctx, folder, threadID)
		return err
	})
	if err != nil {
		return mail.ReplyDraft{}, nil, fmt.Errorf("load thread %s: %w", threadID, err)
	}

	draft, err := mail.BuildReply(history, body)
	if err != nil {
		return mail.ReplyDraft{}, nil, fmt.Errorf("thread %s: %w", threadID, err)
	}
	return draft, history[len(history)-1], nil
}

func (s *Service) send(ctx context.Context, msg Outgoing) (*SendResult, error) {
	var result *SendResult
	err := s.observe(ctx, instrumentation.OperationSend, "", func(ctx context.Context) error {
		var err error
		result, err = s.backend.Send(ctx, msg)
		return err
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &SendResult{}
	}
	if result.ThreadID == "" {
		result.ThreadID = msg.ThreadID
	}
	result.Recipients = msg.Recipients()
	return result, nil
}

// observe wraps one backend call in a span and records its metrics.
func (s *Service) observe(ctx context.Context, operation, folder string, fn func(context.Context) error) error {
	backend := s.backend.Name()
	ctx, span := instrumentation.StartBackendSpan(ctx, backend, operation,
		attribute.String(instrumentation.SpanAttrFolder, folder))

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	instrumentation.EndSpan(span, err)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		s.logger.WarnContext(ctx, "backend operation failed",
			logging.Operation(operation),
			logging.Folder(folder),
			logging.Err(err))
	}
	s.metrics.RecordBackendOperationInFolder(ctx, backend, operation, folder, status, elapsed)
	return err
}
