package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/teemow/inboxreply/internal/instrumentation"
	"github.com/teemow/inboxreply/internal/mailbox"
)

var (
	// ErrShutdown is returned by Mailbox after Shutdown.
	ErrShutdown = errors.New("server is shutting down")
	// ErrNoMailbox is returned by Mailbox when no service was configured.
	ErrNoMailbox = errors.New("no mailbox configured")
)

// ServerContext is handed to every tool handler.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	service  *mailbox.Service
	metrics  *instrumentation.Metrics
	audit    *instrumentation.AuditLogger
	logger   *slog.Logger
	readOnly bool

	mu       sync.RWMutex
	shutdown bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) { sc.metrics = m }
}

func WithAuditLogger(a *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) { sc.audit = a }
}

func WithLogger(l *slog.Logger) Option {
	return func(sc *ServerContext) { sc.logger = l }
}

// WithReadOnly hides tools that deliver mail.
func WithReadOnly(readOnly bool) Option {
	return func(sc *ServerContext) { sc.readOnly = readOnly }
}

// NewServerContext derives a cancellable context from ctx. Read-only mode is
// the default.
func NewServerContext(ctx context.Context, service *mailbox.Service, opts ...Option) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		service:  service,
		readOnly: true,
	}
	for _, opt := range opts {
		opt(sc)
	}
	if sc.logger == nil {
		sc.logger = slog.Default()
	}
	return sc
}

func (sc *ServerContext) Context() context.Context { return sc.ctx }

// Mailbox returns the mailbox service, or ErrShutdown once shutdown began.
func (sc *ServerContext) Mailbox() (*mailbox.Service, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	if sc.shutdown {
		return nil, ErrShutdown
	}
	if sc.service == nil {
		return nil, ErrNoMailbox
	}
	return sc.service, nil
}

// BackendName is "" when no service is configured.
func (sc *ServerContext) BackendName() string {
	if sc.service == nil {
		return ""
	}
	return sc.service.BackendName()
}

func (sc *ServerContext) Metrics() *instrumentation.Metrics        { return sc.metrics }
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger { return sc.audit }
func (sc *ServerContext) Logger() *slog.Logger                      { return sc.logger }
func (sc *ServerContext) ReadOnly() bool                            { return sc.readOnly }

func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels Context. It is idempotent.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	return nil
}
