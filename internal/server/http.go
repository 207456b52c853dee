package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxreply/internal/instrumentation"
)

// HTTP transports.
const (
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

const (
	DefaultHTTPAddr = ":8080"
	mcpEndpoint     = "/mcp"
)

type HTTPServerConfig struct {
	Addr string
	// Transport is sse or streamable-http.
	Transport string
	Health    *HealthChecker
	Metrics   *instrumentation.Metrics
	Logger    *slog.Logger
}

// HTTPServer exposes an MCP server and the health endpoints on one listener.
type HTTPServer struct {
	mcpServer *mcpserver.MCPServer
	cfg       HTTPServerConfig

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	sse        *mcpserver.SSEServer
}

func NewHTTPServer(mcpServer *mcpserver.MCPServer, cfg HTTPServerConfig) (*HTTPServer, error) {
	if mcpServer == nil {
		return nil, fmt.Errorf("mcp server is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultHTTPAddr
	}
	switch cfg.Transport {
	case TransportSSE, TransportStreamableHTTP:
	case "":
		cfg.Transport = TransportStreamableHTTP
	default:
		return nil, fmt.Errorf("unsupported http transport %q", cfg.Transport)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &HTTPServer{mcpServer: mcpServer, cfg: cfg}, nil
}

// Handler builds the routing tree. It is exposed for tests.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.cfg.Health != nil {
		s.cfg.Health.RegisterHealthEndpoints(mux)
	}

	switch s.cfg.Transport {
	case TransportSSE:
		sse := mcpserver.NewSSEServer(s.mcpServer)
		s.mu.Lock()
		s.sse = sse
		s.mu.Unlock()
		mux.Handle("/sse", sse.SSEHandler())
		mux.Handle("/message", s.instrument("/message", sse.MessageHandler()))
	default:
		streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer,
			mcpserver.WithEndpointPath(mcpEndpoint),
		)
		mux.Handle(mcpEndpoint, s.instrument(mcpEndpoint, streamable))
	}
	return mux
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *HTTPServer) instrument(path string, next http.Handler) http.Handler {
	if s.cfg.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.cfg.Metrics.RecordHTTPRequest(r.Context(), r.Method, path, rec.status, time.Since(start))
	})
}

// Start serves until Shutdown. ready, when non-nil, is closed once the
// listener is bound.
func (s *HTTPServer) Start(ready chan<- struct{}) error {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.listener = l
	s.mu.Unlock()

	s.cfg.Logger.Info("serving MCP over HTTP",
		slog.String("transport", s.cfg.Transport),
		slog.String("addr", l.Addr().String()))
	if ready != nil {
		close(ready)
	}
	return srv.Serve(l)
}

func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, sse := s.httpServer, s.sse
	s.mu.Unlock()
	if sse != nil {
		_ = sse.Shutdown(ctx)
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
