package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teemow/inboxreply/internal/instrumentation"
)

const (
	DefaultMetricsAddr = ":9090"

	DefaultMetricsReadTimeout  = 10 * time.Second
	DefaultMetricsWriteTimeout = 10 * time.Second
	DefaultMetricsIdleTimeout  = 60 * time.Second

	// DefaultShutdownTimeout bounds graceful shutdown of every HTTP listener.
	DefaultShutdownTimeout = 30 * time.Second
)

type MetricsServerConfig struct {
	Addr string

	// InstrumentationProvider must be enabled with the prometheus exporter.
	InstrumentationProvider *instrumentation.Provider
	Logger                  *slog.Logger
}

// MetricsServer serves /metrics from the global Prometheus registry, which
// the OpenTelemetry prometheus exporter writes to.
type MetricsServer struct {
	addr   string
	logger *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	if config.Addr == "" {
		config.Addr = DefaultMetricsAddr
	}
	if config.InstrumentationProvider == nil {
		return nil, fmt.Errorf("instrumentation provider is required for metrics server")
	}
	if !config.InstrumentationProvider.Enabled() {
		return nil, fmt.Errorf("instrumentation provider is not enabled")
	}
	if !config.InstrumentationProvider.PrometheusEnabled() {
		return nil, fmt.Errorf("metrics exporter is not prometheus")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricsServer{addr: config.Addr, logger: logger}, nil
}

func (s *MetricsServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start listens and serves until Shutdown. It blocks.
func (s *MetricsServer) Start() error {
	return s.StartWithReadySignal(nil)
}

// StartWithReadySignal closes ready once the listener is bound, so Addr
// reports the real port when configured with ":0".
func (s *MetricsServer) StartWithReadySignal(ready chan<- struct{}) error {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: DefaultMetricsReadTimeout,
		WriteTimeout:      DefaultMetricsWriteTimeout,
		IdleTimeout:       DefaultMetricsIdleTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.listener = l
	s.mu.Unlock()

	s.logger.Info("starting metrics server", slog.String("addr", l.Addr().String()))
	if ready != nil {
		close(ready)
	}
	return srv.Serve(l)
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down metrics server")
	return srv.Shutdown(ctx)
}

// Addr is the bound address once started, the configured one before.
func (s *MetricsServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
