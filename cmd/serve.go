package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxreply/internal/config"
	"github.com/teemow/inboxreply/internal/instrumentation"
	"github.com/teemow/inboxreply/internal/logging"
	"github.com/teemow/inboxreply/internal/resources"
	"github.com/teemow/inboxreply/internal/server"
	"github.com/teemow/inboxreply/internal/tools/email_tools"
)

const (
	transportStdio = "stdio"

	serverStartTimeout = 5 * time.Second
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

type serveOptions struct {
	debug     bool
	transport string
	httpAddr  string
	yolo      bool
	logLevel  string
	logFormat string
	metrics   MetricsConfig
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide mailbox tools
for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport
  - sse: Server-Sent Events transport

Safety Mode:
  By default, the server operates in read-only mode. Reading mail and creating
  draft replies are always available. Use --yolo to enable the tools that send
  mail (send_reply, send_email).

Backends:
  gmail (default) reads credentials.json and token.json, see GOOGLE_CREDENTIALS_PATH
  and GOOGLE_TOKEN_PATH. imap needs IMAP_HOST, IMAP_USERNAME and IMAP_PASSWORD
  plus an outbound transport (OUTBOUND_TRANSPORT=smtp or ses) for sending.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadMetricsEnvVars(cmd, &opts.metrics)
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging (same as --log-level debug)")
	cmd.Flags().StringVar(&opts.transport, "transport", transportStdio, "Transport type: stdio, streamable-http or sse")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", server.DefaultHTTPAddr, "HTTP server address (for streamable-http and sse transports)")
	cmd.Flags().BoolVar(&opts.yolo, "yolo", false, "Enable tools that send mail. Default is read-only mode.")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error. Overrides LOG_LEVEL and the config file.")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json. Overrides LOG_FORMAT and the config file.")

	// Metrics server flags
	cmd.Flags().BoolVar(&opts.metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port (HTTP transports only). Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadMetricsEnvVars applies METRICS_ENABLED and METRICS_ADDR unless the
// corresponding flag was set explicitly.
func loadMetricsEnvVars(cmd *cobra.Command, metrics *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") {
		if v := os.Getenv("METRICS_ENABLED"); v != "" {
			if enabled, err := strconv.ParseBool(v); err == nil {
				metrics.Enabled = enabled
			}
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			metrics.Addr = addr
		}
	}
}

// newLogger writes to stderr; stdout belongs to the stdio transport.
func newLogger(cfg *config.Config, level, format string, debug bool) *slog.Logger {
	if level == "" {
		level = cfg.Logging.Level
	}
	if debug {
		level = "debug"
	}
	if format == "" {
		format = cfg.Logging.Format
	}
	return logging.New(level, format, os.Stderr)
}

func runServe(ctx context.Context, opts serveOptions) error {
	switch opts.transport {
	case transportStdio, server.TransportStreamableHTTP, server.TransportSSE:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http, sse)", opts.transport)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.debug {
		cfg.Logging.Level = "debug"
	}
	logger := newLogger(cfg, opts.logLevel, opts.logFormat, opts.debug)
	slog.SetDefault(logger)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	var metrics *instrumentation.Metrics
	var audit *instrumentation.AuditLogger
	if provider.Enabled() {
		metrics = provider.Metrics()
		audit = instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)
	}

	service, err := newMailboxService(shutdownCtx, cfg, logger, metrics)
	if err != nil {
		return err
	}

	// readOnly is the inverse of yolo
	readOnly := !opts.yolo
	serverContext := server.NewServerContext(shutdownCtx, service,
		server.WithMetrics(metrics),
		server.WithAuditLogger(audit),
		server.WithLogger(logger),
		server.WithReadOnly(readOnly),
	)
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	if readOnly {
		logger.Info("starting server in read-only mode (use --yolo to enable sending)",
			logging.Backend(service.BackendName()))
	} else {
		logger.Info("starting server with sending enabled (--yolo)",
			logging.Backend(service.BackendName()))
	}

	mcpSrv := mcpserver.NewMCPServer("inboxreply", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)
	if err := email_tools.RegisterEmailTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register email tools: %w", err)
	}
	if err := resources.RegisterMailboxResources(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register mailbox resources: %w", err)
	}

	if opts.transport == transportStdio {
		return runStdioServer(mcpSrv)
	}

	// Start metrics server if enabled and not in stdio mode
	if opts.metrics.Enabled && provider.PrometheusEnabled() {
		metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metrics.Addr,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		if _, err := startAndWait("metrics server", metricsServer.StartWithReadySignal); err != nil {
			return err
		}
		defer shutdownWithTimeout(logger, "metrics server", metricsServer.Shutdown)
		logger.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
	}

	return runHTTPServer(shutdownCtx, mcpSrv, serverContext, opts, logger)
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, opts serveOptions, logger *slog.Logger) error {
	health := server.NewHealthChecker(sc, version)
	httpServer, err := server.NewHTTPServer(mcpSrv, server.HTTPServerConfig{
		Addr:      opts.httpAddr,
		Transport: opts.transport,
		Health:    health,
		Metrics:   sc.Metrics(),
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	serverDone, err := startAndWait("HTTP server", httpServer.Start)
	if err != nil {
		return err
	}
	health.SetReady(true)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		health.SetReady(false)
		shutdownWithTimeout(logger, "HTTP server", httpServer.Shutdown)
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}

// startAndWait runs start in the background and waits until it is listening.
// The returned channel delivers a later serve error, if any.
func startAndWait(name string, start func(ready chan<- struct{}) error) (<-chan error, error) {
	ready := make(chan struct{})
	failed := make(chan error, 1)
	go func() {
		defer close(failed)
		if err := start(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	select {
	case <-ready:
		return failed, nil
	case err, ok := <-failed:
		if !ok {
			return nil, fmt.Errorf("%s stopped before it was ready", name)
		}
		return nil, fmt.Errorf("%s failed to start: %w", name, err)
	case <-time.After(serverStartTimeout):
		return nil, fmt.Errorf("%s startup timed out", name)
	}
}

func shutdownWithTimeout(logger *slog.Logger, name string, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Warn("shutdown failed", slog.String("component", name), logging.Err(err))
	}
}
