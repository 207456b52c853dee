package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsServer(t *testing.T) {
	tests := []struct {
		name        string
		config      func(t *testing.T) MetricsServerConfig
		wantAddr    string
		errContains string
	}{
		{
			name: "explicit addr",
			config: func(t *testing.T) MetricsServerConfig {
				return MetricsServerConfig{Addr: ":9191", InstrumentationProvider: createTestProvider(t)}
			},
			wantAddr: ":9191",
		},
		{
			name: "default addr",
			config: func(t *testing.T) MetricsServerConfig {
				return MetricsServerConfig{InstrumentationProvider: createTestProvider(t)}
			},
			wantAddr: DefaultMetricsAddr,
		},
		{
			name:        "nil provider",
			config:      func(*testing.T) MetricsServerConfig { return MetricsServerConfig{} },
			errContains: "instrumentation provider is required",
		},
		{
			name: "disabled provider",
			config: func(t *testing.T) MetricsServerConfig {
				return MetricsServerConfig{InstrumentationProvider: createDisabledProvider(t)}
			},
			errContains: "not enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := NewMetricsServer(tt.config(t))
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, srv.Addr())
		})
	}
}

func TestMetricsServerStartAndShutdown(t *testing.T) {
	provider := createTestProvider(t)
	provider.Metrics().RecordToolInvocation(context.Background(), "get_unread_emails", "success", time.Millisecond)

	srv, err := NewMetricsServer(MetricsServerConfig{
		Addr:                    "127.0.0.1:0",
		InstrumentationProvider: provider,
		Logger:                  discardLogger(),
	})
	require.NoError(t, err)

	ready := make(chan struct{})
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.StartWithReadySignal(ready) }()
	<-ready

	base := "http://" + srv.Addr()
	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "mcp_tool_invocations")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	err = <-serveErr
	assert.True(t, errors.Is(err, http.ErrServerClosed), "unexpected serve error: %v", err)
}

func TestMetricsServerShutdownWithoutStart(t *testing.T) {
	srv, err := NewMetricsServer(MetricsServerConfig{InstrumentationProvider: createTestProvider(t)})
	require.NoError(t, err)
	assert.NoError(t, srv.Shutdown(context.Background()))
}
