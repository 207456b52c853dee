package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{ServiceName: "t", Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.False(t, p.PrometheusEnabled())
	assert.NotNil(t, p.Metrics())
	assert.NotNil(t, p.Tracer("x"))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderPrometheus(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := NewProvider(ctx, Config{
		ServiceName:     "t",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	})
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(ctx) }()

	assert.True(t, p.Enabled())
	assert.True(t, p.PrometheusEnabled())
	require.NotNil(t, p.Metrics())
	p.Metrics().RecordToolInvocation(ctx, "get_unread_emails", StatusSuccess, time.Millisecond)
}

func TestNewProviderRejectsInvalidConfig(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{
		Enabled:         true,
		MetricsExporter: ExporterOTLP,
	})
	assert.Error(t, err)
}
