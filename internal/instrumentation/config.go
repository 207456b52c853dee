package instrumentation

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config controls how telemetry is collected and exported.
type Config struct {
	// ServiceName defaults to "inboxreply".
	ServiceName    string
	ServiceVersion string

	// ServiceInstanceID falls back to the hostname when empty.
	ServiceInstanceID string

	// Enabled turns the whole provider into a no-op when false.
	Enabled bool

	// MetricsExporter is one of prometheus, otlp, stdout.
	MetricsExporter string

	// TracingExporter is one of otlp, stdout, none.
	TracingExporter string

	// OTLPEndpoint is host:port without a scheme, e.g. "localhost:4318".
	OTLPEndpoint string

	// OTLPInsecure disables TLS towards the collector. Development only.
	OTLPInsecure bool

	// TraceSamplingRate is the parent-based ratio in [0, 1].
	TraceSamplingRate float64

	// DetailedLabels adds high-cardinality labels such as sender domains.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig configures the tool invocation audit log.
type AuditLoggingConfig struct {
	Enabled bool

	// IncludePII logs full mailbox addresses instead of domains.
	IncludePII bool
}

// DefaultConfig builds a Config from the environment.
func DefaultConfig() Config {
	return Config{
		ServiceName:       envString("OTEL_SERVICE_NAME", "inboxreply"),
		ServiceVersion:    "unknown",
		ServiceInstanceID: envString("OTEL_SERVICE_INSTANCE_ID", ""),
		Enabled:           envBool("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:   envString("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:   envString("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: envFloat("OTEL_TRACES_SAMPLER_ARG", 0.1),
		DetailedLabels:    envBool("METRICS_DETAILED_LABELS", false),
		AuditLogging: AuditLoggingConfig{
			Enabled:    envBool("AUDIT_LOGGING_ENABLED", true),
			IncludePII: envBool("AUDIT_LOGGING_INCLUDE_PII", false),
		},
	}
}

// Validate reports the first problem with c.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be within [0, 1], got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("unknown metrics exporter %q (want prometheus, otlp or stdout)", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("unknown tracing exporter %q (want otlp, stdout or none)", c.TracingExporter)
	}

	if c.OTLPEndpoint == "" && (c.MetricsExporter == ExporterOTLP || c.TracingExporter == ExporterOTLP) {
		return fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT must be set when an otlp exporter is selected")
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// Label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	BackendGmail = "gmail"
	BackendIMAP  = "imap"

	TransportSMTP = "smtp"
	TransportSES  = "ses"
	TransportAPI  = "gmail_api"

	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"

	DefaultMetricInterval = 10 * time.Second
)
