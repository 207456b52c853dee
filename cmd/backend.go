package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teemow/inboxreply/internal/config"
	"github.com/teemow/inboxreply/internal/gmail"
	"github.com/teemow/inboxreply/internal/google"
	"github.com/teemow/inboxreply/internal/imap"
	"github.com/teemow/inboxreply/internal/instrumentation"
	"github.com/teemow/inboxreply/internal/logging"
	"github.com/teemow/inboxreply/internal/mailbox"
	"github.com/teemow/inboxreply/internal/outbound"
	"github.com/teemow/inboxreply/internal/outbound/ses"
	"github.com/teemow/inboxreply/internal/outbound/smtp"
)

// loadConfig reads and validates the configuration for this invocation.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newMailboxService builds the backend selected by cfg and wraps it in a
// mailbox.Service. metrics may be nil.
func newMailboxService(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) (*mailbox.Service, error) {
	backend, err := newBackend(ctx, cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	return mailbox.NewService(backend, logger,
		mailbox.WithMetrics(metrics),
		mailbox.WithSelfAddress(cfg.Sender()),
	), nil
}

func newBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) (mailbox.Backend, error) {
	switch cfg.Backend {
	case config.BackendGmail:
		httpClient, err := google.NewHTTPClient(ctx, cfg.Google.CredentialsPath, cfg.Google.TokenPath)
		if err != nil {
			return nil, fmt.Errorf("failed to authorize gmail client: %w", err)
		}
		backend, err := gmail.New(ctx, httpClient, gmail.Options{From: cfg.From, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("failed to create gmail backend: %w", err)
		}
		return backend, nil

	case config.BackendIMAP:
		sender, err := newOutboundSender(ctx, cfg, metrics)
		if err != nil {
			return nil, err
		}
		transport := "none"
		if sender != nil {
			transport = sender.Name()
		} else {
			logger.Info("no outbound transport configured, sending is disabled")
		}
		logger.Debug("configuring imap backend",
			slog.String("host", cfg.IMAP.Host),
			slog.String("username", cfg.IMAP.Username),
			slog.String("password", logging.SanitizeSecret(cfg.IMAP.Password)),
			logging.Transport(transport))
		backend, err := imap.New(imap.Config{
			Host:          cfg.IMAP.Host,
			Port:          cfg.IMAP.Port,
			Username:      cfg.IMAP.Username,
			Password:      cfg.IMAP.Password,
			Mode:          cfg.IMAP.TLS,
			From:          cfg.Sender(),
			DraftsMailbox: cfg.IMAP.DraftsMailbox,
			SentMailbox:   cfg.IMAP.SentMailbox,
			Debug:         cfg.IMAP.Debug,
		}, sender, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create imap backend: %w", err)
		}
		return backend, nil

	default:
		return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}
}

// newOutboundSender returns the transport the IMAP backend sends through,
// or nil when none is configured.
func newOutboundSender(ctx context.Context, cfg *config.Config, metrics *instrumentation.Metrics) (outbound.Sender, error) {
	var sender outbound.Sender
	switch cfg.Outbound.Transport {
	case config.TransportNone:
		return nil, nil
	case config.TransportSMTP:
		s, err := smtp.New(smtp.Config{
			Host:     cfg.Outbound.SMTP.Host,
			Port:     cfg.Outbound.SMTP.Port,
			Username: cfg.Outbound.SMTP.Username,
			Password: cfg.Outbound.SMTP.Password,
			Mode:     cfg.Outbound.SMTP.TLS,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create smtp transport: %w", err)
		}
		sender = s
	case config.TransportSES:
		s, err := ses.New(ctx, ses.Config{
			Region:               cfg.Outbound.SES.Region,
			AccessKeyID:          cfg.Outbound.SES.AccessKeyID,
			SecretAccessKey:      cfg.Outbound.SES.SecretAccessKey,
			ConfigurationSetName: cfg.Outbound.SES.ConfigurationSet,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create ses transport: %w", err)
		}
		sender = s
	default:
		return nil, fmt.Errorf("unsupported outbound transport %q", cfg.Outbound.Transport)
	}

	if metrics == nil {
		return sender, nil
	}
	return outbound.Instrument(sender, metrics), nil
}
