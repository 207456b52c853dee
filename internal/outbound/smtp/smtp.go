// Package smtp submits messages to an SMTP relay with go-smtp.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"

	"github.com/teemow/inboxreply/internal/instrumentation"
	"github.com/teemow/inboxreply/internal/outbound"
)

// Security modes.
const (
	ModeTLS      = "tls"
	ModeStartTLS = "starttls"
	ModeNone     = "none"
)

const defaultTimeout = 30 * time.Second

// Config describes the relay.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// Mode is tls (implicit, port 465), starttls (port 587) or none.
	Mode string
	// LocalName is sent in EHLO; go-smtp defaults to "localhost".
	LocalName string
	Timeout   time.Duration
	// TLSConfig overrides the default config derived from Host.
	TLSConfig *tls.Config
}

// Sender is an outbound.Sender for one relay. Each Send opens its own
// connection.
type Sender struct {
	cfg Config
}

var _ outbound.Sender = (*Sender)(nil)

// New validates cfg and fills in the port for the selected mode.
func New(cfg Config) (*Sender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeStartTLS
	}
	switch cfg.Mode {
	case ModeTLS, ModeStartTLS, ModeNone:
	default:
		return nil, fmt.Errorf("unknown smtp security mode %q", cfg.Mode)
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort(cfg.Mode)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Password != "" && cfg.Username == "" {
		return nil, fmt.Errorf("smtp password set without a username")
	}
	return &Sender{cfg: cfg}, nil
}

func defaultPort(mode string) int {
	switch mode {
	case ModeTLS:
		return 465
	case ModeNone:
		return 25
	default:
		return 587
	}
}

func (s *Sender) Name() string { return instrumentation.TransportSMTP }

func (s *Sender) addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

func (s *Sender) tlsConfig() *tls.Config {
	if s.cfg.TLSConfig != nil {
		return s.cfg.TLSConfig
	}
	return &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
}

func (s *Sender) dial(ctx context.Context) (*gosmtp.Client, error) {
	dialer := &net.Dialer{Timeout: s.cfg.Timeout}

	var conn net.Conn
	var err error
	if s.cfg.Mode == ModeTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: s.tlsConfig()}).DialContext(ctx, "tcp", s.addr())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", s.addr())
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", s.addr(), err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(s.cfg.Timeout))
	}

	c := gosmtp.NewClient(conn)
	if s.cfg.LocalName != "" {
		if err := c.Hello(s.cfg.LocalName); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("ehlo: %w", err)
		}
	}
	if s.cfg.Mode == ModeStartTLS {
		if err := c.StartTLS(s.tlsConfig()); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("starttls: %w", err)
		}
	}
	if s.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("authenticate as %s: %w", s.cfg.Username, err)
		}
	}
	return c, nil
}

// Send runs one MAIL/RCPT/DATA transaction.
func (s *Sender) Send(ctx context.Context, from string, rcpts []string, raw []byte) error {
	if len(rcpts) == 0 {
		return outbound.ErrNoRecipients
	}
	c, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Mail(from, nil); err != nil {
		return fmt.Errorf("mail from %s: %w", from, err)
	}
	for _, rcpt := range rcpts {
		if err := c.Rcpt(rcpt, nil); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish data: %w", err)
	}
	return c.Quit()
}
