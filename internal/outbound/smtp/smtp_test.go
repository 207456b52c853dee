package smtp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxreply/internal/logging"
	"github.com/teemow/inboxreply/internal/outbound"
)

type delivery struct {
	from  string
	rcpts []string
	data  []byte
}

type recordingBackend struct {
	mu         sync.Mutex
	deliveries []delivery
	rejectRcpt string
}

func (b *recordingBackend) NewSession(_ *gosmtp.Conn) (gosmtp.Session, error) {
	return &session{backend: b}, nil
}

type session struct {
	backend *recordingBackend
	cur     delivery
}

func (s *session) AuthPlain(_, _ string) error { return gosmtp.ErrAuthUnsupported }

func (s *session) Mail(from string, _ *gosmtp.MailOptions) error {
	s.cur.from = from
	return nil
}

func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	if to == s.backend.rejectRcpt {
		return &gosmtp.SMTPError{Code: 550, EnhancedCode: gosmtp.EnhancedCode{5, 1, 1}, Message: "no such user"}
	}
	s.cur.rcpts = append(s.cur.rcpts, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.cur.data = data
	s.backend.mu.Lock()
	s.backend.deliveries = append(s.backend.deliveries, s.cur)
	s.backend.mu.Unlock()
	return nil
}

func (s *session) Reset()        { s.cur = delivery{} }
func (s *session) Logout() error { return nil }

func startServer(t *testing.T, be *recordingBackend) (string, int) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := gosmtp.NewServer(be)
	srv.Domain = "localhost"
	srv.ReadTimeout = 5 * time.Second
	srv.WriteTimeout = 5 * time.Second
	srv.ErrorLog = logging.NewPrintfAdapter(slog.New(slog.NewTextHandler(io.Discard, nil)), slog.LevelWarn)

	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })

	host, portStr, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestSend(t *testing.T) {
	be := &recordingBackend{}
	host, port := startServer(t, be)

	s, err := New(Config{Host: host, Port: port, Mode: ModeNone, LocalName: "test.local"})
	require.NoError(t, err)
	assert.Equal(t, "smtp", s.Name())

	raw := []byte("Subject: hi\r\n\r\nhello\r\n")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Send(ctx, "me@example.com", []string{"a@example.com", "b@example.com"}, raw))

	be.mu.Lock()
	defer be.mu.Unlock()
	require.Len(t, be.deliveries, 1)
	d := be.deliveries[0]
	assert.Equal(t, "me@example.com", d.from)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, d.rcpts)
	assert.True(t, bytes.Contains(d.data, []byte("hello")))
}

func TestSendRejectedRecipient(t *testing.T) {
	be := &recordingBackend{rejectRcpt: "ghost@example.com"}
	host, port := startServer(t, be)

	s, err := New(Config{Host: host, Port: port, Mode: ModeNone})
	require.NoError(t, err)

	err = s.Send(context.Background(), "me@example.com", []string{"ghost@example.com"}, []byte("x\r\n"))
	require.Error(t, err)

	var smtpErr *gosmtp.SMTPError
	require.True(t, errors.As(err, &smtpErr))
	assert.Equal(t, 550, smtpErr.Code)
	assert.Empty(t, be.deliveries)
}

func TestSendNoRecipients(t *testing.T) {
	s, err := New(Config{Host: "localhost", Mode: ModeNone})
	require.NoError(t, err)
	assert.ErrorIs(t, s.Send(context.Background(), "me@example.com", nil, nil), outbound.ErrNoRecipients)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantPort int
		wantErr  bool
	}{
		{name: "starttls default", cfg: Config{Host: "mail.example.com"}, wantPort: 587},
		{name: "implicit tls", cfg: Config{Host: "mail.example.com", Mode: ModeTLS}, wantPort: 465},
		{name: "plain", cfg: Config{Host: "mail.example.com", Mode: ModeNone}, wantPort: 25},
		{name: "explicit port", cfg: Config{Host: "mail.example.com", Port: 2525}, wantPort: 2525},
		{name: "missing host", cfg: Config{}, wantErr: true},
		{name: "bad mode", cfg: Config{Host: "h", Mode: "ssl"}, wantErr: true},
		{name: "password without user", cfg: Config{Host: "h", Password: "p"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPort, s.cfg.Port)
		})
	}
}
