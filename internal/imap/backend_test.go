package imap

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"

	goimap "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxreply/internal/logging"
	"github.com/teemow/inboxreply/internal/mail"
	"github.com/teemow/inboxreply/internal/mailbox"
	"github.com/teemow/inboxreply/internal/outbound"
)

const (
	testUsername = "me@example.com"
	testPassword = "hunter2"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	user *imapmemserver.User
	host string
	port int
}

// startServer runs an in-memory IMAP server with INBOX, Drafts and Sent.
func startServer(t *testing.T) *testServer {
	t.Helper()
	mem := imapmemserver.New()
	user := imapmemserver.NewUser(testUsername, testPassword)
	for _, name := range []string{"INBOX", "Drafts", "Sent"} {
		require.NoError(t, user.Create(name, nil))
	}
	mem.AddUser(user)

	srv := imapserver.New(&imapserver.Options{
		NewSession: func(*imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return mem.NewSession(), nil, nil
		},
		Caps:         goimap.CapSet{goimap.CapIMAP4rev1: {}, goimap.CapIMAP4rev2: {}},
		InsecureAuth: true,
		Logger:       logging.NewPrintfAdapter(discardLogger(), slog.LevelWarn),
	})
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })

	host, portStr, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return &testServer{user: user, host: host, port: port}
}

func (s *testServer) add(t *testing.T, folder, raw string, flags ...goimap.Flag) goimap.UID {
	t.Helper()
	data, err := s.user.Append(folder, bytes.NewReader(crlf(raw)), &goimap.AppendOptions{Flags: flags})
	require.NoError(t, err)
	return data.UID
}

func (s *testServer) backend(t *testing.T, mutate func(*Config), sender outbound.Sender) *Backend {
	t.Helper()
	cfg := Config{
		Host:     s.host,
		Port:     s.port,
		Username: testUsername,
		Password: testPassword,
		Mode:     ModeNone,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	b, err := New(cfg, sender, discardLogger())
	require.NoError(t, err)
	return b
}

// flags reads the flags of uid in folder with a separate client.
func (s *testServer) flags(t *testing.T, folder string, uid goimap.UID) []goimap.Flag {
	t.Helper()
	c, err := imapclient.DialInsecure(net.JoinHostPort(s.host, strconv.Itoa(s.port)), nil)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Login(testUsername, testPassword).Wait())
	_, err = c.Select(folder, &goimap.SelectOptions{ReadOnly: true}).Wait()
	require.NoError(t, err)
	msgs, err := c.Fetch(goimap.UIDSetNum(uid), &goimap.FetchOptions{UID: true, Flags: true}).Collect()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	return msgs[0].Flags
}

type recordingSender struct {
	from  string
	rcpts []string
	raw   []byte
}

func (s *recordingSender) Name() string { return "recording" }

func (s *recordingSender) Send(_ context.Context, from string, rcpts []string, raw []byte) error {
	s.from, s.rcpts, s.raw = from, rcpts, raw
	return nil
}

const (
	rootMessage = `From: Alice <alice@example.com>
To: me@example.com
Subject: Plans
Message-ID: <root@example.com>
Content-Type: text/plain; charset=iso-8859-1
Content-Transfer-Encoding: quoted-printable

caf=E9
`
	firstReply = `From: Bob <bob@example.com>
To: me@example.com, alice@example.com
Subject: Re: Plans
Message-ID: <r1@example.com>
In-Reply-To: <root@example.com>
References: <root@example.com>

one
`
	secondReply = `From: Carol <carol@example.com>
To: me@example.com
Cc: bob@example.com
Subject: Re: Plans
Message-ID: <r2@example.com>
In-Reply-To: <r1@example.com>
References: <root@example.com> <r1@example.com>

two
`
	unrelated = `From: news@example.org
To: me@example.com
Subject: Weekly digest
Message-ID: <digest@example.org>

other
`
)

// seedThread stores a read root, two unread replies and one unrelated
// unread message, in that UID order.
func seedThread(t *testing.T, s *testServer) {
	t.Helper()
	s.add(t, "INBOX", rootMessage, goimap.FlagSeen)
	s.add(t, "INBOX", firstReply)
	s.add(t, "INBOX", secondReply)
	s.add(t, "INBOX", unrelated)
}

func TestListUnread(t *testing.T) {
	srv := startServer(t)
	seedThread(t, srv)
	b := srv.backend(t, nil, nil)

	tests := []struct {
		name   string
		folder string
		limit  int
		want   []string
	}{
		{name: "newest first", folder: "INBOX", limit: 10, want: []string{"4", "3", "2"}},
		{name: "limited", folder: "INBOX", limit: 2, want: []string{"4", "3"}},
		{name: "default folder", limit: 10, want: []string{"4", "3", "2"}},
		{name: "empty folder", folder: "Drafts", limit: 10, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.ListUnread(context.Background(), tt.folder, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := b.ListUnread(context.Background(), "Missing", 10)
	assert.ErrorContains(t, err, "select Missing")
}

func TestFetchMessage(t *testing.T) {
	srv := startServer(t)
	seedThread(t, srv)
	b := srv.backend(t, nil, nil)
	ctx := context.Background()

	root, err := b.FetchMessage(ctx, "INBOX", "1")
	require.NoError(t, err)
	assert.Equal(t, "1", root.ID)
	assert.Equal(t, "1", root.ThreadID)
	assert.Equal(t, "Plans", root.Headers.Get(mail.HeaderSubject))
	assert.Equal(t, "café", mail.ExtractBody(root.Root))

	reply, err := b.FetchMessage(ctx, "INBOX", "3")
	require.NoError(t, err)
	assert.Equal(t, "two", mail.ExtractBody(reply.Root))

	assert.NotContains(t, srv.flags(t, "INBOX", 3), goimap.FlagSeen, "fetching must not mark messages read")
	unread, err := b.ListUnread(ctx, "INBOX", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "3", "2"}, unread)

	_, err = b.FetchMessage(ctx, "INBOX", "99")
	assert.ErrorIs(t, err, mailbox.ErrNotFound)

	_, err = b.FetchMessage(ctx, "INBOX", "abc")
	assert.ErrorIs(t, err, ErrInvalidRef)
}

func TestThreadHistory(t *testing.T) {
	srv := startServer(t)
	seedThread(t, srv)
	b := srv.backend(t, nil, nil)
	ctx := context.Background()

	history, err := b.ThreadHistory(ctx, "INBOX", "1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	ids := make([]string, len(history))
	for i, h := range history {
		ids[i] = h.Get(mail.HeaderMessageID)
	}
	assert.Equal(t, []string{"<root@example.com>", "<r1@example.com>", "<r2@example.com>"}, ids)

	draft, err := mail.BuildReply(history, "ok")
	require.NoError(t, err)
	assert.Equal(t, "Carol <carol@example.com>", draft.To)
	assert.Equal(t, "<r2@example.com>", draft.InReplyTo)
	assert.Equal(t, "<root@example.com> <r1@example.com> <r2@example.com>", draft.References)

	single, err := b.ThreadHistory(ctx, "INBOX", "4")
	require.NoError(t, err)
	assert.Len(t, single, 1)

	_, err = b.ThreadHistory(ctx, "INBOX", "99")
	assert.ErrorIs(t, err, mailbox.ErrNotFound)
}

func TestCreateDraftReplyAppendsDraft(t *testing.T) {
	srv := startServer(t)
	seedThread(t, srv)
	b := srv.backend(t, nil, nil)
	svc := mailbox.NewService(b, discardLogger(), mailbox.WithSelfAddress(testUsername))
	ctx := context.Background()

	result, err := svc.CreateDraftReply(ctx, "INBOX", "1", "Sounds good")
	require.NoError(t, err)
	assert.Equal(t, "1", result.ThreadID)
	require.NotEmpty(t, result.DraftID)

	uid, err := parseUID(result.DraftID)
	require.NoError(t, err)
	assert.Contains(t, srv.flags(t, "Drafts", uid), goimap.FlagDraft)

	saved, err := b.FetchMessage(ctx, "Drafts", result.DraftID)
	require.NoError(t, err)
	assert.Equal(t, "Re: Plans", saved.Headers.Get(mail.HeaderSubject))
	assert.Equal(t, "<r2@example.com>", saved.Headers.Get(mail.HeaderInReplyTo))
	assert.Contains(t, saved.Headers.Get(mail.HeaderTo), "carol@example.com")
	assert.Contains(t, saved.Headers.Get(mail.HeaderFrom), testUsername)
	assert.Contains(t, mail.ExtractBody(saved.Root), "Sounds good")
}

func TestSaveDraftCustomMailbox(t *testing.T) {
	srv := startServer(t)
	b := srv.backend(t, func(c *Config) { c.DraftsMailbox = "Sent" }, nil)

	result, err := b.SaveDraft(context.Background(), mailbox.DraftRequest{Message: mailbox.Outgoing{
		To:      []string{"a@example.com"},
		Bcc:     []string{"hidden@example.com"},
		Subject: "note",
		Body:    "body",
	}})
	require.NoError(t, err)

	saved, err := b.FetchMessage(context.Background(), "Sent", result.DraftID)
	require.NoError(t, err)
	assert.Contains(t, saved.Headers.Get("Bcc"), "hidden@example.com", "drafts keep Bcc")
}

func TestSend(t *testing.T) {
	srv := startServer(t)
	sender := &recordingSender{}
	b := srv.backend(t, func(c *Config) {
		c.From = "Me <me@example.com>"
		c.SentMailbox = "Sent"
	}, sender)

	result, err := b.Send(context.Background(), mailbox.Outgoing{
		To:       []string{"a@example.com"},
		Bcc:      []string{"hidden@example.com"},
		Subject:  "hello",
		Body:     "hi",
		ThreadID: "7",
	})
	require.NoError(t, err)
	assert.Equal(t, "7", result.ThreadID)
	assert.NotEmpty(t, result.MessageID)

	assert.Equal(t, "me@example.com", sender.from)
	assert.ElementsMatch(t, []string{"a@example.com", "hidden@example.com"}, sender.rcpts)
	assert.NotContains(t, string(sender.raw), "hidden@example.com", "Bcc stays off the wire")

	copies, err := b.FetchMessage(context.Background(), "Sent", "1")
	require.NoError(t, err)
	assert.Equal(t, result.MessageID, copies.Headers.Get(mail.HeaderMessageID))
	assert.Contains(t, srv.flags(t, "Sent", 1), goimap.FlagSeen)
}

func TestSendWithoutTransport(t *testing.T) {
	srv := startServer(t)
	b := srv.backend(t, nil, nil)

	_, err := b.Send(context.Background(), mailbox.Outgoing{To: []string{"a@example.com"}, Body: "hi"})
	assert.ErrorIs(t, err, ErrNoSender)
}

func TestLoginFailure(t *testing.T) {
	srv := startServer(t)
	b := srv.backend(t, func(c *Config) { c.Password = "wrong" }, nil)

	_, err := b.ListUnread(context.Background(), "INBOX", 10)
	assert.ErrorContains(t, err, "login as "+testUsername)
}

func TestNewRejectsUnparseableFrom(t *testing.T) {
	tests := []struct {
		name     string
		username string
		from     string
		wantErr  bool
	}{
		{name: "address username", username: "me@example.com"},
		{name: "bare username", username: "alice", wantErr: true},
		{name: "domain username", username: `CORP\alice`, wantErr: true},
		{name: "bare username with from", username: "alice", from: "Alice <alice@example.com>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Config{Host: "imap.example.com", Username: tt.username, From: tt.from}, nil, nil)
			if tt.wantErr {
				assert.ErrorContains(t, err, "imap from address")
				return
			}
			assert.NoError(t, err)
		})
	}
}
