package resources

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxreply/internal/mail"
	"github.com/teemow/inboxreply/internal/mailbox"
	"github.com/teemow/inboxreply/internal/server"
)

type stubBackend struct{}

func (stubBackend) Name() string { return "imap" }
func (stubBackend) ListUnread(context.Context, string, int) ([]string, error) {
	return nil, nil
}
func (stubBackend) FetchMessage(context.Context, string, string) (*mailbox.RawMessage, error) {
	return nil, mailbox.ErrNotFound
}
func (stubBackend) ThreadHistory(context.Context, string, string) ([]mail.HeaderSet, error) {
	return nil, nil
}
func (stubBackend) SaveDraft(context.Context, mailbox.DraftRequest) (*mailbox.DraftResult, error) {
	return &mailbox.DraftResult{}, nil
}
func (stubBackend) Send(context.Context, mailbox.Outgoing) (*mailbox.SendResult, error) {
	return &mailbox.SendResult{}, nil
}

func newContext(t *testing.T, opts ...server.Option) *server.ServerContext {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := mailbox.NewService(stubBackend{}, logger, mailbox.WithSelfAddress("me@example.com"))
	sc := server.NewServerContext(context.Background(), svc, append([]server.Option{server.WithLogger(logger)}, opts...)...)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func readRequest(uri string) mcp.ReadResourceRequest {
	var req mcp.ReadResourceRequest
	req.Params.URI = uri
	return req
}

func textOf(t *testing.T, contents []mcp.ResourceContents) string {
	t.Helper()
	require.Len(t, contents, 1)
	text, ok := contents[0].(*mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "application/json", text.MIMEType)
	return text.Text
}

func TestHandleAccount(t *testing.T) {
	sc := newContext(t, server.WithReadOnly(false))

	contents, err := handleAccount(context.Background(), readRequest(AccountURI), sc)
	require.NoError(t, err)

	var info AccountInfo
	require.NoError(t, json.Unmarshal([]byte(textOf(t, contents)), &info))
	assert.Equal(t, "imap", info.Backend)
	assert.Equal(t, "me@example.com", info.Address)
	assert.False(t, info.ReadOnly)
}

func TestHandleAccountErrors(t *testing.T) {
	sc := newContext(t)
	require.NoError(t, sc.Shutdown())
	_, err := handleAccount(context.Background(), readRequest(AccountURI), sc)
	assert.ErrorIs(t, err, server.ErrShutdown)

	empty := server.NewServerContext(context.Background(), nil)
	t.Cleanup(func() { _ = empty.Shutdown() })
	_, err = handleAccount(context.Background(), readRequest(AccountURI), empty)
	assert.ErrorIs(t, err, server.ErrNoMailbox)
}

func TestReadResourcesThroughServer(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithResourceCapabilities(false, false))
	require.NoError(t, RegisterMailboxResources(s, newContext(t)))

	tests := []struct {
		uri  string
		want string
	}{
		{uri: AccountURI, want: `\"readOnly\": true`},
		{uri: SenderPatternsURI, want: "newsletter"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			msg := `{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"` + tt.uri + `"}}`
			resp := s.HandleMessage(context.Background(), json.RawMessage(msg))
			raw, err := json.Marshal(resp)
			require.NoError(t, err)
			assert.Contains(t, string(raw), tt.want)
			assert.NotContains(t, string(raw), `"error"`)
		})
	}
}
