package imap

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxreply/internal/logging"
)

// wireLog pushes chunks through the redactor into a debug-level slog handler
// and returns what the handler received.
func wireLog(t *testing.T, chunks ...string) string {
	t.Helper()
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	w := newWireRedactor(logging.NewLineWriter(logger))
	for _, c := range chunks {
		n, err := w.Write([]byte(c))
		require.NoError(t, err)
		require.Equal(t, len(c), n)
	}
	return out.String()
}

func TestWireRedactor(t *testing.T) {
	tests := []struct {
		name    string
		chunks  []string
		hidden  []string
		visible []string
	}{
		{
			name:    "login arguments",
			chunks:  []string{"A1 LOGIN me@example.com hunter2\r\n", "A1 OK LOGIN completed\r\n"},
			hidden:  []string{"hunter2", "me@example.com"},
			visible: []string{"A1 LOGIN [redacted]", "A1 OK LOGIN completed"},
		},
		{
			name:    "lowercase login split across writes",
			chunks:  []string{"a7 login alice \"s3cr", "et\"\r\n"},
			hidden:  []string{"s3cr", "alice"},
			visible: []string{"a7 LOGIN [redacted]"},
		},
		{
			name: "login password sent as synchronizing literal",
			chunks: []string{
				"A2 LOGIN alice {8}\r\n",
				"+ Ready for literal\r\n",
				"p@ss\"wd!",
				" {6}\r\n",
				"+ go\r\n",
				"more12\r\n",
				"A2 OK done\r\n",
			},
			hidden:  []string{"alice", "p@ss", "more12"},
			visible: []string{"A2 LOGIN [redacted]", "+ Ready for literal", "A2 OK done"},
		},
		{
			name: "authenticate with initial response and continuation",
			chunks: []string{
				"A3 AUTHENTICATE PLAIN AG1lAGh1bnRlcjI=\r\n",
				"+ \r\n",
				"AGFsaWNlAHNlY3JldA==\r\n",
				"A3 OK authenticated\r\n",
				"A4 NOOP\r\n",
			},
			hidden:  []string{"AG1lAGh1bnRlcjI=", "AGFsaWNlAHNlY3JldA=="},
			visible: []string{"A3 AUTHENTICATE [redacted]", "A3 OK authenticated", "A4 NOOP"},
		},
		{
			name: "fetched message body",
			chunks: []string{
				"A5 UID FETCH 3 (UID BODY.PEEK[])\r\n",
				"* 1 FETCH (UID 3 BODY[] {37}\r\n",
				"From: boss@example.com\r\n\r\nPrivate!!\r\n",
				")\r\n",
				"A5 OK FETCH completed\r\n",
			},
			hidden:  []string{"boss@example.com", "Private"},
			visible: []string{"* 1 FETCH (UID 3 BODY[] {37} [redacted]", "A5 OK FETCH completed"},
		},
		{
			name: "appended draft",
			chunks: []string{
				"A6 APPEND Drafts (\\Draft) {20+}\r\n",
				"Subject: secret plan",
				"\r\n",
				"A6 OK [APPENDUID 1 9] done\r\n",
			},
			hidden:  []string{"secret plan"},
			visible: []string{"A6 APPEND Drafts", "A6 OK [APPENDUID 1 9] done"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wireLog(t, tt.chunks...)
			for _, h := range tt.hidden {
				assert.NotContains(t, got, h)
			}
			for _, v := range tt.visible {
				assert.Contains(t, got, v)
			}
		})
	}
}

func TestWireRedactorHoldsPartialLines(t *testing.T) {
	assert.Empty(t, wireLog(t, "A1 NOOP"))
}

func TestTrailingLiteral(t *testing.T) {
	tests := []struct {
		line string
		size int
		sync bool
		ok   bool
	}{
		{line: "A1 LOGIN {5}", size: 5, sync: true, ok: true},
		{line: "A1 APPEND INBOX {12+}", size: 12, ok: true},
		{line: "A1 APPEND INBOX ~{3}", size: 3, sync: true, ok: true},
		{line: "* 1 FETCH (BODY[] {abc}", ok: false},
		{line: "A1 OK done", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			size, sync, ok := trailingLiteral([]byte(tt.line))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.size, size)
			assert.Equal(t, tt.sync, sync)
		})
	}
}
