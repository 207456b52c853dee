package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Attribute keys.
const (
	KeyOperation  = "operation"
	KeyBackend    = "backend"
	KeyFolder     = "folder"
	KeyThreadID   = "thread_id"
	KeyMessageID  = "message_id"
	KeyTool       = "tool"
	KeyTransport  = "transport"
	KeyStatus     = "status"
	KeyError      = "error"
	KeySenderHash = "sender_hash"
	KeyDomain     = "sender_domain"
)

// Status values. Mirrors instrumentation, which imports this package.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// New builds a logger for level ("debug", "info", "warn", "error") and
// format ("text" or "json"). Unknown values fall back to info and text.
func New(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func WithBackend(logger *slog.Logger, backend string) *slog.Logger {
	return logger.With(slog.String(KeyBackend, backend))
}

func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }
func Folder(folder string) slog.Attr { return slog.String(KeyFolder, folder) }
func ThreadID(id string) slog.Attr { return slog.String(KeyThreadID, id) }
func MessageID(id string) slog.Attr { return slog.String(KeyMessageID, id) }
func Tool(tool string) slog.Attr { return slog.String(KeyTool, tool) }
func Transport(name string) slog.Attr { return slog.String(KeyTransport, name) }
func Status(status string) slog.Attr { return slog.String(KeyStatus, status) }
func Backend(backend string) slog.Attr { return slog.String(KeyBackend, backend) }

// Err returns an error attribute. A nil error yields an empty group, which
// slog drops, so Err(maybeNil) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeAddress returns a stable, non-reversible token for an address.
// The comparison is case-insensitive so that "A@x" and "a@x" correlate.
func AnonymizeAddress(address string) string {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(address))
	return "addr:" + hex.EncodeToString(sum[:8])
}

// SenderHash is the attribute form of AnonymizeAddress.
func SenderHash(address string) slog.Attr {
	return slog.String(KeySenderHash, AnonymizeAddress(address))
}

// ExtractDomain returns the part after the last '@' of a bare or
// display-name address, or "".
func ExtractDomain(address string) string {
	if i := strings.LastIndexByte(address, '<'); i >= 0 {
		address = strings.TrimSuffix(address[i+1:], ">")
	}
	at := strings.LastIndexByte(address, '@')
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}

// Domain is the attribute form of ExtractDomain.
func Domain(address string) slog.Attr {
	return slog.String(KeyDomain, ExtractDomain(address))
}

// SanitizeSecret hides passwords and tokens, keeping only their length.
func SanitizeSecret(secret string) string {
	if secret == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[secret:%d chars]", len(secret))
}
