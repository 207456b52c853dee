package logging

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// PrintfAdapter exposes an slog.Logger through the Printf/Println interface
// expected by go-smtp's Server.ErrorLog.
type PrintfAdapter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewPrintfAdapter logs every line at level. A nil logger uses slog.Default.
func NewPrintfAdapter(logger *slog.Logger, level slog.Level) *PrintfAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrintfAdapter{logger: logger, level: level}
}

func (a *PrintfAdapter) Printf(format string, v ...interface{}) {
	a.logger.Log(context.Background(), a.level, fmt.Sprintf(format, v...))
}

func (a *PrintfAdapter) Println(v ...interface{}) {
	a.logger.Log(context.Background(), a.level, fmt.Sprint(v...))
}

// LineWriter is an io.Writer that emits one debug record per written line.
// It is handed to protocol clients as their debug sink, e.g. the IMAP
// client's DebugWriter.
type LineWriter struct {
	mu     sync.Mutex
	logger *slog.Logger
	buf    []byte
}

func NewLineWriter(logger *slog.Logger) *LineWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LineWriter{logger: logger}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimRight(w.buf[:i], "\r")
		if len(line) > 0 {
			w.logger.Debug("wire", slog.String("line", string(line)))
		}
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}
