package imap

import (
	"bytes"
	"io"
	"strconv"
	"sync"
)

const redacted = "[redacted]"

// wireRedactor filters the raw protocol stream before it reaches a log
// sink. Arguments of LOGIN and AUTHENTICATE, SASL responses and every
// literal payload (message bodies, header blocks, literal strings) are
// dropped. Only complete lines are forwarded to next.
type wireRedactor struct {
	mu   sync.Mutex
	next io.Writer
	buf  []byte

	// skip counts literal bytes still to drop.
	skip int
	// awaitContinuation is set after a synchronizing literal, whose bytes
	// only follow the server's "+" continuation line.
	awaitContinuation bool
	// sensitive marks the rest of a LOGIN command split by a literal.
	sensitive bool
	// authTag is the tag of an AUTHENTICATE exchange in progress.
	authTag string
	// inResponse marks the rest of an untagged server response split by a
	// literal. Servers never wait for a continuation.
	inResponse bool
}

func newWireRedactor(next io.Writer) *wireRedactor {
	return &wireRedactor{next: next}
}

func (w *wireRedactor) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for len(w.buf) > 0 {
		if w.skip > 0 {
			if w.awaitContinuation {
				if w.buf[0] != '+' {
					w.awaitContinuation = false
					continue
				}
				i := bytes.IndexByte(w.buf, '\n')
				if i < 0 {
					break
				}
				line := w.buf[:i+1]
				w.buf = w.buf[i+1:]
				w.awaitContinuation = false
				if err := w.emit(line); err != nil {
					return len(p), err
				}
				continue
			}
			n := min(w.skip, len(w.buf))
			w.skip -= n
			w.buf = w.buf[n:]
			continue
		}

		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := w.buf[:i+1]
		w.buf = w.buf[i+1:]
		if err := w.emit(w.filter(line)); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}

// filter redacts one protocol line and arms the literal state for the
// bytes that follow it.
func (w *wireRedactor) filter(line []byte) []byte {
	text := bytes.TrimRight(line, "\r\n")
	size, synchronizing, hasLiteral := trailingLiteral(text)
	fromServer := w.inResponse || bytes.HasPrefix(text, []byte("* "))
	w.inResponse = fromServer && hasLiteral

	out := text
	switch {
	case w.sensitive:
		out = []byte(redacted)
	case w.authTag != "":
		switch {
		case bytes.HasPrefix(text, []byte(w.authTag+" ")):
			w.authTag = ""
		case bytes.HasPrefix(text, []byte("+")), bytes.HasPrefix(text, []byte("*")):
		default:
			out = []byte(redacted)
		}
	default:
		if tag, verb, ok := commandVerb(text); ok {
			switch verb {
			case "LOGIN":
				out = []byte(tag + " LOGIN " + redacted)
				w.sensitive = hasLiteral
			case "AUTHENTICATE":
				out = []byte(tag + " AUTHENTICATE " + redacted)
				w.authTag = tag
			}
		}
	}
	if !hasLiteral {
		w.sensitive = false
	} else {
		w.skip = size
		w.awaitContinuation = synchronizing && !fromServer
		if !w.sensitive {
			out = append(bytes.Clone(out), " "+redacted...)
		}
	}
	return append(bytes.Clone(out), '\n')
}

func (w *wireRedactor) emit(line []byte) error {
	_, err := w.next.Write(line)
	return err
}

// commandVerb splits "<tag> <verb> ..." and upper-cases the verb.
func commandVerb(line []byte) (tag, verb string, ok bool) {
	fields := bytes.Fields(line)
	if len(fields) < 2 || fields[0][0] == '*' || fields[0][0] == '+' {
		return "", "", false
	}
	return string(fields[0]), string(bytes.ToUpper(fields[1])), true
}

// trailingLiteral parses a "{N}", "{N+}" or "~{N}" literal announcement at
// the end of line. synchronizing is true when the sender waits for a
// continuation.
func trailingLiteral(line []byte) (size int, synchronizing, ok bool) {
	if !bytes.HasSuffix(line, []byte("}")) {
		return 0, false, false
	}
	open := bytes.LastIndexByte(line, '{')
	if open < 0 {
		return 0, false, false
	}
	digits := line[open+1 : len(line)-1]
	synchronizing = true
	if bytes.HasSuffix(digits, []byte("+")) || bytes.HasSuffix(digits, []byte("-")) {
		digits = digits[:len(digits)-1]
		synchronizing = false
	}
	n, err := strconv.Atoi(string(digits))
	if err != nil || n < 0 {
		return 0, false, false
	}
	return n, synchronizing, true
}
