package imap

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"slices"
	"strconv"

	goimap "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/textproto"

	"github.com/teemow/inboxreply/internal/mail"
)

// ErrInvalidRef is returned for message references that are not UIDs.
var ErrInvalidRef = errors.New("invalid message reference")

const maxPartDepth = 32

var wordDecoder = &mime.WordDecoder{CharsetReader: charset.Reader}

func parseUID(ref string) (goimap.UID, error) {
	n, err := strconv.ParseUint(ref, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return goimap.UID(n), nil
}

func formatUID(uid goimap.UID) string {
	return strconv.FormatUint(uint64(uid), 10)
}

// newestFirst sorts uids descending and keeps at most limit of them.
func newestFirst(uids []goimap.UID, limit int) []string {
	sorted := slices.Clone(uids)
	slices.Sort(sorted)
	slices.Reverse(sorted)
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	refs := make([]string, len(sorted))
	for i, uid := range sorted {
		refs[i] = formatUID(uid)
	}
	return refs
}

func unreadCriteria() *goimap.SearchCriteria {
	return &goimap.SearchCriteria{NotFlag: []goimap.Flag{goimap.FlagSeen}}
}

// repliesCriteria matches messages whose References header mentions
// messageID.
func repliesCriteria(messageID string) *goimap.SearchCriteria {
	return &goimap.SearchCriteria{
		Header: []goimap.SearchCriteriaHeaderField{
			{Key: mail.HeaderReferences, Value: messageID},
		},
	}
}

// toHeaderSet converts a raw header block, decoding RFC 2047 words. Fields
// keep their wire order.
func toHeaderSet(h textproto.Header) mail.HeaderSet {
	var out mail.HeaderSet
	fields := h.Fields()
	for fields.Next() {
		value := fields.Value()
		if decoded, err := wordDecoder.DecodeHeader(value); err == nil {
			value = decoded
		}
		out = out.Add(fields.Key(), value)
	}
	return out
}

// parseHeaderBlock reads a header-only section as returned by
// BODY.PEEK[HEADER].
func parseHeaderBlock(b []byte) (mail.HeaderSet, error) {
	h, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(b)))
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	return toHeaderSet(h), nil
}

// parseMessage reads a full RFC 5322 message into headers and a part tree.
// Transfer encodings and charsets are decoded by go-message; parts in an
// unknown charset keep their raw bytes.
func parseMessage(raw []byte) (mail.HeaderSet, *mail.Part, error) {
	e, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, nil, fmt.Errorf("read message: %w", err)
	}
	headers := toHeaderSet(e.Header.Header)
	root, err := entityToPart(e, 0)
	if err != nil {
		return headers, nil, err
	}
	return headers, root, nil
}

func entityToPart(e *message.Entity, depth int) (*mail.Part, error) {
	if depth > maxPartDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", mail.ErrInvalidPart, maxPartDepth)
	}
	ct := e.Header.Get("Content-Type")
	if ct == "" {
		ct = "text/plain"
	}

	if mr := e.MultipartReader(); mr != nil {
		var children []*mail.Part
		for {
			child, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil && !message.IsUnknownCharset(err) {
				return nil, fmt.Errorf("read part %d: %w", len(children), err)
			}
			p, err := entityToPart(child, depth+1)
			if err != nil {
				return nil, err
			}
			children = append(children, p)
		}
		return mail.NewMultipart(ct, children...)
	}

	body, err := io.ReadAll(e.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return mail.NewLeaf(ct, body), nil
}

// messageIDOf returns the Message-ID header of a serialized message.
func messageIDOf(raw []byte) string {
	h, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return ""
	}
	return h.Get(mail.HeaderMessageID)
}
