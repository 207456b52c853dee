package gmail

import (
	"encoding/base64"
	"fmt"
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxreply/internal/mail"
)

// decodeBodyData decodes a part body. The API documents base64url; padded,
// unpadded and standard alphabets are all accepted.
func decodeBodyData(data string) ([]byte, error) {
	if data == "" {
		return nil, nil
	}
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding, base64.RawStdEncoding} {
		if b, err := enc.DecodeString(data); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("body data is not valid base64")
}

// toPart converts a message payload into a part tree. A payload with
// sub-parts becomes a composite, anything else a leaf.
func toPart(p *gmail.MessagePart) (*mail.Part, error) {
	if p == nil {
		return nil, nil
	}
	if len(p.Parts) > 0 {
		children := make([]*mail.Part, 0, len(p.Parts))
		for _, sub := range p.Parts {
			if sub == nil {
				continue
			}
			child, err := toPart(sub)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return mail.NewMultipart(p.MimeType, children...)
	}

	var body []byte
	if p.Body != nil {
		var err error
		if body, err = decodeBodyData(p.Body.Data); err != nil {
			return nil, fmt.Errorf("part %s (%s): %w", p.PartId, p.MimeType, err)
		}
	}
	return mail.NewLeaf(p.MimeType, body), nil
}

func toHeaders(hs []*gmail.MessagePartHeader) mail.HeaderSet {
	out := make(mail.HeaderSet, 0, len(hs))
	for _, h := range hs {
		if h != nil {
			out = append(out, mail.Header{Name: h.Name, Value: h.Value})
		}
	}
	return out
}

// unreadQuery builds the search for unread mail in folder.
func unreadQuery(folder string) string {
	folder = strings.TrimSpace(folder)
	if folder == "" || strings.EqualFold(folder, "INBOX") {
		return "is:unread"
	}
	if strings.ContainsAny(folder, " \t") {
		folder = `"` + strings.ReplaceAll(folder, `"`, "") + `"`
	}
	return "is:unread in:" + folder
}

func encodeRaw(raw []byte) string {
	return base64.URLEncoding.EncodeToString(raw)
}
