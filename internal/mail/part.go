package mail

import (
	"errors"
	"fmt"
	"mime"
	"strings"
)

// ErrInvalidPart is returned when a part tree is built with a malformed node.
var ErrInvalidPart = errors.New("invalid message part")

// Part is a node in a message's MIME content tree. A leaf carries an
// optional body; a composite carries ordered children and never a body.
type Part struct {
	contentType string
	mediaType   string
	body        []byte
	children    []*Part
	composite   bool
}

// NewLeaf builds a leaf part. A nil or empty body is allowed and yields
// no text during extraction.
func NewLeaf(contentType string, body []byte) *Part {
	return &Part{
		contentType: contentType,
		mediaType:   normalizeMediaType(contentType),
		body:        body,
	}
}

// NewMultipart builds a composite part from children. Every child must be
// non-nil.
func NewMultipart(contentType string, children ...*Part) (*Part, error) {
	for i, c := range children {
		if c == nil {
			return nil, fmt.Errorf("%w: child %d of %q is nil", ErrInvalidPart, i, contentType)
		}
	}
	return &Part{
		contentType: contentType,
		mediaType:   normalizeMediaType(contentType),
		children:    children,
		composite:   true,
	}, nil
}

// ContentType returns the content type as given at construction.
func (p *Part) ContentType() string { return p.contentType }

// MediaType returns the lowercased content type without parameters.
func (p *Part) MediaType() string { return p.mediaType }

// IsLeaf reports whether p is a leaf node.
func (p *Part) IsLeaf() bool { return !p.composite }

// Body returns the raw body of a leaf. It is nil for composites.
func (p *Part) Body() []byte { return p.body }

// Children returns the ordered children of a composite.
func (p *Part) Children() []*Part { return p.children }

func normalizeMediaType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
