package mail

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
)

const (
	mediaTypePlain = "text/plain"
	mediaTypeHTML  = "text/html"
)

// ExtractBody returns the best readable body in the tree rooted at root.
//
// A text/plain leaf anywhere in the tree wins over any text/html leaf. Within
// a composite, text/plain children are tried before the rest, so a plain part
// several levels down is still found. When the tree has no non-empty plain
// text the first non-empty text/html leaf is returned; otherwise "".
func ExtractBody(root *Part) string {
	if root == nil {
		return ""
	}
	if text := extractPlain(root); text != "" {
		return text
	}
	return extractHTML(root)
}

func extractPlain(p *Part) string {
	if p.IsLeaf() {
		if p.mediaType == mediaTypePlain && len(p.body) > 0 {
			return decodeText(p.body)
		}
		return ""
	}

	for _, c := range p.children {
		if c.mediaType != mediaTypePlain {
			continue
		}
		if text := extractPlain(c); text != "" {
			return text
		}
	}
	for _, c := range p.children {
		if text := extractPlain(c); text != "" {
			return text
		}
	}
	return ""
}

func extractHTML(p *Part) string {
	if p.IsLeaf() {
		if p.mediaType == mediaTypeHTML && len(p.body) > 0 {
			return decodeText(p.body)
		}
		return ""
	}
	for _, c := range p.children {
		if text := extractHTML(c); text != "" {
			return text
		}
	}
	return ""
}

// decodeText interprets b as UTF-8, replacing invalid sequences with U+FFFD.
func decodeText(b []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(out)
}
