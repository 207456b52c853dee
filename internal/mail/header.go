package mail

import "strings"

// Common header names.
const (
	HeaderFrom       = "From"
	HeaderTo         = "To"
	HeaderCc         = "Cc"
	HeaderReplyTo    = "Reply-To"
	HeaderSubject    = "Subject"
	HeaderDate       = "Date"
	HeaderMessageID  = "Message-ID"
	HeaderInReplyTo  = "In-Reply-To"
	HeaderReferences = "References"
)

// Header is a single name/value pair as it appeared in a message.
type Header struct {
	Name  string
	Value string
}

// HeaderSet is an ordered list of headers. Names may repeat.
type HeaderSet []Header

// Get returns the value of the first header whose name matches
// case-insensitively, or "" if there is none.
func (h HeaderSet) Get(name string) string {
	for _, hdr := range h {
		if strings.EqualFold(hdr.Name, name) {
			return hdr.Value
		}
	}
	return ""
}

// Values returns every value for name in insertion order.
func (h HeaderSet) Values(name string) []string {
	var values []string
	for _, hdr := range h {
		if strings.EqualFold(hdr.Name, name) {
			values = append(values, hdr.Value)
		}
	}
	return values
}

// Add appends a header and returns the extended set.
func (h HeaderSet) Add(name, value string) HeaderSet {
	return append(h, Header{Name: name, Value: value})
}
