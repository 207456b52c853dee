package mail

import "strings"

// References is the ordered chain of ancestor Message-IDs carried in a
// References header.
type References []string

// ParseReferences splits a References header value on whitespace. Order and
// any duplicates already present are kept.
func ParseReferences(value string) References {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return nil
	}
	return References(fields)
}

// Contains reports whether id is already part of the chain.
func (r References) Contains(id string) bool {
	for _, ref := range r {
		if ref == id {
			return true
		}
	}
	return false
}

// AppendIfAbsent returns the chain with id appended at the end, unless id is
// empty or already present. The receiver is not modified.
func (r References) AppendIfAbsent(id string) References {
	if id == "" || r.Contains(id) {
		return r
	}
	out := make(References, len(r), len(r)+1)
	copy(out, r)
	return append(out, id)
}

// String joins the chain with single spaces.
func (r References) String() string {
	return strings.Join(r, " ")
}
