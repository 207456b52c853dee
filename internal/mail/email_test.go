package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEmail(t *testing.T) {
	headers := HeaderSet{
		{Name: "From", Value: "a@x.io"},
		{Name: "Subject", Value: "Hi"},
		{Name: "Date", Value: "Mon, 2 Jan 2006 15:04:05 -0700"},
	}

	tests := []struct {
		name    string
		root    *Part
		snippet string
		want    string
	}{
		{name: "body from tree", root: NewLeaf("text/plain", []byte("text")), snippet: "snip", want: "text"},
		{name: "snippet fallback", root: NewLeaf("image/png", []byte{1}), snippet: "snip", want: "snip"},
		{name: "nothing available", root: nil, snippet: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewEmail("m1", "t1", headers, tt.root, tt.snippet)
			assert.Equal(t, Email{
				ID:       "m1",
				ThreadID: "t1",
				From:     "a@x.io",
				Subject:  "Hi",
				Date:     "Mon, 2 Jan 2006 15:04:05 -0700",
				Body:     tt.want,
			}, got)
		})
	}
}
