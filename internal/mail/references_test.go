package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReferences(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  References
	}{
		{name: "empty", value: "", want: nil},
		{name: "whitespace only", value: " \t\r\n ", want: nil},
		{name: "single", value: "<a@x>", want: References{"<a@x>"}},
		{name: "folded header", value: "<a@x>\r\n <b@x>\t<c@x>", want: References{"<a@x>", "<b@x>", "<c@x>"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseReferences(tt.value))
		})
	}
}

func TestReferencesAppendIfAbsent(t *testing.T) {
	base := References{"<a@x>", "<b@x>"}

	appended := base.AppendIfAbsent("<c@x>")
	assert.Equal(t, "<a@x> <b@x> <c@x>", appended.String())
	assert.Equal(t, References{"<a@x>", "<b@x>"}, base, "receiver must not change")

	assert.Equal(t, base, base.AppendIfAbsent("<b@x>"))
	assert.Equal(t, base, base.AppendIfAbsent(""))

	var empty References
	assert.Equal(t, "<z@x>", empty.AppendIfAbsent("<z@x>").String())
	assert.True(t, appended.Contains("<c@x>"))
	assert.False(t, base.Contains("<c@x>"))
}
