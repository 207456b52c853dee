package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	args := map[string]any{"folder": "Archive", "empty": "", "num": 3.0}
	assert.Equal(t, "Archive", String(args, "folder", "INBOX"))
	assert.Equal(t, "INBOX", String(args, "empty", "INBOX"))
	assert.Equal(t, "INBOX", String(args, "num", "INBOX"))
	assert.Equal(t, "INBOX", String(args, "missing", "INBOX"))
}

func TestRequiredString(t *testing.T) {
	v, err := RequiredString(map[string]any{"thread_id": "t1"}, "thread_id")
	require.NoError(t, err)
	assert.Equal(t, "t1", v)

	for _, args := range []map[string]any{{}, {"thread_id": "  "}, {"thread_id": 12.0}} {
		_, err := RequiredString(args, "thread_id")
		assert.EqualError(t, err, "'thread_id' is required")
	}
}

func TestBool(t *testing.T) {
	assert.True(t, Bool(map[string]any{"x": true}, "x", false))
	assert.True(t, Bool(map[string]any{"x": "true"}, "x", false))
	assert.False(t, Bool(map[string]any{"x": "nope"}, "x", false))
	assert.True(t, Bool(map[string]any{}, "x", true))
}

func TestInt(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		want    int
		wantErr bool
	}{
		{name: "missing", args: map[string]any{}, want: 10},
		{name: "null", args: map[string]any{"limit": nil}, want: 10},
		{name: "json number", args: map[string]any{"limit": 25.0}, want: 25},
		{name: "int", args: map[string]any{"limit": 7}, want: 7},
		{name: "string", args: map[string]any{"limit": "5"}, want: 5},
		{name: "empty string", args: map[string]any{"limit": ""}, want: 10},
		{name: "fraction", args: map[string]any{"limit": 2.5}, wantErr: true},
		{name: "garbage", args: map[string]any{"limit": "ten"}, wantErr: true},
		{name: "wrong type", args: map[string]any{"limit": true}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Int(tt.args, "limit", 10)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStringList(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    []string
		wantErr bool
	}{
		{name: "single", value: "a@example.com", want: []string{"a@example.com"}},
		{name: "comma separated", value: "a@example.com, b@example.com,,", want: []string{"a@example.com", "b@example.com"}},
		{name: "quoted comma", value: `"Doe, Jane" <jane@example.com>, b@example.com`, want: []string{`"Doe, Jane" <jane@example.com>`, "b@example.com"}},
		{name: "array", value: []any{"a@example.com", "b@example.com, c@example.com"}, want: []string{"a@example.com", "b@example.com", "c@example.com"}},
		{name: "string slice", value: []string{"a@example.com"}, want: []string{"a@example.com"}},
		{name: "blank", value: " ", want: nil},
		{name: "bad element", value: []any{"a@example.com", 3.0}, wantErr: true},
		{name: "bad type", value: 3.0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StringList(map[string]any{"to": tt.value}, "to")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequiredStringList(t *testing.T) {
	_, err := RequiredStringList(map[string]any{}, "to")
	assert.EqualError(t, err, "'to' is required")
	_, err = RequiredStringList(map[string]any{"to": ", ,"}, "to")
	assert.Error(t, err)
}
