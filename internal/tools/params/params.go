package params

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// String returns args[name] when it is a non-empty string, else def.
func String(args map[string]any, name, def string) string {
	if v, ok := args[name].(string); ok && v != "" {
		return v
	}
	return def
}

// RequiredString returns args[name] or an error naming the parameter.
func RequiredString(args map[string]any, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("'%s' is required", name)
	}
	return v, nil
}

func Bool(args map[string]any, name string, def bool) bool {
	switch v := args[name].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Int accepts JSON numbers and numeric strings. Fractions are rejected.
func Int(args map[string]any, name string, def int) (int, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("'%s' must be an integer", name)
		}
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case string:
		if v == "" {
			return def, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("'%s' must be an integer", name)
		}
		return n, nil
	}
	return 0, fmt.Errorf("'%s' must be an integer", name)
}

// StringList parses a parameter given as a string, a comma-separated string
// or an array of strings. Blank entries are dropped; a missing parameter
// yields nil.
func StringList(args map[string]any, name string) ([]string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return nil, nil
	}
	var out []string
	switch v := raw.(type) {
	case string:
		out = splitList(v)
	case []string:
		for _, s := range v {
			out = append(out, splitList(s)...)
		}
	case []any:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("'%s'[%d] must be a string", name, i)
			}
			out = append(out, splitList(s)...)
		}
	default:
		return nil, fmt.Errorf("'%s' must be a string or array of strings", name)
	}
	return out, nil
}

// RequiredStringList is StringList that rejects an empty result.
func RequiredStringList(args map[string]any, name string) ([]string, error) {
	out, err := StringList(args, name)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("'%s' is required", name)
	}
	return out, nil
}

// splitList splits on commas outside double quotes, so display names like
// "Doe, Jane" <jane@example.com> survive.
func splitList(s string) []string {
	var out []string
	var cur strings.Builder
	quoted := false
	flush := func() {
		if item := strings.TrimSpace(cur.String()); item != "" {
			out = append(out, item)
		}
		cur.Reset()
	}
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			cur.WriteRune(r)
		case r == ',' && !quoted:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}
