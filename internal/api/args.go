package api

import (
	"encoding/base64"
	"fmt"
)

// args are the decoded arguments of a Call. Numbers arrive as float64 and
// lists as []any, the shapes structpb produces.
type args map[string]any

func (a args) str(key string) string {
	return str(a[key])
}

func (a args) boolean(key string) bool {
	b, _ := a[key].(bool)
	return b
}

func (a args) int32(key string) int32 {
	n, _ := a[key].(float64)
	return int32(n)
}

func (a args) strs(key string) []string {
	switch v := a[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// bytes decodes a base64 argument.
func (a args) bytes(key string) ([]byte, error) {
	s := a.str(key)
	if s == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
