package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// parseParams turns command-line pairs into call arguments:
//
//	key=value    string
//	key:=json    raw JSON (numbers, booleans, lists)
//	key@=path    file contents, base64 encoded
func parseParams(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		if k, path, ok := strings.Cut(p, "@="); ok {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			out[k] = base64.StdEncoding.EncodeToString(data)
			continue
		}
		if k, raw, ok := strings.Cut(p, ":="); ok {
			var v any
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return nil, fmt.Errorf("%s: invalid JSON: %w", k, err)
			}
			out[k] = v
			continue
		}
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("argument %q: want key=value, key:=json or key@=path", p)
		}
		out[k] = v
	}
	return out, nil
}
