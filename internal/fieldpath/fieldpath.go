// Package fieldpath extracts numeric values from JSON payloads using a dot
// path configured per sensor (e.g. "decoded_payload.temperature"). Paths are
// compiled once at subscription time so a misconfigured sensor fails fast
// instead of silently dropping every reading.
package fieldpath

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Path is a compiled dot path.
type Path struct {
	raw      string
	segments []string
}

// Compile validates and compiles a dot path. Empty paths and paths with empty
// segments ("a..b", ".a", "a.") are rejected.
func Compile(raw string) (*Path, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("field path is empty")
	}
	segments := strings.Split(raw, ".")
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			return nil, fmt.Errorf("field path %q has an empty segment", raw)
		}
	}
	return &Path{raw: raw, segments: segments}, nil
}

// String returns the original path expression.
func (p *Path) String() string {
	return p.raw
}

// Extract walks the decoded payload and returns the numeric value at the path.
// The second return is false when the path resolves to nothing or to a
// non-numeric value; such messages are dropped by the caller.
func (p *Path) Extract(payload map[string]interface{}) (float64, bool) {
	var current interface{} = payload
	for _, seg := range p.segments {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return 0, false
		}
		current, ok = obj[seg]
		if !ok {
			return 0, false
		}
	}
	return toFloat(current)
}

// ExtractJSON decodes raw JSON and extracts the value in one call.
func (p *Path) ExtractJSON(raw []byte) (float64, bool) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, false
	}
	return p.Extract(payload)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
