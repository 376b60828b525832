package config

import (
	"fmt"
	"strings"
)

// Options is a loosely typed option bag as decoded from job JSON.
//
// Values keep whatever type encoding/json produced (string, bool, float64,
// map[string]any, nil). Accessors coerce on read so callers do not have to
// repeat type switches at every use site.
type Options map[string]any

// String returns the value under key rendered as a trimmed string.
// Non-string scalars are formatted (true -> "true", 3 -> "3"); missing or
// nil values return def.
func (o Options) String(key, def string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}

// YesNo interprets the value under key as an on/off toggle.
//
// Accepted truthy forms: true, "yes", "true", "1" (case-insensitive,
// whitespace-tolerant), any non-zero number. Missing keys and nulls are
// false.
func (o Options) YesNo(key string) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "true", "1":
			return true
		}
		return false
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return false
	}
}

// Map returns the value under key as nested Options, or nil when the key is
// absent or holds a non-object value.
func (o Options) Map(key string) Options {
	switch v := o[key].(type) {
	case map[string]any:
		return Options(v)
	case Options:
		return v
	default:
		return nil
	}
}

// Any returns the raw value under key and whether it was present.
func (o Options) Any(key string) (any, bool) {
	v, ok := o[key]
	return v, ok
}
