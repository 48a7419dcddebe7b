// Package models defines the documents the queue kiosk persists.
// JSON field names match the on-disk files written by earlier kiosk releases.
package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Settings is the nested configuration document. Leaves are JSON scalars,
// interior nodes are map[string]any. The shape is fixed by DefaultSettings.
type Settings map[string]any

// Clone returns a deep copy of the settings tree.
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	return Settings(cloneMap(s))
}

// Lookup walks a dotted path ("business_rules.start_number") and returns the
// value found there.
func (s Settings) Lookup(path string) (any, bool) {
	var cur any = map[string]any(s)
	for _, key := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Int returns the integer at path, or def if it is missing or not a number.
func (s Settings) Int(path string, def int) int {
	v, ok := s.Lookup(path)
	if !ok {
		return def
	}
	n, ok := toInt(v)
	if !ok {
		return def
	}
	return n
}

// String returns the string at path, or def.
func (s Settings) String(path, def string) string {
	v, ok := s.Lookup(path)
	if !ok {
		return def
	}
	str, ok := v.(string)
	if !ok {
		return def
	}
	return str
}

// Bool returns the bool at path, or def.
func (s Settings) Bool(path string, def bool) bool {
	v, ok := s.Lookup(path)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// Map returns the sub-document at path. The returned map aliases s.
func (s Settings) Map(path string) (map[string]any, bool) {
	v, ok := s.Lookup(path)
	if !ok {
		return nil, false
	}
	return asMap(v)
}

// Set stores v at path, creating intermediate maps as needed.
func (s Settings) Set(path string, v any) {
	keys := strings.Split(path, ".")
	cur := map[string]any(s)
	for _, key := range keys[:len(keys)-1] {
		next, ok := asMap(cur[key])
		if !ok {
			next = make(map[string]any)
			cur[key] = next
		}
		cur = next
	}
	cur[keys[len(keys)-1]] = v
}

// DeepMerge overlays src onto dst in place. Only keys already present in dst
// are taken from src: maps merge recursively, every other value replaces the
// destination leaf wholesale. A non-map value aimed at a map is not applied;
// its dotted path is returned in skipped. Values copied from src are deep
// copies.
func DeepMerge(dst, src map[string]any) (skipped []string) {
	return deepMerge(dst, src, "", nil)
}

func deepMerge(dst, src map[string]any, prefix string, skipped []string) []string {
	for key, sv := range src {
		dv, ok := dst[key]
		if !ok {
			continue
		}
		dm, dIsMap := asMap(dv)
		sm, sIsMap := asMap(sv)
		switch {
		case dIsMap && sIsMap:
			skipped = deepMerge(dm, sm, prefix+key+".", skipped)
		case dIsMap:
			skipped = append(skipped, prefix+key)
		default:
			dst[key] = cloneValue(sv)
		}
	}
	return skipped
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Settings:
		return map[string]any(m), true
	}
	return nil, false
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Settings:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return int(f), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}
