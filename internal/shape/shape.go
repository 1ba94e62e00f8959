// Package shape reconciles the collections returned by the record store,
// which may arrive as JSON arrays or as keyed objects depending on how dense
// the underlying keys are, into uniform id-keyed mappings.
package shape

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Record is a single decoded JSON object.
type Record = map[string]any

// Normalize converts raw into a mapping of string id to record.
//
// For a mapping, each record is keyed by its idField value when present and
// otherwise by its own key, but only if that key is numeric. For a sequence,
// each record is keyed by its idField value when present and otherwise by its
// index. Non-record items and any other shape of raw are skipped.
func Normalize(raw any, idField string) map[string]Record {
	out := make(map[string]Record)

	switch v := raw.(type) {
	case map[string]Record:
		for key, rec := range v {
			if rec == nil {
				continue
			}
			if id, ok := idOf(rec, idField); ok {
				out[id] = rec
			} else if isDigits(key) {
				out[key] = rec
			}
		}
	case map[string]any:
		for key, item := range v {
			rec, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if id, ok := idOf(rec, idField); ok {
				out[id] = rec
			} else if isDigits(key) {
				out[key] = rec
			}
		}
	case []any:
		for idx, item := range v {
			rec, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if id, ok := idOf(rec, idField); ok {
				out[id] = rec
			} else {
				out[strconv.Itoa(idx)] = rec
			}
		}
	}

	return out
}

// ToMapping performs the same list/mapping reconciliation as Normalize but
// keeps every non-null element regardless of type and never consults an id
// field. It is used for grouping tables whose values are lists of ids or of
// child records.
func ToMapping(raw any) map[string]any {
	out := make(map[string]any)

	switch v := raw.(type) {
	case map[string]any:
		for key, item := range v {
			if item != nil {
				out[key] = item
			}
		}
	case []any:
		for idx, item := range v {
			if item != nil {
				out[strconv.Itoa(idx)] = item
			}
		}
	}

	return out
}

// Sequence returns the non-null elements of raw in order. A mapping is read
// as a sparse array: numeric keys in ascending numeric order, then the
// remaining keys lexically. Scalars yield a single-element sequence.
func Sequence(raw any) []any {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			if item != nil {
				out = append(out, item)
			}
		}
		return out
	case map[string]any:
		keys := SortedKeys(v)
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			if v[k] != nil {
				out = append(out, v[k])
			}
		}
		return out
	default:
		return []any{v}
	}
}

// SortedKeys returns the keys of m with numeric keys first in numeric order,
// followed by the rest in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aErr := strconv.ParseUint(keys[i], 10, 64)
		b, bErr := strconv.ParseUint(keys[j], 10, 64)
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// String renders a scalar JSON value the way it would appear as a key.
// Null and composite values render as "".
func String(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

// FirstString returns the first non-empty stringified value among fields.
func FirstString(rec Record, fields ...string) string {
	for _, f := range fields {
		if s := String(rec[f]); s != "" {
			return s
		}
	}
	return ""
}

func idOf(rec Record, idField string) (string, bool) {
	if idField == "" {
		return "", false
	}
	id := String(rec[idField])
	return id, id != ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
