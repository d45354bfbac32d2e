// Package record holds the record shape shared by the query engine, the
// record source and the locator.
//
// A [Record] is a decoded JSON object. Reference columns (fields that point
// at another entity, like an assignee) arrive either as a bare id or as an
// expanded object; [Normalize] folds both into a [Ref] so downstream code
// only ever sees one shape.
package record

import (
	"strconv"
	"strings"
	"time"
)

// FieldID is the field holding a record's stable identifier.
const FieldID = "id"

// Record is one task row as returned by the record source.
// The core never mutates a Record in place.
type Record map[string]any

// Ref is a normalized reference field. ID is always set; Fields holds the
// expanded object (including "id") when the source returned one.
type Ref struct {
	ID     string
	Fields map[string]any
}

// ID returns the record's identifier, stringified. Numeric ids from JSON
// decode as float64 and are rendered without a fraction.
func (r Record) ID() string {
	v, ok := r[FieldID]
	if !ok || v == nil {
		return ""
	}

	return String(v)
}

// Lookup resolves a dotted path ("assignedTo.team"). Any missing or nil
// intermediate yields (nil, false).
func (r Record) Lookup(path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	var cur any = map[string]any(r)

	for part := range strings.SplitSeq(path, ".") {
		next, ok := step(cur, part)
		if !ok || next == nil {
			return nil, false
		}

		cur = next
	}

	return cur, true
}

func step(cur any, key string) (any, bool) {
	switch v := cur.(type) {
	case map[string]any:
		next, ok := v[key]

		return next, ok
	case Record:
		next, ok := v[key]

		return next, ok
	case Ref:
		if key == FieldID {
			return v.ID, true
		}

		next, ok := v.Fields[key]

		return next, ok
	default:
		return nil, false
	}
}

// Normalize returns a shallow copy of raw with every field named in refFields
// converted to a [Ref]. Values that cannot be interpreted as a reference
// (no id) are dropped so they read as empty.
func Normalize(raw map[string]any, refFields []string) Record {
	out := make(Record, len(raw))
	for k, v := range raw {
		out[k] = v
	}

	for _, field := range refFields {
		v, ok := out[field]
		if !ok || v == nil {
			continue
		}

		ref, ok := toRef(v)
		if !ok {
			delete(out, field)

			continue
		}

		out[field] = ref
	}

	return out
}

func toRef(v any) (Ref, bool) {
	switch t := v.(type) {
	case Ref:
		return t, t.ID != ""
	case string:
		if t == "" {
			return Ref{}, false
		}

		return Ref{ID: t}, true
	case float64:
		return Ref{ID: String(t)}, true
	case map[string]any:
		id, ok := t[FieldID]
		if !ok || id == nil {
			return Ref{}, false
		}

		return Ref{ID: String(id), Fields: t}, true
	default:
		return Ref{}, false
	}
}

// String renders a field value the way filters and search compare it:
// numbers in shortest form, lists comma-joined, references by id.
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case Ref:
		return t.ID
	case time.Time:
		return t.Format(time.RFC3339)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = String(e)
		}

		return strings.Join(parts, ",")
	case []string:
		return strings.Join(t, ",")
	case map[string]any:
		if id, ok := t[FieldID]; ok {
			return String(id)
		}

		return ""
	default:
		return ""
	}
}

// Number reports v as a float64 when it is numeric.
func Number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

// IsEmpty reports whether v counts as empty for IS_EMPTY/IS_NOT_EMPTY.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	default:
		return false
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// ParseTime parses a timestamp field. time.Time values pass through.
func ParseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}

		for _, layout := range dateLayouts {
			parsed, err := time.Parse(layout, s)
			if err == nil {
				return parsed, true
			}
		}

		return time.Time{}, false
	case float64:
		return time.UnixMilli(int64(t)).UTC(), true
	default:
		return time.Time{}, false
	}
}

// Elements returns the members of a list-valued field, or nil.
func Elements(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}

		return out
	default:
		return nil
	}
}

// Contains reports whether records holds a record with the given id.
func Contains(records []Record, id string) bool {
	for _, r := range records {
		if r.ID() == id {
			return true
		}
	}

	return false
}
