package domain

import (
	"reflect"
)

// Reducer merges a partial update for a single field into its existing value.
// Reducers must be pure: no I/O, no mutation of either argument.
type Reducer func(existing, update any) any

// Annotation describes one workflow state field: its initial value and how
// partial updates to it combine with the existing value.
type Annotation struct {
	// Default seeds the field when a run starts. Slices and maps are copied
	// on seeding so runs never share backing storage.
	Default any

	// Reducer combines an update with the existing value. Nil means Replace.
	Reducer Reducer
}

// Annotate builds an Annotation. A nil reducer falls back to Replace.
func Annotate(defaultValue any, reducer Reducer) Annotation {
	return Annotation{Default: defaultValue, Reducer: reducer}
}

// Schema maps workflow field names to their annotations.
type Schema map[string]Annotation

// Defaults produces a fresh Values map seeded from the annotations.
func (s Schema) Defaults() map[string]any {
	values := make(map[string]any, len(s))
	for name, ann := range s {
		values[name] = copyValue(ann.Default)
	}
	return values
}

// Apply merges a partial update into the given values map through each
// field's reducer, returning a new map. Fields with no matching annotation
// fall back to Replace; their names are returned so the caller can warn.
func (s Schema) Apply(values, update map[string]any) (map[string]any, []string) {
	merged := make(map[string]any, len(values)+len(update))
	for k, v := range values {
		merged[k] = v
	}

	var unknown []string
	for name, value := range update {
		ann, ok := s[name]
		if !ok {
			unknown = append(unknown, name)
			merged[name] = value
			continue
		}
		reducer := ann.Reducer
		if reducer == nil {
			reducer = Replace
		}
		merged[name] = reducer(merged[name], value)
	}
	return merged, unknown
}

// Replace is the default reducer: the update wins unconditionally.
func Replace(_, update any) any {
	return update
}

// Concat appends the update to the existing slice, preserving order.
// Non-slice operands are treated as single-element slices.
func Concat(existing, update any) any {
	out := append([]any{}, toSlice(existing)...)
	return append(out, toSlice(update)...)
}

// Merge performs a shallow map merge; update keys overwrite existing keys.
func Merge(existing, update any) any {
	base, _ := existing.(map[string]any)
	delta, _ := update.(map[string]any)

	merged := make(map[string]any, len(base)+len(delta))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range delta {
		merged[k] = v
	}
	return merged
}

// MergeByID upserts update items into the existing slice by their "id" key.
// A matching id replaces the existing item in place (array order preserved);
// a new id appends. Items without an id are appended as-is.
func MergeByID(existing, update any) any {
	out := append([]any{}, toSlice(existing)...)

	for _, item := range toSlice(update) {
		id, ok := itemID(item)
		if !ok {
			out = append(out, item)
			continue
		}

		replaced := false
		for i, current := range out {
			if currentID, ok := itemID(current); ok && currentID == id {
				out[i] = item
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, item)
		}
	}
	return out
}

// itemID extracts the "id" key from a map-shaped item.
func itemID(item any) (string, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return "", false
	}
	id, ok := m["id"].(string)
	return id, ok
}

// toSlice normalizes a value into []any. Nil becomes an empty slice and a
// scalar becomes a single-element slice, so Concat tolerates lazy callers.
func toSlice(v any) []any {
	if v == nil {
		return nil
	}
	if s, ok := v.([]any); ok {
		return s
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}

// copyValue shallow-copies slices and maps so schema defaults are not shared
// between runs. Scalars pass through untouched.
func copyValue(v any) any {
	switch val := v.(type) {
	case []any:
		return append([]any{}, val...)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = item
		}
		return out
	default:
		return v
	}
}
