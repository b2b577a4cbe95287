package schema

import "sort"

// A field schema is a nested map: a string leaf is an index type marker
// ("string", "number", "boolean", "string[]", ...), a nested map is a
// relation's sub-schema and a slice marks a repeatable relation.
//
// Keys are walked in sorted order so every derivation is deterministic.

// SelectedAttributes flattens a field schema into dotted leaf paths.
// A nested map contributes "parent.child" for each leaf under it; a scalar
// leaf contributes its own key.
func SelectedAttributes(tree map[string]any) []string {
	var paths []string
	for _, key := range sortedKeys(tree) {
		switch v := tree[key].(type) {
		case map[string]any:
			for _, sub := range SelectedAttributes(v) {
				paths = append(paths, key+"."+sub)
			}
		default:
			paths = append(paths, key)
		}
	}
	return paths
}

// Project copies only the addressed leaves of tree into a fresh nested map,
// merging siblings under a shared parent. Paths that do not resolve are
// skipped so a stale selection never fails a sync.
func Project(paths []string, tree map[string]any) map[string]any {
	out := make(map[string]any)

	for _, path := range paths {
		src := tree
		dst := out
		segments := splitPath(path)

		for i, seg := range segments {
			val, ok := src[seg]
			if !ok {
				break
			}

			if i == len(segments)-1 {
				dst[seg] = val
				break
			}

			sub, ok := val.(map[string]any)
			if !ok {
				break
			}

			next, ok := dst[seg].(map[string]any)
			if !ok {
				next = make(map[string]any)
				dst[seg] = next
			}
			src = sub
			dst = next
		}
	}

	return out
}

// SelectableField is the admin-UI view of one indexable attribute.
type SelectableField struct {
	Field      string `json:"field"`
	Searchable bool   `json:"searchable"`
}

// SelectableFields expands a content type's field tree into the flat list the
// admin UI offers for attribute selection. Relation fields only surface when
// their key is in includedRelations: single relations expand into one
// searchable entry per sub-key, repeatable relations collapse into one
// non-searchable entry. Repeatable relations outside includedRelations are
// dropped entirely.
func SelectableFields(tree map[string]any, includedRelations []string) []SelectableField {
	included := make(map[string]bool, len(includedRelations))
	for _, rel := range includedRelations {
		included[rel] = true
	}

	var fields []SelectableField
	for _, key := range sortedKeys(tree) {
		switch v := tree[key].(type) {
		case map[string]any:
			if !included[key] {
				continue
			}
			for _, sub := range sortedKeys(v) {
				fields = append(fields, SelectableField{Field: key + "." + sub, Searchable: true})
			}
		case []any:
			if !included[key] {
				continue
			}
			fields = append(fields, SelectableField{Field: key, Searchable: false})
		default:
			fields = append(fields, SelectableField{Field: key, Searchable: true})
		}
	}
	return fields
}

// FromEntry derives a field schema from the shape of one source entry.
// Slices of scalars become "<type>[]", nested objects recurse, anything else
// falls back to "string".
func FromEntry(entry map[string]any) map[string]any {
	out := make(map[string]any, len(entry))
	for key, val := range entry {
		out[key] = markerFor(val)
	}
	return out
}

func markerFor(val any) any {
	switch v := val.(type) {
	case bool:
		return "boolean"
	case int, int32, int64, float32, float64:
		return "number"
	case string:
		return "string"
	case map[string]any:
		return FromEntry(v)
	case []any:
		if len(v) == 0 {
			return "string[]"
		}
		if m, ok := markerFor(v[0]).(string); ok {
			return m + "[]"
		}
		return "string[]"
	default:
		return "string"
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func splitPath(path string) []string {
	var segments []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			segments = append(segments, path[start:i])
			start = i + 1
		}
	}
	return append(segments, path[start:])
}
