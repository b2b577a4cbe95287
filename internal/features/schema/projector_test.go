package schema

import (
	"reflect"
	"testing"
)

func TestSelectedAttributes(t *testing.T) {
	tests := []struct {
		name string
		tree map[string]any
		want []string
	}{
		{
			name: "flat schema",
			tree: map[string]any{"name": "string", "age": "number"},
			want: []string{"age", "name"},
		},
		{
			name: "nested schema",
			tree: map[string]any{
				"address": map[string]any{"city": "string", "zip": "number"},
			},
			want: []string{"address.city", "address.zip"},
		},
		{
			name: "mixed",
			tree: map[string]any{
				"title":  "string",
				"author": map[string]any{"name": "string"},
			},
			want: []string{"author.name", "title"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectedAttributes(tt.tree)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SelectedAttributes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProject(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
		tree  map[string]any
		want  map[string]any
	}{
		{
			name:  "flat attributes",
			paths: []string{"name", "age"},
			tree: map[string]any{
				"name":    "string",
				"age":     "number",
				"address": map[string]any{"city": "string"},
			},
			want: map[string]any{"name": "string", "age": "number"},
		},
		{
			name:  "nested attributes merge under shared parent",
			paths: []string{"address.city", "address.zip"},
			tree: map[string]any{
				"address": map[string]any{
					"city":   "string",
					"zip":    "number",
					"street": "string",
				},
			},
			want: map[string]any{
				"address": map[string]any{"city": "string", "zip": "number"},
			},
		},
		{
			name:  "unresolvable paths are skipped",
			paths: []string{"title", "missing", "author.missing.deeper"},
			tree:  map[string]any{"title": "string"},
			want:  map[string]any{"title": "string"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project(tt.paths, tt.tree)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Project() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Projecting the paths of an already-projected schema must return the same schema.
func TestProjectIdempotent(t *testing.T) {
	tree := map[string]any{
		"title": "string",
		"author": map[string]any{
			"name": "string",
			"bio":  "string",
		},
		"rating": "number",
	}

	once := Project([]string{"title", "author.name"}, tree)
	twice := Project(SelectedAttributes(once), once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second projection changed the schema: %v != %v", twice, once)
	}
}

// Round-trip: flattening a schema and re-projecting reproduces the schema
// restricted to scalar and object leaves.
func TestRoundTrip(t *testing.T) {
	tree := map[string]any{
		"title":  "string",
		"author": map[string]any{"name": "string"},
	}

	got := Project(SelectedAttributes(tree), tree)
	if !reflect.DeepEqual(got, tree) {
		t.Errorf("round trip = %v, want %v", got, tree)
	}
}

func TestSelectableFields(t *testing.T) {
	tree := map[string]any{
		"title":  "string",
		"author": map[string]any{"name": "string"},
		"tags":   []any{map[string]any{"value": "string"}},
	}

	tests := []struct {
		name      string
		relations []string
		want      []SelectableField
	}{
		{
			name:      "included single relation expands, excluded repeatable drops",
			relations: []string{"author"},
			want: []SelectableField{
				{Field: "author.name", Searchable: true},
				{Field: "title", Searchable: true},
			},
		},
		{
			name:      "included repeatable relation is not searchable",
			relations: []string{"author", "tags"},
			want: []SelectableField{
				{Field: "author.name", Searchable: true},
				{Field: "tags", Searchable: false},
				{Field: "title", Searchable: true},
			},
		},
		{
			name:      "no relations included",
			relations: nil,
			want: []SelectableField{
				{Field: "title", Searchable: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectableFields(tree, tt.relations)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SelectableFields() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromEntry(t *testing.T) {
	entry := map[string]any{
		"potato":     "hello",
		"apple":      5,
		"watermelon": map[string]any{"seeds": map[string]any{"many": true}},
		"banana":     []any{"yellow", "green"},
	}

	want := map[string]any{
		"potato":     "string",
		"apple":      "number",
		"watermelon": map[string]any{"seeds": map[string]any{"many": "boolean"}},
		"banana":     "string[]",
	}

	if got := FromEntry(entry); !reflect.DeepEqual(got, want) {
		t.Errorf("FromEntry() = %v, want %v", got, want)
	}
}
