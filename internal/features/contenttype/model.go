package contenttype

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeTextArea    FieldType = "textarea"
	FieldTypeNumber      FieldType = "number"
	FieldTypeCurrency    FieldType = "currency"
	FieldTypeDate        FieldType = "date"
	FieldTypeBoolean     FieldType = "boolean"
	FieldTypeEmail       FieldType = "email"
	FieldTypeURL         FieldType = "url"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiSelect FieldType = "multiselect"
	FieldTypeRelation    FieldType = "relation"
)

// Field describes one attribute of a content type. Relation fields carry the
// related sub-fields inline; Repeatable marks a to-many relation.
type Field struct {
	Name       string    `json:"name" bson:"name"`
	Label      string    `json:"label" bson:"label"`
	Type       FieldType `json:"type" bson:"type"`
	Repeatable bool      `json:"repeatable,omitempty" bson:"repeatable,omitempty"`
	Fields     []Field   `json:"fields,omitempty" bson:"fields,omitempty"`
}

// ContentType is one source entity descriptor. Name doubles as the mongo
// collection the entries live in.
type ContentType struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Label     string             `json:"label" bson:"label"`
	Fields    []Field            `json:"fields" bson:"fields"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// IsRelation reports whether the field holds related sub-objects.
func (f Field) IsRelation() bool {
	return f.Type == FieldTypeRelation || len(f.Fields) > 0
}

// TypeMarker maps a field type to the remote index type marker.
func (f Field) TypeMarker() string {
	switch f.Type {
	case FieldTypeNumber, FieldTypeCurrency:
		return "number"
	case FieldTypeBoolean:
		return "boolean"
	case FieldTypeMultiSelect:
		return "string[]"
	default:
		return "string"
	}
}

// SchemaTree renders the content type as a nested field-type tree: scalar
// fields become type markers, single relations nested maps and repeatable
// relations single-element slices.
func (ct *ContentType) SchemaTree() map[string]any {
	return fieldsTree(ct.Fields)
}

func fieldsTree(fields []Field) map[string]any {
	tree := make(map[string]any, len(fields))
	for _, f := range fields {
		if f.IsRelation() {
			sub := fieldsTree(f.Fields)
			if f.Repeatable {
				tree[f.Name] = []any{sub}
			} else {
				tree[f.Name] = sub
			}
			continue
		}
		tree[f.Name] = f.TypeMarker()
	}
	return tree
}

// Relations lists the relation-capable fields of the content type.
func (ct *ContentType) Relations() []Field {
	var rels []Field
	for _, f := range ct.Fields {
		if f.IsRelation() {
			rels = append(rels, f)
		}
	}
	return rels
}
