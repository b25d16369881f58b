package wire

import "fmt"

// FieldType mirrors the Value Kind set for declaring a Schema's shape.
type FieldType = Kind

// Schema is an optional, opaque-by-default shape declaration a registry may
// hold under a schema_id (spec.md §3, §9 Open Questions). WIND never wires
// schema validation onto the publish hot path automatically; a caller opts
// in by calling Validate explicitly against a Schema it looked up.
type Schema struct {
	ID     string
	Fields map[string]FieldType
}

// Validate checks that v is a Map whose declared fields are all present
// and kind-correct. Extra fields in v beyond the schema are tolerated.
func (s Schema) Validate(v Value) error {
	if v.Kind != KindMap {
		return fmt.Errorf("%w: schema %q expects a map value, got %s", ErrSchema, s.ID, v.Kind)
	}
	for name, wantKind := range s.Fields {
		field, ok := v.Map[name]
		if !ok {
			return fmt.Errorf("%w: schema %q missing required field %q", ErrSchema, s.ID, name)
		}
		if field.Kind != wantKind {
			return fmt.Errorf("%w: schema %q field %q wants %s, got %s", ErrTypeMismatch, s.ID, name, wantKind, field.Kind)
		}
	}
	return nil
}
