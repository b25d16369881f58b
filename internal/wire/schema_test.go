package wire

import "testing"

func TestSchemaValidate(t *testing.T) {
	schema := Schema{ID: "calc.params.v1", Fields: map[string]FieldType{
		"a": KindF64,
		"b": KindF64,
	}}

	ok := NewMap(map[string]Value{"a": NewF64(1), "b": NewF64(2), "extra": NewBool(true)})
	if err := schema.Validate(ok); err != nil {
		t.Fatalf("expected valid value to pass, got %v", err)
	}

	missing := NewMap(map[string]Value{"a": NewF64(1)})
	if err := schema.Validate(missing); err == nil {
		t.Fatal("expected missing field to fail validation")
	}

	wrongType := NewMap(map[string]Value{"a": NewF64(1), "b": NewString("nope")})
	if err := schema.Validate(wrongType); err == nil {
		t.Fatal("expected wrong field kind to fail validation")
	}

	notMap := NewI32(7)
	if err := schema.Validate(notMap); err == nil {
		t.Fatal("expected non-map value to fail validation")
	}
}
