// Package wire implements WIND's length-framed binary wire protocol: the
// WindValue tagged union, the message envelope, and the deterministic
// codec used to move both across a TCP stream.
package wire

import "fmt"

// Kind tags the concrete type carried by a Value.
type Kind byte

const (
	KindBool Kind = iota + 1
	KindI32
	KindI64
	KindF32
	KindF64
	KindString
	KindBytes
	KindArray
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

// Value is the tagged-union data model WIND moves between publishers,
// subscribers, and RPC callers. Only one of the typed fields is meaningful,
// selected by Kind.
type Value struct {
	Kind    Kind
	Bool    bool
	I32     int32
	I64     int64
	F32     float32
	F64     float64
	Str     string
	Bytes   []byte
	Array   []Value
	Map     map[string]Value
}

func NewBool(v bool) Value                 { return Value{Kind: KindBool, Bool: v} }
func NewI32(v int32) Value                 { return Value{Kind: KindI32, I32: v} }
func NewI64(v int64) Value                 { return Value{Kind: KindI64, I64: v} }
func NewF32(v float32) Value               { return Value{Kind: KindF32, F32: v} }
func NewF64(v float64) Value               { return Value{Kind: KindF64, F64: v} }
func NewString(v string) Value             { return Value{Kind: KindString, Str: v} }
func NewBytes(v []byte) Value              { return Value{Kind: KindBytes, Bytes: v} }
func NewArray(v []Value) Value             { return Value{Kind: KindArray, Array: v} }
func NewMap(v map[string]Value) Value      { return Value{Kind: KindMap, Map: v} }

// Equal reports whether two Values are structurally identical. Map key
// iteration order is immaterial; only the key set and values matter.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.Bool == other.Bool
	case KindI32:
		return v.I32 == other.I32
	case KindI64:
		return v.I64 == other.I64
	case KindF32:
		return v.F32 == other.F32
	case KindF64:
		return v.F64 == other.F64
	case KindString:
		return v.Str == other.Str
	case KindBytes:
		return bytesEqual(v.Bytes, other.Bytes)
	case KindArray:
		if len(v.Array) != len(other.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(other.Array[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.Map) != len(other.Map) {
			return false
		}
		for k, val := range v.Map {
			otherVal, ok := other.Map[k]
			if !ok || !val.Equal(otherVal) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
