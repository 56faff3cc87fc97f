// Package param models typed parameter values and the request/response
// messages that carry them between client and host.
package param

import (
	"fmt"
	"math"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt32
	KindFloat32
	KindString
	KindInt32Array
	KindFloat32Array
	KindStringArray
)

func (k Kind) Valid() bool {
	return k >= KindInt32 && k <= KindStringArray
}

func (k Kind) IsArray() bool {
	return k >= KindInt32Array && k <= KindStringArray
}

// Elem returns the scalar kind of an array kind, or k itself for scalars.
func (k Kind) Elem() Kind {
	if k.IsArray() {
		return k - 3
	}
	return k
}

// Array returns the array kind for a scalar kind, or k itself for arrays.
func (k Kind) Array() Kind {
	if k >= KindInt32 && k <= KindString {
		return k + 3
	}
	return k
}

func (k Kind) String() string {
	switch k {
	case KindInt32:
		return "int32"
	case KindFloat32:
		return "float32"
	case KindString:
		return "string"
	case KindInt32Array:
		return "int32[]"
	case KindFloat32Array:
		return "float32[]"
	case KindStringArray:
		return "string[]"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a tagged union over the supported parameter shapes. The zero
// Value is invalid. Fields are unexported so the tag is fixed at construction.
type Value struct {
	kind   Kind
	ints   []int32
	floats []float32
	strs   []string
}

func Int32(v int32) Value {
	return Value{kind: KindInt32, ints: []int32{v}}
}

func Float32(v float32) Value {
	return Value{kind: KindFloat32, floats: []float32{v}}
}

func String(v string) Value {
	return Value{kind: KindString, strs: []string{v}}
}

func Int32s(vs []int32) Value {
	return Value{kind: KindInt32Array, ints: append([]int32(nil), vs...)}
}

func Float32s(vs []float32) Value {
	return Value{kind: KindFloat32Array, floats: append([]float32(nil), vs...)}
}

func Strings(vs []string) Value {
	return Value{kind: KindStringArray, strs: append([]string(nil), vs...)}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsValid() bool {
	return v.kind.Valid()
}

// Len returns the element count; scalars report 1.
func (v Value) Len() int {
	switch v.kind.Elem() {
	case KindInt32:
		return len(v.ints)
	case KindFloat32:
		return len(v.floats)
	case KindString:
		return len(v.strs)
	default:
		return 0
	}
}

func (v Value) AsInt32() (int32, bool) {
	if v.kind != KindInt32 {
		return 0, false
	}
	return v.ints[0], true
}

func (v Value) AsFloat32() (float32, bool) {
	if v.kind != KindFloat32 {
		return 0, false
	}
	return v.floats[0], true
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.strs[0], true
}

func (v Value) AsInt32s() ([]int32, bool) {
	if v.kind != KindInt32Array {
		return nil, false
	}
	return append([]int32(nil), v.ints...), true
}

func (v Value) AsFloat32s() ([]float32, bool) {
	if v.kind != KindFloat32Array {
		return nil, false
	}
	return append([]float32(nil), v.floats...), true
}

func (v Value) AsStrings() ([]string, bool) {
	if v.kind != KindStringArray {
		return nil, false
	}
	return append([]string(nil), v.strs...), true
}

// Equal compares kind and elements; floats compare by bit pattern.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.Len() != o.Len() {
		return false
	}
	for i := range v.ints {
		if v.ints[i] != o.ints[i] {
			return false
		}
	}
	for i := range v.floats {
		if math.Float32bits(v.floats[i]) != math.Float32bits(o.floats[i]) {
			return false
		}
	}
	for i := range v.strs {
		if v.strs[i] != o.strs[i] {
			return false
		}
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case KindInt32:
		return fmt.Sprintf("%d", v.ints[0])
	case KindFloat32:
		return fmt.Sprintf("%g", v.floats[0])
	case KindString:
		return fmt.Sprintf("%q", v.strs[0])
	case KindInt32Array:
		return fmt.Sprintf("%v", v.ints)
	case KindFloat32Array:
		return fmt.Sprintf("%v", v.floats)
	case KindStringArray:
		return fmt.Sprintf("%q", v.strs)
	default:
		return "<invalid>"
	}
}
