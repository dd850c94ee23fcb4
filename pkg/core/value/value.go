package value

import (
	"fmt"
	"math"
)

// Type represents the tag in the Value tagged union.
type Type uint8

const (
	TypeVoid Type = iota
	TypeScalar
	TypeBuffer
)

func (t Type) String() string {
	switch t {
	case TypeVoid:
		return "void"
	case TypeScalar:
		return "scalar"
	case TypeBuffer:
		return "buffer"
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Value is a VM operand: a single scalar or a sample buffer.
type Value struct {
	Type   Type
	Scalar float32
	Buffer []float32
}

// Scalar wraps a scalar value.
func Scalar(x float32) Value {
	return Value{Type: TypeScalar, Scalar: x}
}

// Buffer wraps a sample buffer. The buffer is not copied.
func Buffer(b []float32) Value {
	return Value{Type: TypeBuffer, Buffer: b}
}

// Copy returns a value whose buffer, if any, does not alias v's.
func (v Value) Copy() Value {
	if v.Type != TypeBuffer {
		return v
	}
	b := make([]float32, len(v.Buffer))
	copy(b, v.Buffer)
	return Value{Type: TypeBuffer, Buffer: b}
}

// Format returns a short string representation of the value.
func (v Value) Format() string {
	switch v.Type {
	case TypeScalar:
		return fmt.Sprintf("%g", v.Scalar)
	case TypeBuffer:
		peak := float32(0)
		for _, x := range v.Buffer {
			if a := float32(math.Abs(float64(x))); a > peak {
				peak = a
			}
		}
		return fmt.Sprintf("buffer[%d] peak=%g", len(v.Buffer), peak)
	case TypeVoid:
		return "void"
	default:
		return fmt.Sprintf("%v", v.Type)
	}
}
