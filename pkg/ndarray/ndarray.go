// Package ndarray provides a dense, arbitrary-rank numeric array that carries
// its own dtype and shape, so it can be serialized without external hints.
//
// Element data is always stored little-endian in row-major order, independent
// of the host byte order.
package ndarray

import (
	"bytes"
	"errors"
	"fmt"
	"math"
)

// DType identifies the element type of an Array using numpy-style type strings.
type DType string

const (
	Float32 DType = "<f4"
	Float64 DType = "<f8"
	Int8    DType = "|i1"
	Int16   DType = "<i2"
	Int32   DType = "<i4"
	Int64   DType = "<i8"
	Uint8   DType = "|u1"
	Uint16  DType = "<u2"
	Uint32  DType = "<u4"
	Uint64  DType = "<u8"
	Bool    DType = "|b1"
)

// Errors
var (
	ErrUnsupportedDType = errors.New("ndarray: unsupported dtype")
	ErrShapeMismatch    = errors.New("ndarray: data does not match shape")
	ErrDTypeMismatch    = errors.New("ndarray: dtype mismatch")
)

var itemSizes = map[DType]int{
	Float32: 4, Float64: 8,
	Int8: 1, Int16: 2, Int32: 4, Int64: 8,
	Uint8: 1, Uint16: 2, Uint32: 4, Uint64: 8,
	Bool: 1,
}

var dtypeNames = map[DType]string{
	Float32: "float32", Float64: "float64",
	Int8: "int8", Int16: "int16", Int32: "int32", Int64: "int64",
	Uint8: "uint8", Uint16: "uint16", Uint32: "uint32", Uint64: "uint64",
	Bool: "bool",
}

// ParseDType accepts either a type string ("<f4") or a name ("float32").
func ParseDType(s string) (DType, error) {
	if _, ok := itemSizes[DType(s)]; ok {
		return DType(s), nil
	}
	for dt, name := range dtypeNames {
		if name == s {
			return dt, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedDType, s)
}

// ItemSize returns the element size in bytes, or 0 for an unknown dtype.
func (d DType) ItemSize() int {
	return itemSizes[d]
}

// Valid reports whether d is a supported dtype.
func (d DType) Valid() bool {
	_, ok := itemSizes[d]
	return ok
}

// Name returns the readable dtype name, e.g. "float32".
func (d DType) Name() string {
	if name, ok := dtypeNames[d]; ok {
		return name
	}
	return string(d)
}

// Array is a dense row-major array. A zero-length Shape denotes a scalar.
type Array struct {
	DType DType
	Shape []int
	Data  []byte
}

// NumElements returns the element count for shape.
func NumElements(shape []int) (int, error) {
	n := 1
	for _, dim := range shape {
		if dim < 0 {
			return 0, fmt.Errorf("%w: negative dimension %d", ErrShapeMismatch, dim)
		}
		if dim != 0 && n > math.MaxInt/dim {
			return 0, fmt.Errorf("%w: shape %v overflows", ErrShapeMismatch, shape)
		}
		n *= dim
	}
	return n, nil
}

// ByteLen returns the data size of an array of dtype with shape.
func ByteLen(dtype DType, shape []int) (int, error) {
	size := dtype.ItemSize()
	if size == 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedDType, dtype)
	}
	n, err := NumElements(shape)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt/size {
		return 0, fmt.Errorf("%w: shape %v overflows", ErrShapeMismatch, shape)
	}
	return n * size, nil
}

// New validates that data holds exactly shape's elements of dtype and wraps it.
// The data slice is not copied.
func New(dtype DType, shape []int, data []byte) (*Array, error) {
	want, err := ByteLen(dtype, shape)
	if err != nil {
		return nil, err
	}
	if len(data) != want {
		return nil, fmt.Errorf("%w: shape %v needs %d bytes, got %d", ErrShapeMismatch, shape, want, len(data))
	}
	if data == nil {
		data = []byte{}
	}
	return &Array{
		DType: dtype,
		Shape: append([]int{}, shape...),
		Data:  data,
	}, nil
}

// Len returns the number of elements.
func (a *Array) Len() int {
	n, _ := NumElements(a.Shape)
	return n
}

// Rank returns the number of dimensions.
func (a *Array) Rank() int {
	return len(a.Shape)
}

// Equal reports whether both arrays have the same dtype, shape and bytes.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.DType != b.DType || len(a.Shape) != len(b.Shape) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	return bytes.Equal(a.Data, b.Data)
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	return &Array{
		DType: a.DType,
		Shape: append([]int{}, a.Shape...),
		Data:  append([]byte{}, a.Data...),
	}
}

func (a *Array) String() string {
	return fmt.Sprintf("ndarray(%s%v)", a.DType.Name(), a.Shape)
}
