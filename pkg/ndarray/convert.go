package ndarray

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Numeric lists the Go element types with a direct dtype mapping.
type Numeric interface {
	float32 | float64 | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64
}

// DTypeOf returns the dtype that stores T.
func DTypeOf[T Numeric]() DType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	default:
		return Uint64
	}
}

// FromSlice builds an array from values. Without a shape the result is 1-D.
func FromSlice[T Numeric](values []T, shape ...int) (*Array, error) {
	if len(shape) == 0 {
		shape = []int{len(values)}
	}
	dtype := DTypeOf[T]()
	size := dtype.ItemSize()
	data := make([]byte, len(values)*size)
	le := binary.LittleEndian

	switch v := any(values).(type) {
	case []float32:
		for i, x := range v {
			le.PutUint32(data[i*4:], math.Float32bits(x))
		}
	case []float64:
		for i, x := range v {
			le.PutUint64(data[i*8:], math.Float64bits(x))
		}
	case []int8:
		for i, x := range v {
			data[i] = byte(x)
		}
	case []int16:
		for i, x := range v {
			le.PutUint16(data[i*2:], uint16(x))
		}
	case []int32:
		for i, x := range v {
			le.PutUint32(data[i*4:], uint32(x))
		}
	case []int64:
		for i, x := range v {
			le.PutUint64(data[i*8:], uint64(x))
		}
	case []uint8:
		copy(data, v)
	case []uint16:
		for i, x := range v {
			le.PutUint16(data[i*2:], x)
		}
	case []uint32:
		for i, x := range v {
			le.PutUint32(data[i*4:], x)
		}
	case []uint64:
		for i, x := range v {
			le.PutUint64(data[i*8:], x)
		}
	}

	return New(dtype, shape, data)
}

// Values decodes the elements of a into a new slice. T must match the dtype.
func Values[T Numeric](a *Array) ([]T, error) {
	if want := DTypeOf[T](); a.DType != want {
		return nil, fmt.Errorf("%w: array is %s, requested %s", ErrDTypeMismatch, a.DType.Name(), want.Name())
	}
	want, err := ByteLen(a.DType, a.Shape)
	if err != nil {
		return nil, err
	}
	if len(a.Data) != want {
		return nil, ErrShapeMismatch
	}
	n := want / a.DType.ItemSize()
	out := make([]T, n)
	le := binary.LittleEndian
	d := a.Data

	switch o := any(out).(type) {
	case []float32:
		for i := range o {
			o[i] = math.Float32frombits(le.Uint32(d[i*4:]))
		}
	case []float64:
		for i := range o {
			o[i] = math.Float64frombits(le.Uint64(d[i*8:]))
		}
	case []int8:
		for i := range o {
			o[i] = int8(d[i])
		}
	case []int16:
		for i := range o {
			o[i] = int16(le.Uint16(d[i*2:]))
		}
	case []int32:
		for i := range o {
			o[i] = int32(le.Uint32(d[i*4:]))
		}
	case []int64:
		for i := range o {
			o[i] = int64(le.Uint64(d[i*8:]))
		}
	case []uint8:
		copy(o, d)
	case []uint16:
		for i := range o {
			o[i] = le.Uint16(d[i*2:])
		}
	case []uint32:
		for i := range o {
			o[i] = le.Uint32(d[i*4:])
		}
	case []uint64:
		for i := range o {
			o[i] = le.Uint64(d[i*8:])
		}
	}
	return out, nil
}

// FromBools builds a Bool array.
func FromBools(values []bool, shape ...int) (*Array, error) {
	if len(shape) == 0 {
		shape = []int{len(values)}
	}
	data := make([]byte, len(values))
	for i, b := range values {
		if b {
			data[i] = 1
		}
	}
	return New(Bool, shape, data)
}

// FromValues converts float64 values into an array of the given dtype.
// Integer dtypes truncate toward zero.
func FromValues(dtype DType, shape []int, values []float64) (*Array, error) {
	size := dtype.ItemSize()
	if size == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDType, dtype)
	}
	data := make([]byte, len(values)*size)
	for i, v := range values {
		putElem(dtype, data[i*size:], v)
	}
	return New(dtype, shape, data)
}

// Float64s widens every element to float64, e.g. for JSON output.
func (a *Array) Float64s() []float64 {
	size := a.DType.ItemSize()
	if size == 0 {
		return nil
	}
	n := len(a.Data) / size
	out := make([]float64, n)
	for i := range out {
		out[i] = getElem(a.DType, a.Data[i*size:])
	}
	return out
}

func putElem(dtype DType, b []byte, v float64) {
	le := binary.LittleEndian
	switch dtype {
	case Float32:
		le.PutUint32(b, math.Float32bits(float32(v)))
	case Float64:
		le.PutUint64(b, math.Float64bits(v))
	case Int8:
		b[0] = byte(int8(v))
	case Int16:
		le.PutUint16(b, uint16(int16(v)))
	case Int32:
		le.PutUint32(b, uint32(int32(v)))
	case Int64:
		le.PutUint64(b, uint64(int64(v)))
	case Uint8:
		b[0] = uint8(v)
	case Uint16:
		le.PutUint16(b, uint16(v))
	case Uint32:
		le.PutUint32(b, uint32(v))
	case Uint64:
		le.PutUint64(b, uint64(v))
	case Bool:
		if v != 0 {
			b[0] = 1
		} else {
			b[0] = 0
		}
	}
}

func getElem(dtype DType, b []byte) float64 {
	le := binary.LittleEndian
	switch dtype {
	case Float32:
		return float64(math.Float32frombits(le.Uint32(b)))
	case Float64:
		return math.Float64frombits(le.Uint64(b))
	case Int8:
		return float64(int8(b[0]))
	case Int16:
		return float64(int16(le.Uint16(b)))
	case Int32:
		return float64(int32(le.Uint32(b)))
	case Int64:
		return float64(int64(le.Uint64(b)))
	case Uint8, Bool:
		return float64(b[0])
	case Uint16:
		return float64(le.Uint16(b))
	case Uint32:
		return float64(le.Uint32(b))
	case Uint64:
		return float64(le.Uint64(b))
	}
	return 0
}
