package codec

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/paulista5/SABER/pkg/ndarray"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	fieldFeature = "feature"
	fieldLabel   = "label"

	// nested lists and maps deeper than this are rejected
	maxDepth = 64
)

func marshalBody(r Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	if err := enc.EncodeMapLen(2); err != nil {
		return nil, err
	}
	if err := enc.EncodeString(fieldFeature); err != nil {
		return nil, err
	}
	if err := encodeArray(enc, r.Feature); err != nil {
		return nil, fmt.Errorf("feature: %w", err)
	}
	if err := enc.EncodeString(fieldLabel); err != nil {
		return nil, err
	}
	if err := encodeValue(enc, r.Label, 0); err != nil {
		return nil, fmt.Errorf("label: %w", err)
	}

	return buf.Bytes(), nil
}

func encodeArray(enc *msgpack.Encoder, a *ndarray.Array) error {
	if !a.DType.Valid() {
		return fmt.Errorf("%w: %q", ndarray.ErrUnsupportedDType, a.DType)
	}
	want, err := ndarray.ByteLen(a.DType, a.Shape)
	if err != nil {
		return err
	}
	if len(a.Data) != want {
		return fmt.Errorf("%w: shape %v, %d bytes", ndarray.ErrShapeMismatch, a.Shape, len(a.Data))
	}

	if err := enc.EncodeMapLen(4); err != nil {
		return err
	}
	if err := enc.EncodeString("nd"); err != nil {
		return err
	}
	if err := enc.EncodeBool(true); err != nil {
		return err
	}
	if err := enc.EncodeString("type"); err != nil {
		return err
	}
	if err := enc.EncodeString(string(a.DType)); err != nil {
		return err
	}
	if err := enc.EncodeString("shape"); err != nil {
		return err
	}
	if err := enc.EncodeArrayLen(len(a.Shape)); err != nil {
		return err
	}
	for _, dim := range a.Shape {
		if err := enc.EncodeInt64(int64(dim)); err != nil {
			return err
		}
	}
	if err := enc.EncodeString("data"); err != nil {
		return err
	}
	data := a.Data
	if data == nil {
		data = []byte{}
	}
	return enc.EncodeBytes(data)
}

func encodeValue(enc *msgpack.Encoder, v any, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: nesting deeper than %d", ErrUnsupportedValue, maxDepth)
	}

	switch x := v.(type) {
	case nil:
		return enc.EncodeNil()
	case bool:
		return enc.EncodeBool(x)
	case int:
		return enc.EncodeInt64(int64(x))
	case int8:
		return enc.EncodeInt64(int64(x))
	case int16:
		return enc.EncodeInt64(int64(x))
	case int32:
		return enc.EncodeInt64(int64(x))
	case int64:
		return enc.EncodeInt64(x)
	case uint:
		return enc.EncodeUint64(uint64(x))
	case uint8:
		return enc.EncodeUint64(uint64(x))
	case uint16:
		return enc.EncodeUint64(uint64(x))
	case uint32:
		return enc.EncodeUint64(uint64(x))
	case uint64:
		return enc.EncodeUint64(x)
	case float32:
		return enc.EncodeFloat64(float64(x))
	case float64:
		return enc.EncodeFloat64(x)
	case string:
		return enc.EncodeString(x)
	case []byte:
		return enc.EncodeBytes(x)
	case *ndarray.Array:
		if x == nil {
			return enc.EncodeNil()
		}
		return encodeArray(enc, x)
	case []any:
		if err := enc.EncodeArrayLen(len(x)); err != nil {
			return err
		}
		for _, elem := range x {
			if err := encodeValue(enc, elem, depth+1); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		if isArrayMap(x) {
			return fmt.Errorf("%w: map with reserved key %q", ErrUnsupportedValue, "nd")
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if err := enc.EncodeMapLen(len(keys)); err != nil {
			return err
		}
		for _, k := range keys {
			if err := enc.EncodeString(k); err != nil {
				return err
			}
			if err := encodeValue(enc, x[k], depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	// typed slices and string-keyed maps, e.g. []int32 token ids
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if err := enc.EncodeArrayLen(rv.Len()); err != nil {
			return err
		}
		for i := 0; i < rv.Len(); i++ {
			if err := encodeValue(enc, rv.Index(i).Interface(), depth+1); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		if nd := rv.MapIndex(reflect.ValueOf("nd").Convert(rv.Type().Key())); nd.IsValid() {
			if b, ok := nd.Interface().(bool); ok && b {
				return fmt.Errorf("%w: map with reserved key %q", ErrUnsupportedValue, "nd")
			}
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		if err := enc.EncodeMapLen(len(keys)); err != nil {
			return err
		}
		for _, k := range keys {
			if err := enc.EncodeString(k); err != nil {
				return err
			}
			elem := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()))
			if err := encodeValue(enc, elem.Interface(), depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func unmarshalBody(body []byte) (*Record, error) {
	rd := bytes.NewReader(body)
	dec := msgpack.NewDecoder(rd)

	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if n != 2 {
		return nil, fmt.Errorf("%w: record has %d fields, want 2", ErrMalformed, n)
	}

	r := &Record{}
	var haveFeature, haveLabel bool
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		raw, err := dec.DecodeInterface()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
		}

		switch key {
		case fieldFeature:
			m, ok := raw.(map[string]any)
			if !ok || !isArrayMap(m) {
				return nil, fmt.Errorf("%w: feature is not an array", ErrMalformed)
			}
			if r.Feature, err = toArray(m); err != nil {
				return nil, err
			}
			haveFeature = true
		case fieldLabel:
			if r.Label, err = canonical(raw, 0); err != nil {
				return nil, err
			}
			haveLabel = true
		default:
			return nil, fmt.Errorf("%w: unknown field %q", ErrMalformed, key)
		}
	}

	if !haveFeature || !haveLabel {
		return nil, fmt.Errorf("%w: missing feature or label", ErrMalformed)
	}
	if rd.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing body bytes", ErrMalformed, rd.Len())
	}

	return r, nil
}

func canonical(v any, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrMalformed, maxDepth)
	}

	switch x := v.(type) {
	case []any:
		for i := range x {
			elem, err := canonical(x[i], depth+1)
			if err != nil {
				return nil, err
			}
			x[i] = elem
		}
		return x, nil
	case map[string]any:
		if isArrayMap(x) {
			return toArray(x)
		}
		for k, elem := range x {
			c, err := canonical(elem, depth+1)
			if err != nil {
				return nil, err
			}
			x[k] = c
		}
		return x, nil
	case float32:
		return float64(x), nil
	case int8, int16, int32:
		return reflect.ValueOf(x).Int(), nil
	case uint8, uint16, uint32:
		return reflect.ValueOf(x).Uint(), nil
	}
	return v, nil
}

func isArrayMap(m map[string]any) bool {
	nd, ok := m["nd"].(bool)
	return ok && nd
}

func toArray(m map[string]any) (*ndarray.Array, error) {
	if len(m) != 4 {
		return nil, fmt.Errorf("%w: array has %d fields, want 4", ErrMalformed, len(m))
	}

	typ, ok := m["type"].(string)
	if !ok || !ndarray.DType(typ).Valid() {
		return nil, fmt.Errorf("%w: array type %v", ErrMalformed, m["type"])
	}

	rawShape, ok := m["shape"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: array shape %T", ErrMalformed, m["shape"])
	}
	shape := make([]int, len(rawShape))
	for i, d := range rawShape {
		switch dim := d.(type) {
		case int8, int16, int32, int64:
			v := reflect.ValueOf(dim).Int()
			if v < 0 || v > math.MaxInt32 {
				return nil, fmt.Errorf("%w: dimension %d", ErrMalformed, v)
			}
			shape[i] = int(v)
		case uint8, uint16, uint32, uint64:
			v := reflect.ValueOf(dim).Uint()
			if v > math.MaxInt32 {
				return nil, fmt.Errorf("%w: dimension %d", ErrMalformed, v)
			}
			shape[i] = int(v)
		default:
			return nil, fmt.Errorf("%w: dimension %T", ErrMalformed, d)
		}
	}

	data, ok := m["data"].([]byte)
	if !ok && m["data"] != nil {
		return nil, fmt.Errorf("%w: array data %T", ErrMalformed, m["data"])
	}

	a, err := ndarray.New(ndarray.DType(typ), shape, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return a, nil
}
