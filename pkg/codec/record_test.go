package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"math"
	"testing"

	"github.com/paulista5/SABER/pkg/ndarray"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// reframe wraps body in a valid envelope
func reframe(body []byte, version, flags byte) []byte {
	buf := make([]byte, headerSize+len(body))
	buf[4] = version
	buf[5] = flags
	binary.LittleEndian.PutUint32(buf[6:], uint32(len(body)))
	copy(buf[headerSize:], body)
	binary.LittleEndian.PutUint32(buf[0:], crc32.ChecksumIEEE(buf[4:]))
	return buf
}

// rawRecord encodes a record body directly with msgpack, bypassing the
// codec's own validation.
func rawRecord(t *testing.T, compactInts bool, feature map[string]any, label any) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(compactInts)
	enc.SetSortMapKeys(true)
	require.NoError(t, enc.Encode(map[string]any{"feature": feature, "label": label}))
	return reframe(buf.Bytes(), formatVersion, 0)
}

func mustArray[T ndarray.Numeric](t *testing.T, values []T, shape ...int) *ndarray.Array {
	t.Helper()
	a, err := ndarray.FromSlice(values, shape...)
	require.NoError(t, err)
	return a
}

func melSpectrogram(t *testing.T, frames int) *ndarray.Array {
	t.Helper()
	values := make([]float32, 1*8*frames)
	for i := range values {
		values[i] = float32(math.Sin(float64(i))) * 100
	}
	return mustArray(t, values, 1, 8, frames)
}

func TestRecordCodec_EncodeDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name    string
		feature *ndarray.Array
		label   any
	}{
		{
			name:    "float32 rank 3 with token ids",
			feature: melSpectrogram(t, 30),
			label:   []any{int64(5), int64(12), int64(0), int64(-1)},
		},
		{
			name:    "int32 vector with text label",
			feature: mustArray(t, []int32{math.MinInt32, 0, math.MaxInt32}),
			label:   "hello world",
		},
		{
			name:    "float64 matrix with nil label",
			feature: mustArray(t, []float64{math.Inf(-1), 0, math.MaxFloat64, 1e-300}, 2, 2),
			label:   nil,
		},
		{
			name:    "uint8 rank 4",
			feature: mustArray(t, []uint8{1, 2, 3, 4, 5, 6, 7, 8}, 2, 1, 2, 2),
			label:   []byte{0x00, 0xFF},
		},
		{
			name:    "empty array",
			feature: mustArray(t, []int16{}, 0, 3),
			label:   []any{},
		},
		{
			name:    "nested label",
			feature: mustArray(t, []int64{1}),
			label: map[string]any{
				"text":    "ab",
				"lengths": []any{int64(2), uint64(math.MaxUint64)},
				"weight":  0.5,
				"aligned": true,
				"ids":     mustArray(t, []int32{7, 8}),
			},
		},
		{
			name:    "unicode text",
			feature: mustArray(t, []float32{1}),
			label:   "🎯 नमस्ते",
		},
	}

	for _, compression := range []Compression{CompressionNone, CompressionZstd} {
		codec := NewRecordCodec(WithCompression(compression))
		defer codec.Close()

		for _, tc := range testCases {
			t.Run(compression.String()+"/"+tc.name, func(t *testing.T) {
				encoded, err := codec.Encode(Record{Feature: tc.feature, Label: tc.label})
				require.NoError(t, err)

				record, err := codec.Decode(encoded)
				require.NoError(t, err)

				assert.True(t, tc.feature.Equal(record.Feature), "feature mismatch: got %v, want %v", record.Feature, tc.feature)
				assert.Equal(t, tc.label, record.Label)
			})
		}
	}
}

func TestRecordCodec_CanonicalLabels(t *testing.T) {
	codec := NewRecordCodec()
	feature := mustArray(t, []float32{0})

	testCases := []struct {
		name  string
		label any
		want  any
	}{
		{"int slice", []int{3, 1, 4}, []any{int64(3), int64(1), int64(4)}},
		{"int32 slice", []int32{-7}, []any{int64(-7)}},
		{"string slice", []string{"a", "b"}, []any{"a", "b"}},
		{"float32 scalar", float32(0.25), 0.25},
		{"uint16 scalar", uint16(9), uint64(9)},
		{"typed map", map[string]int{"x": 1}, map[string]any{"x": int64(1)}},
		{"small int", 1, int64(1)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := codec.Encode(Record{Feature: feature, Label: tc.label})
			require.NoError(t, err)

			record, err := codec.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, tc.want, record.Label)
		})
	}
}

func TestRecordCodec_EncodeErrors(t *testing.T) {
	codec := NewRecordCodec()

	t.Run("nil feature", func(t *testing.T) {
		_, err := codec.Encode(Record{Label: "x"})
		assert.ErrorIs(t, err, ErrCodec)
		assert.ErrorIs(t, err, ErrNilFeature)
	})

	t.Run("unsupported label", func(t *testing.T) {
		_, err := codec.Encode(Record{Feature: mustArray(t, []float32{1}), Label: struct{}{}})
		assert.ErrorIs(t, err, ErrUnsupportedValue)
	})

	t.Run("inconsistent array", func(t *testing.T) {
		bad := &ndarray.Array{DType: ndarray.Float32, Shape: []int{3}, Data: make([]byte, 4)}
		_, err := codec.Encode(Record{Feature: bad})
		assert.ErrorIs(t, err, ndarray.ErrShapeMismatch)
	})

	t.Run("overflowing shape", func(t *testing.T) {
		bad := &ndarray.Array{DType: ndarray.Int8, Shape: []int{65536, 65536, 65536, 65536}, Data: []byte{}}
		_, err := codec.Encode(Record{Feature: bad, Label: "x"})
		assert.ErrorIs(t, err, ErrCodec)
		assert.ErrorIs(t, err, ndarray.ErrShapeMismatch)
	})

	t.Run("reserved label map", func(t *testing.T) {
		feature := mustArray(t, []float32{1})
		for _, label := range []any{
			map[string]any{"nd": true, "text": "x"},
			[]any{map[string]any{"nd": true}},
			map[string]bool{"nd": true},
		} {
			_, err := codec.Encode(Record{Feature: feature, Label: label})
			assert.ErrorIs(t, err, ErrUnsupportedValue, "label %v", label)
		}

		// nd without true is an ordinary key
		encoded, err := codec.Encode(Record{Feature: feature, Label: map[string]any{"nd": false}})
		require.NoError(t, err)
		record, err := codec.Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"nd": false}, record.Label)
	})
}

func TestRecordCodec_ArrayData(t *testing.T) {
	codec := NewRecordCodec()

	testCases := []struct {
		name  string
		shape []int
	}{
		{"vector of one", []int{1}},
		{"vector of two", []int{2}},
		{"empty vector", []int{0}},
		{"empty matrix", []int{3, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := ndarray.NumElements(tc.shape)
			require.NoError(t, err)
			values := make([]float32, n)
			for i := range values {
				values[i] = float32(i) + 0.5
			}
			feature := mustArray(t, values, tc.shape...)

			encoded, err := codec.Encode(Record{Feature: feature, Label: []byte("raw")})
			require.NoError(t, err)

			record, err := codec.Decode(encoded)
			require.NoError(t, err)
			assert.True(t, feature.Equal(record.Feature))
			assert.NotNil(t, record.Feature.Data)
			assert.Equal(t, []byte("raw"), record.Label)
		})
	}
}

func TestRecordCodec_DecodesCompactIntegers(t *testing.T) {
	data := rawRecord(t, true, map[string]any{
		"nd":    true,
		"type":  string(ndarray.Int16),
		"shape": []int64{1, 2},
		"data":  []byte{1, 0, 2, 0},
	}, map[string]any{"ids": []int64{3, -4, -300}})

	record, err := NewRecordCodec().Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, record.Feature.Shape)

	values, err := ndarray.Values[int16](record.Feature)
	require.NoError(t, err)
	assert.Equal(t, []int16{1, 2}, values)
	assert.Equal(t, map[string]any{"ids": []any{int64(3), int64(-4), int64(-300)}}, record.Label)
}

func TestRecordCodec_MalformedData(t *testing.T) {
	codec := NewRecordCodec()
	valid, err := codec.Encode(Record{Feature: mustArray(t, []float32{1, 2}), Label: "ok"})
	require.NoError(t, err)

	testCases := []struct {
		name string
		data []byte
		want error
	}{
		{
			name: "empty data",
			data: []byte{},
			want: ErrTruncated,
		},
		{
			name: "too short for header",
			data: []byte{0x01, 0x02, 0x03},
			want: ErrTruncated,
		},
		{
			name: "truncated body",
			data: valid[:len(valid)-1],
			want: ErrTruncated,
		},
		{
			name: "trailing bytes",
			data: append(append([]byte{}, valid...), 0x00),
			want: ErrMalformed,
		},
		{
			name: "corrupted body",
			data: func() []byte {
				d := append([]byte{}, valid...)
				d[len(d)-1] ^= 0xFF
				return d
			}(),
			want: ErrChecksum,
		},
		{
			name: "unknown version",
			data: reframe(valid[headerSize:], 9, 0),
			want: ErrVersion,
		},
		{
			name: "unknown flag",
			data: reframe(valid[headerSize:], formatVersion, 0x80),
			want: ErrMalformed,
		},
		{
			name: "bad zstd stream",
			data: reframe([]byte("not zstd"), formatVersion, flagZstd),
			want: ErrMalformed,
		},
		{
			name: "body is not a record",
			data: reframe([]byte{0xc0}, formatVersion, 0),
			want: ErrMalformed,
		},
		{
			name: "shape overflows element count",
			data: rawRecord(t, false, map[string]any{
				"nd":    true,
				"type":  string(ndarray.Int8),
				"shape": []int64{65536, 65536, 65536, 65536},
				"data":  []byte{},
			}, nil),
			want: ErrMalformed,
		},
		{
			name: "array data is not binary",
			data: rawRecord(t, false, map[string]any{
				"nd":    true,
				"type":  string(ndarray.Int8),
				"shape": []int64{2},
				"data":  "ab",
			}, nil),
			want: ErrMalformed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			record, err := codec.Decode(tc.data)
			require.Error(t, err)
			assert.Nil(t, record)
			assert.ErrorIs(t, err, ErrCodec)
			assert.ErrorIs(t, err, tc.want)

			var codecErr *CodecError
			require.True(t, errors.As(err, &codecErr))
			assert.Equal(t, "decode", codecErr.Op)
		})
	}
}

func TestRecordCodec_DecodeIgnoresEncoderCompression(t *testing.T) {
	zc := NewRecordCodec(WithCompression(CompressionZstd))
	defer zc.Close()

	payload, err := zc.Encode(Record{Feature: melSpectrogram(t, 50), Label: "compressed"})
	require.NoError(t, err)
	assert.Equal(t, flagZstd, payload[5])

	plain := NewRecordCodec()
	defer plain.Close()
	record, err := plain.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, "compressed", record.Label)
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, CompressionZstd, c)

	c, err = ParseCompression("")
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, c)

	_, err = ParseCompression("lz4")
	assert.Error(t, err)
}
