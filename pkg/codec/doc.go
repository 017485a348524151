// Package codec provides record serialization and deserialization for SABER stores.
//
// A record is one persisted training sample: a feature array of arbitrary rank
// and dtype plus a label value. The codec turns a record into one opaque byte
// string and back, losslessly and without external shape or dtype hints.
//
// # Payload Format
//
// Payloads are framed with a fixed header followed by the body:
//
//	[CRC32(4)][Version(1)][Flags(1)][BodySize(4)][Body]
//
// Fields:
//   - CRC32: IEEE checksum over Version, Flags, BodySize and Body (little-endian)
//   - Version: payload format version, currently 1
//   - Flags: bit 0 set when the body is zstd compressed
//   - BodySize: 32-bit unsigned body length in bytes (little-endian)
//   - Body: msgpack map with exactly two fields, "feature" and "label"
//
// Arrays are written as self-describing msgpack maps:
//
//	{"nd": true, "type": "<f4", "shape": [1, 80, 300], "data": <bin>}
//
// where "data" holds the raw little-endian elements. Arrays may also be nested
// inside labels.
//
// # Labels
//
// Labels are native values. Decoding returns canonical forms: nil, bool, int64,
// uint64, float64, string, []byte, []any, map[string]any and *ndarray.Array.
// Signed integers of every width are written as int64, unsigned integers as
// uint64 and float32 as float64; typed slices are written as lists. A []byte
// (or []uint8) label is written as binary.
//
// # Usage
//
//	c := codec.NewRecordCodec(codec.WithCompression(codec.CompressionZstd))
//	defer c.Close()
//
//	payload, err := c.Encode(codec.Record{Feature: mel, Label: tokens})
//	if err != nil {
//	    return err
//	}
//
//	record, err := c.Decode(payload)
//	if err != nil {
//	    return err // *codec.CodecError
//	}
//
// # Error Handling
//
// Every decode failure, whether a short header, checksum mismatch, unknown
// version, bad compression stream or malformed body, returns a *CodecError that
// matches ErrCodec with errors.Is. Decode never returns partial records.
//
// # Thread Safety
//
// RecordCodec instances are safe for concurrent use. The codec holds its own
// configuration; nothing is registered globally.
package codec
