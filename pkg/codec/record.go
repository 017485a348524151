package codec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/paulista5/SABER/pkg/ndarray"
)

const (
	headerSize    = 10
	formatVersion = 1

	flagZstd  byte = 1 << 0
	knownFlag      = flagZstd
)

// Compression selects how the record body is stored
type Compression int

const (
	CompressionNone Compression = iota
	CompressionZstd
)

// ParseCompression parses "none" (or "") and "zstd".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression %q", s)
	}
}

func (c Compression) String() string {
	if c == CompressionZstd {
		return "zstd"
	}
	return "none"
}

// Record is one persisted sample
type Record struct {
	Feature *ndarray.Array
	Label   any
}

// Option configures a RecordCodec
type Option func(*RecordCodec)

// WithCompression sets the compression used by Encode. Decode always honours
// the flags stored in the payload.
func WithCompression(c Compression) Option {
	return func(rc *RecordCodec) {
		rc.compression = c
	}
}

// RecordCodec handles serialization and deserialization of records
type RecordCodec struct {
	compression Compression

	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
}

// NewRecordCodec creates a new record codec instance
func NewRecordCodec(opts ...Option) *RecordCodec {
	c := &RecordCodec{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compression returns the compression applied by Encode.
func (c *RecordCodec) Compression() Compression {
	return c.compression
}

// Encode serializes a record into a framed payload
// Format: [CRC32(4)][Version(1)][Flags(1)][BodySize(4)][Body]
func (c *RecordCodec) Encode(r Record) ([]byte, error) {
	if r.Feature == nil {
		return nil, encodeError(ErrNilFeature)
	}

	body, err := marshalBody(r)
	if err != nil {
		return nil, encodeError(err)
	}

	var flags byte
	if c.compression == CompressionZstd {
		enc, _, err := c.zstdCoders()
		if err != nil {
			return nil, encodeError(err)
		}
		body = enc.EncodeAll(body, make([]byte, 0, len(body)/2))
		flags |= flagZstd
	}

	if uint64(len(body)) > math.MaxUint32 {
		return nil, encodeError(fmt.Errorf("body too large: %d bytes", len(body)))
	}

	buf := make([]byte, headerSize+len(body))
	buf[4] = formatVersion
	buf[5] = flags
	binary.LittleEndian.PutUint32(buf[6:], uint32(len(body)))
	copy(buf[headerSize:], body)
	binary.LittleEndian.PutUint32(buf[0:], crc32.ChecksumIEEE(buf[4:]))

	return buf, nil
}

// Decode deserializes a framed payload into a Record
func (c *RecordCodec) Decode(data []byte) (*Record, error) {
	if len(data) < headerSize {
		return nil, decodeError(fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncated, len(data), headerSize))
	}

	bodySize := binary.LittleEndian.Uint32(data[6:10])
	if uint64(len(data)-headerSize) < uint64(bodySize) {
		return nil, decodeError(fmt.Errorf("%w: body needs %d bytes, got %d", ErrTruncated, bodySize, len(data)-headerSize))
	}
	if uint64(len(data)-headerSize) > uint64(bodySize) {
		return nil, decodeError(fmt.Errorf("%w: %d trailing bytes", ErrMalformed, uint64(len(data)-headerSize)-uint64(bodySize)))
	}

	stored := binary.LittleEndian.Uint32(data[0:4])
	if actual := crc32.ChecksumIEEE(data[4:]); stored != actual {
		return nil, decodeError(fmt.Errorf("%w: %d != %d", ErrChecksum, stored, actual))
	}

	if data[4] != formatVersion {
		return nil, decodeError(fmt.Errorf("%w: %d", ErrVersion, data[4]))
	}

	flags := data[5]
	if flags&^knownFlag != 0 {
		return nil, decodeError(fmt.Errorf("%w: unknown flags %#x", ErrMalformed, flags))
	}

	body := data[headerSize:]
	if flags&flagZstd != 0 {
		_, dec, err := c.zstdCoders()
		if err != nil {
			return nil, decodeError(err)
		}
		body, err = dec.DecodeAll(body, nil)
		if err != nil {
			return nil, decodeError(fmt.Errorf("%w: zstd: %v", ErrMalformed, err))
		}
	}

	r, err := unmarshalBody(body)
	if err != nil {
		return nil, decodeError(err)
	}
	return r, nil
}

// Close releases compression state. The codec must not be used afterwards.
func (c *RecordCodec) Close() error {
	if c.zstdDec != nil {
		c.zstdDec.Close()
	}
	if c.zstdEnc != nil {
		return c.zstdEnc.Close()
	}
	return nil
}

func (c *RecordCodec) zstdCoders() (*zstd.Encoder, *zstd.Decoder, error) {
	c.zstdOnce.Do(func() {
		c.zstdEnc, c.zstdErr = zstd.NewWriter(nil)
		if c.zstdErr != nil {
			return
		}
		c.zstdDec, c.zstdErr = zstd.NewReader(nil)
	})
	return c.zstdEnc, c.zstdDec, c.zstdErr
}
