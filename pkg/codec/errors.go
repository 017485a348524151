package codec

import "errors"

// ErrCodec matches every error returned by Encode and Decode.
var ErrCodec = errors.New("codec error")

// Errors
var (
	ErrTruncated        = errors.New("payload truncated")
	ErrChecksum         = errors.New("checksum mismatch")
	ErrVersion          = errors.New("unsupported payload version")
	ErrMalformed        = errors.New("malformed payload")
	ErrNilFeature       = errors.New("record has no feature array")
	ErrUnsupportedValue = errors.New("unsupported label value")
)

// CodecError represents a failed encode or decode
type CodecError struct {
	Op  string
	Err error
}

func (e *CodecError) Error() string {
	return "codec: " + e.Op + ": " + e.Err.Error()
}

func (e *CodecError) Unwrap() []error {
	return []error{ErrCodec, e.Err}
}

func encodeError(err error) error {
	return &CodecError{Op: "encode", Err: err}
}

func decodeError(err error) error {
	return &CodecError{Op: "decode", Err: err}
}
