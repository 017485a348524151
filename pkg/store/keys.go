package store

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// NumSamplesKey holds the number of attempted samples as ASCII digits.
	NumSamplesKey = "num-samples"

	dataKeyPrefix = "data-"
	dataKeyDigits = 9
)

// DataKey returns the key of the sample at index, e.g. "data-000000042".
func DataKey(index int) string {
	return fmt.Sprintf("data-%09d", index)
}

// ParseDataKey is the inverse of DataKey.
func ParseDataKey(key string) (int, error) {
	digits, ok := strings.CutPrefix(key, dataKeyPrefix)
	if !ok || len(digits) != dataKeyDigits {
		return 0, fmt.Errorf("invalid data key %q", key)
	}
	index, err := strconv.Atoi(digits)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid data key %q", key)
	}
	return index, nil
}

// EncodeNumSamples formats the metadata value.
func EncodeNumSamples(n int) []byte {
	return []byte(strconv.Itoa(n))
}

// ReadNumSamples reads and parses the num-samples metadata key.
func ReadNumSamples(s Store) (int, error) {
	raw, err := s.Get([]byte(NumSamplesKey))
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", NumSamplesKey, err)
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s value %q", NumSamplesKey, raw)
	}
	return n, nil
}
