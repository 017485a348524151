// Package manifest reads samples from a JSON Lines file, one sample per line:
//
//	{"feature": {"dtype": "float32", "shape": [1, 4], "values": [0.1, 0.2, 0.3, 0.4]}, "label": "yes"}
//
// Line offsets are indexed when the file is opened; samples are parsed on
// demand, so a Source can feed the builder's workers concurrently without
// holding the corpus in memory.
package manifest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/paulista5/SABER/pkg/builder"
	"github.com/paulista5/SABER/pkg/ndarray"
)

// ErrIndexOutOfRange is returned by Sample for an index outside [0, Len()).
var ErrIndexOutOfRange = errors.New("manifest index out of range")

// Feature is the JSON form of an array
type Feature struct {
	DType  string    `json:"dtype"`
	Shape  []int     `json:"shape"`
	Values []float64 `json:"values"`
}

// Line is the JSON form of one sample
type Line struct {
	Feature Feature         `json:"feature"`
	Label   json.RawMessage `json:"label"`
}

type span struct {
	offset int64
	length int
}

// Source is a builder.Source over a manifest file
type Source struct {
	path  string
	file  *os.File
	spans []span
}

var _ builder.Source = (*Source)(nil)

// Open indexes the non-blank lines of the file at path.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}

	spans, err := index(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to index manifest %s: %w", path, err)
	}

	return &Source{path: path, file: f, spans: spans}, nil
}

func index(r io.Reader) ([]span, error) {
	br := bufio.NewReaderSize(r, 1<<20)

	var spans []span
	var offset int64
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
				lead := bytes.Index(line, trimmed)
				spans = append(spans, span{offset: offset + int64(lead), length: len(trimmed)})
			}
			offset += int64(len(line))
		}
		if errors.Is(err, io.EOF) {
			return spans, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Len returns the number of samples.
func (s *Source) Len() int {
	return len(s.spans)
}

// Sample parses the sample on the i-th non-blank line. Safe for concurrent use.
func (s *Source) Sample(i int) (builder.Sample, error) {
	if i < 0 || i >= len(s.spans) {
		return builder.Sample{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(s.spans))
	}

	sp := s.spans[i]
	buf := make([]byte, sp.length)
	if _, err := s.file.ReadAt(buf, sp.offset); err != nil {
		return builder.Sample{}, fmt.Errorf("failed to read line %d: %w", i, err)
	}

	sample, err := ParseLine(buf)
	if err != nil {
		return builder.Sample{}, fmt.Errorf("%s: sample %d: %w", s.path, i, err)
	}
	return sample, nil
}

// Close closes the manifest file.
func (s *Source) Close() error {
	return s.file.Close()
}

// ParseLine decodes one manifest line.
func ParseLine(data []byte) (builder.Sample, error) {
	var line Line
	if err := json.Unmarshal(data, &line); err != nil {
		return builder.Sample{}, fmt.Errorf("invalid sample: %w", err)
	}

	dtype, err := ndarray.ParseDType(line.Feature.DType)
	if err != nil {
		return builder.Sample{}, err
	}
	shape := line.Feature.Shape
	if shape == nil {
		shape = []int{len(line.Feature.Values)}
	}
	feature, err := ndarray.FromValues(dtype, shape, line.Feature.Values)
	if err != nil {
		return builder.Sample{}, fmt.Errorf("invalid feature: %w", err)
	}

	label, err := decodeLabel(line.Label)
	if err != nil {
		return builder.Sample{}, err
	}

	return builder.Sample{Feature: feature, Label: label}, nil
}

// decodeLabel maps JSON numbers to int64 when integral, float64 otherwise.
func decodeLabel(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid label: %w", err)
	}
	return normalize(v), nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = normalize(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalize(x[k])
		}
		return x
	}
	return v
}
