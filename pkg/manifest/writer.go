package manifest

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/paulista5/SABER/pkg/builder"
)

// Writer appends samples to a manifest stream
type Writer struct {
	w     *bufio.Writer
	count int
}

// NewWriter returns a Writer on w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends one sample as a line. Labels must be JSON-encodable.
func (w *Writer) Write(s builder.Sample) error {
	if s.Feature == nil {
		return errors.New("sample has no feature")
	}

	line := struct {
		Feature Feature `json:"feature"`
		Label   any     `json:"label"`
	}{
		Feature: Feature{
			DType:  s.Feature.DType.Name(),
			Shape:  s.Feature.Shape,
			Values: s.Feature.Float64s(),
		},
		Label: s.Label,
	}
	if line.Feature.Values == nil {
		line.Feature.Values = []float64{}
	}
	if line.Feature.Shape == nil {
		line.Feature.Shape = []int{}
	}

	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("failed to encode sample %d: %w", w.count, err)
	}
	data = append(data, '\n')
	if _, err := w.w.Write(data); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count returns the number of samples written.
func (w *Writer) Count() int {
	return w.count
}

// Flush writes buffered lines to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
