package builder

import (
	"reflect"
	"unicode/utf8"

	"github.com/paulista5/SABER/pkg/ndarray"
)

// DurationFilter excludes audio samples whose duration or label length is out
// of range. Its Exclude method plugs into Options.Exclude.
type DurationFilter struct {
	SampleRate     int     // Samples per second of the raw feature
	MinSeconds     float64 // Shortest kept duration, inclusive
	MaxSeconds     float64 // Longest kept duration, inclusive
	MaxLabelLength int     // Longest kept label; 0 = no limit
}

// Exclude reports whether s falls outside the configured bounds. Samples
// without a usable feature are excluded.
func (f DurationFilter) Exclude(s Sample) bool {
	if s.Feature == nil || f.SampleRate <= 0 {
		return true
	}
	frames, ok := frameCount(s.Feature)
	if !ok {
		return true
	}

	seconds := float64(frames) / float64(f.SampleRate)
	if seconds < f.MinSeconds || (f.MaxSeconds > 0 && seconds > f.MaxSeconds) {
		return true
	}
	return f.MaxLabelLength > 0 && LabelLength(s.Label) > f.MaxLabelLength
}

// frameCount is the leading dimension once a leading unit (channel)
// dimension is squeezed away.
func frameCount(a *ndarray.Array) (int, bool) {
	shape := a.Shape
	if len(shape) >= 2 && shape[0] == 1 {
		shape = shape[1:]
	}
	if len(shape) == 0 {
		return 0, false
	}
	return shape[0], true
}

// LabelLength counts characters of a text label and elements of a sequence
// label. Other labels have length 0.
func LabelLength(label any) int {
	switch v := label.(type) {
	case nil:
		return 0
	case string:
		return utf8.RuneCountInString(v)
	case []byte:
		return len(v)
	case []any:
		return len(v)
	case *ndarray.Array:
		if v.Rank() == 0 {
			return 1
		}
		return v.Shape[0]
	}

	rv := reflect.ValueOf(label)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len()
	}
	return 0
}
