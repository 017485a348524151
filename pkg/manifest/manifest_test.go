package manifest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulista5/SABER/pkg/builder"
	"github.com/paulista5/SABER/pkg/logging"
	"github.com/paulista5/SABER/pkg/ndarray"
	"github.com/paulista5/SABER/pkg/store"
)

const sampleManifest = `{"feature": {"dtype": "float32", "shape": [1, 3], "values": [0.5, 1.5, 2.5]}, "label": "yes"}

   {"feature": {"dtype": "<i8", "values": [7, 8]}, "label": [4, 2.5, {"lang": "en"}]}
{"feature": {"dtype": "uint8", "shape": [2], "values": [1, 255]}, "label": null}
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "train.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSource(t *testing.T) {
	src, err := Open(writeManifest(t, sampleManifest))
	require.NoError(t, err)
	defer src.Close()

	require.Equal(t, 3, src.Len())

	s, err := src.Sample(0)
	require.NoError(t, err)
	assert.Equal(t, ndarray.Float32, s.Feature.DType)
	assert.Equal(t, []int{1, 3}, s.Feature.Shape)
	assert.Equal(t, []float64{0.5, 1.5, 2.5}, s.Feature.Float64s())
	assert.Equal(t, "yes", s.Label)

	s, err = src.Sample(1)
	require.NoError(t, err)
	assert.Equal(t, ndarray.Int64, s.Feature.DType)
	assert.Equal(t, []int{2}, s.Feature.Shape)
	assert.Equal(t, []any{int64(4), 2.5, map[string]any{"lang": "en"}}, s.Label)

	s, err = src.Sample(2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 255}, s.Feature.Float64s())
	assert.Nil(t, s.Label)

	_, err = src.Sample(3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestSource_NoTrailingNewline(t *testing.T) {
	src, err := Open(writeManifest(t, `{"feature": {"dtype": "float64", "values": [1]}, "label": 1}`))
	require.NoError(t, err)
	defer src.Close()

	require.Equal(t, 1, src.Len())
	s, err := src.Sample(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Label)
}

func TestSource_InvalidLines(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not json", `feature=1`},
		{"unknown dtype", `{"feature": {"dtype": "complex64", "values": [1]}, "label": 1}`},
		{"shape mismatch", `{"feature": {"dtype": "float32", "shape": [2, 2], "values": [1]}, "label": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Open(writeManifest(t, tt.line+"\n"))
			require.NoError(t, err)
			defer src.Close()

			_, err = src.Sample(0)
			assert.Error(t, err)
		})
	}
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	f, err := os.Create(path)
	require.NoError(t, err)

	feature, err := ndarray.FromSlice([]int16{-3, 0, 3, 6}, 2, 2)
	require.NoError(t, err)

	w := NewWriter(f)
	require.NoError(t, w.Write(builder.Sample{Feature: feature, Label: "abc"}))
	require.NoError(t, w.Write(builder.Sample{Feature: feature, Label: []int{1, 2}}))
	assert.Error(t, w.Write(builder.Sample{Label: "no feature"}))
	require.NoError(t, w.Flush())
	require.NoError(t, f.Close())
	assert.Equal(t, 2, w.Count())

	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	require.Equal(t, 2, src.Len())
	s, err := src.Sample(1)
	require.NoError(t, err)
	assert.True(t, feature.Equal(s.Feature))
	assert.Equal(t, []any{int64(1), int64(2)}, s.Label)
}

func TestSource_FeedsBuilder(t *testing.T) {
	src, err := Open(writeManifest(t, sampleManifest))
	require.NoError(t, err)
	defer src.Close()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < src.Len(); i++ {
				_, err := src.Sample(i)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	path := t.TempDir()
	result, err := builder.Build(context.Background(), path, src, builder.Options{
		Store:  store.Options{MaxSize: 16 << 20},
		Logger: logging.Discard(),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Written)
}
