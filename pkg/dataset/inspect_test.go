package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulista5/SABER/pkg/store"
)

func TestInspect(t *testing.T) {
	path := buildStore(t, 30, 2, 17, 29)

	report, err := Inspect(path, store.Options{})
	require.NoError(t, err)

	assert.Equal(t, path, report.Path)
	assert.Equal(t, store.EngineBolt, report.Engine)
	assert.Equal(t, 30, report.NumSamples)
	assert.Equal(t, 27, report.Present)
	assert.Equal(t, []int{2, 17, 29}, report.Missing)
	assert.Empty(t, report.Corrupt)
	assert.Positive(t, report.Bytes)
}

func TestInspect_Corrupt(t *testing.T) {
	path := writeRaw(t, map[string][]byte{
		store.NumSamplesKey: store.EncodeNumSamples(2),
		store.DataKey(1):    []byte("garbage"),
	})

	report, err := Inspect(path, store.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, report.Missing)
	assert.Equal(t, []int{1}, report.Corrupt)
	assert.Equal(t, 1, report.Present)
}

func TestInspect_NoMetadata(t *testing.T) {
	path := writeRaw(t, map[string][]byte{store.DataKey(0): []byte("x")})

	_, err := Inspect(path, store.Options{})
	assert.True(t, store.IsOpenError(err))
}
