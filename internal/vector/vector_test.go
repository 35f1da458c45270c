package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	v := []float32{0.1, -2.5, 3.14159, 0, 1e-7, -1e7}
	decoded := Decode(Encode(v))
	require.Len(t, decoded, len(v))
	for i := range v {
		assert.Equal(t, v[i], decoded[i])
	}
}

func TestDecodeTruncatesPartialWords(t *testing.T) {
	blob := Encode([]float32{1.5, 2.5})

	// Trailing partial word is dropped, not an error
	decoded := Decode(blob[:7])
	require.Len(t, decoded, 1)
	assert.Equal(t, float32(1.5), decoded[0])

	assert.Empty(t, Decode(blob[:3]))
	assert.Empty(t, Decode(nil))
}

func TestDecodeShortBlobIsBelowMinDimensions(t *testing.T) {
	// A 4-byte blob decodes to one float, which callers must reject
	decoded := Decode(Encode([]float32{0.5}))
	assert.Less(t, len(decoded), MinDimensions)
}

func TestCosineSelfSimilarity(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.5, 0.5, 0.5, 0.5},
		{-1, 2, -3, 4},
		{1e-3, 2e-3},
	}
	for _, v := range vectors {
		sim, err := Cosine(v, v)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sim, 1e-9)
	}
}

func TestCosineZeroVector(t *testing.T) {
	a := []float32{1, 2, 3}
	z := []float32{0, 0, 0}

	sim, err := Cosine(a, z)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)

	sim, err = Cosine(z, z)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)
}

func TestCosineDimensionMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestCosineOrthogonalAndOpposite(t *testing.T) {
	sim, err := Cosine([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)

	sim, err = Cosine([]float32{1, 0}, []float32{-1, 0})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, sim, 1e-9)
}

func TestMaxPoolTakesMaximumNotAverage(t *testing.T) {
	query := []float32{1, 0}

	// Slot A has low similarity, slot B near-perfect
	slotA := []float32{0.2, 0.98}
	slotB := []float32{1, 0.01}

	simA, err := Cosine(query, slotA)
	require.NoError(t, err)
	simB, err := Cosine(query, slotB)
	require.NoError(t, err)
	require.Less(t, simA, 0.3)
	require.Greater(t, simB, 0.9)

	pooled, err := MaxPool(query, [][]float32{slotA, slotB})
	require.NoError(t, err)
	assert.InDelta(t, simB, pooled, 1e-9)
}

func TestMaxPoolEmptyAndMismatch(t *testing.T) {
	pooled, err := MaxPool([]float32{1, 0}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pooled)

	_, err = MaxPool([]float32{1, 0}, [][]float32{{1, 0}, {1, 0, 0}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)

	var norm float64
	for _, f := range v {
		norm += float64(f) * float64(f)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)

	zero := []float32{0, 0}
	assert.Equal(t, zero, Normalize(zero))
}
