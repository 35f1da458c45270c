package vector

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrDimensionMismatch indicates a query vector and a stored vector disagree
// on length. This is a model-version/config bug, not recoverable bad data, so
// it propagates instead of being skipped.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// MinDimensions is the smallest decoded vector callers should accept.
// Anything shorter is a corrupt blob and gets skipped.
const MinDimensions = 2

// Encode packs a float32 slice into a little-endian byte blob
func Encode(v []float32) []byte {
	blob := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(f))
	}
	return blob
}

// Decode unpacks a little-endian byte blob into a float32 slice. A blob whose
// length is not a multiple of 4 decodes its whole words and drops the tail
// rather than erroring; callers treat any result shorter than MinDimensions
// as invalid and skip it.
func Decode(blob []byte) []float32 {
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v
}

// Cosine computes the cosine similarity between two equal-length vectors as
// the dot product over the product of norms. A zero-magnitude vector is
// treated as unrelated to everything: the result is 0 rather than a division
// by zero. Mismatched lengths fail fast with ErrDimensionMismatch.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// MaxPool returns the maximum cosine similarity between the query and any of
// the candidate's vector slots. A candidate ranks well if it matches the
// query strongly along any semantic facet, not only its primary one.
// Candidates with no slots score 0. A dimension mismatch on any slot fails
// the whole call.
func MaxPool(query []float32, slots [][]float32) (float64, error) {
	best := 0.0
	for _, slot := range slots {
		sim, err := Cosine(query, slot)
		if err != nil {
			return 0, err
		}
		if sim > best {
			best = sim
		}
	}
	return best, nil
}

// Normalize returns a unit-length copy of v. The zero vector is returned
// unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = f / norm
	}
	return out
}
