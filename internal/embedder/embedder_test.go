package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHash(t *testing.T) {
	h1 := ComputeHash("hello")
	h2 := ComputeHash("hello")
	h3 := ComputeHash("world")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64) // hex-encoded SHA-256
}

func TestCache_GetSet(t *testing.T) {
	cache := NewCache(10)

	emb := &Embedding{
		Vector:    []float32{1.0, 2.0, 3.0},
		Dimension: 3,
		Provider:  ProviderLocal,
		Model:     "test",
		Hash:      "abc",
	}

	_, ok := cache.Get("abc")
	assert.False(t, ok)

	cache.Set("abc", emb)
	got, ok := cache.Get("abc")
	require.True(t, ok)
	assert.Equal(t, emb.Vector, got.Vector)

	// Mutating the returned copy must not affect the cached value
	got.Vector[0] = 99.0
	again, ok := cache.Get("abc")
	require.True(t, ok)
	assert.Equal(t, float32(1.0), again.Vector[0])
}

func TestCache_Eviction(t *testing.T) {
	cache := NewCache(2)

	cache.Set("a", &Embedding{Hash: "a"})
	cache.Set("b", &Embedding{Hash: "b"})
	cache.Set("c", &Embedding{Hash: "c"})

	assert.Equal(t, 2, cache.Size())
	_, ok := cache.Get("a")
	assert.False(t, ok) // oldest evicted
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(EmbeddingRequest{Text: "hello"}))
	assert.ErrorIs(t, ValidateRequest(EmbeddingRequest{}), ErrEmptyText)
}

func TestValidateBatchRequest(t *testing.T) {
	assert.NoError(t, ValidateBatchRequest(BatchEmbeddingRequest{Texts: []string{"a", "b"}}))
	assert.ErrorIs(t, ValidateBatchRequest(BatchEmbeddingRequest{}), ErrInvalidInput)
	assert.ErrorIs(t, ValidateBatchRequest(BatchEmbeddingRequest{Texts: []string{"a", ""}}), ErrInvalidInput)
}

func TestIsUnavailable(t *testing.T) {
	assert.True(t, IsUnavailable(ErrModelUnavailable))
	assert.True(t, IsUnavailable(errors.Join(errors.New("wrapped"), ErrModelUnavailable)))
	assert.False(t, IsUnavailable(ErrProviderFailed))
	assert.False(t, IsUnavailable(nil))
}

func TestRetryWithBackoff_SucceedsAfterFailure(t *testing.T) {
	ctx := context.Background()
	config := RetryConfig{MaxRetries: 3, BaseDelay: 1, MaxDelay: 10, Multiplier: 2.0}

	attempts := 0
	result, err := retryWithBackoff(ctx, config, func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	ctx := context.Background()
	config := RetryConfig{MaxRetries: 2, BaseDelay: 1, MaxDelay: 10, Multiplier: 2.0}

	attempts := 0
	_, err := retryWithBackoff(ctx, config, func() (string, error) {
		attempts++
		return "", errors.New("persistent")
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetryWithBackoff_UnavailableNotRetried(t *testing.T) {
	ctx := context.Background()
	config := RetryConfig{MaxRetries: 3, BaseDelay: 1, MaxDelay: 10, Multiplier: 2.0}

	attempts := 0
	_, err := retryWithBackoff(ctx, config, func() (string, error) {
		attempts++
		return "", ErrModelUnavailable
	})

	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := RetryConfig{MaxRetries: 5, BaseDelay: 1, MaxDelay: 10, Multiplier: 2.0}

	attempts := 0
	_, err := retryWithBackoff(ctx, config, func() (string, error) {
		attempts++
		cancel()
		return "", errors.New("fail")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
