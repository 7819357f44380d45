// Package charhash provides a deterministic placeholder embedding.
//
// Each vector component is derived from one character of the input, so
// the same text always yields the same vector without any model call.
// It exists to keep the retrieval pipeline exercisable end to end; a
// semantic model behind the same interface produces far better
// rankings.
package charhash

import (
	"context"
	"sync"

	"github.com/conduitworks/parley/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions is the placeholder vector size.
const DefaultDimensions = 1024

// Config holds configuration for the character-hash embedding.
type Config struct {
	// Dimensions is the embedding vector size (default: 1024). Changing
	// it invalidates every stored vector.
	Dimensions int
}

// EmbeddingService generates character-hash placeholder embeddings.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a new character-hash embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: cfg.Dimensions}
}

// Embed generates the placeholder vector: component i is the byte at
// position i, reduced mod 256 and scaled into [0, 1]. Texts shorter
// than the dimension are zero-padded; longer texts are cut off at the
// dimension.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, s.dimensions)
	for i := 0; i < len(text) && i < s.dimensions; i++ {
		vec[i] = float32(int(text[i])%256) / 255.0
	}
	return vec, nil
}

// EmbedBatch embeds texts concurrently, preserving input order. Each
// text is independent, so a simple fan-out is safe.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	errs := make([]error, len(texts))

	var wg sync.WaitGroup
	for i, text := range texts {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			result[i], errs[i] = s.Embed(ctx, text)
		}(i, text)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return "charhash-placeholder"
}

// Ping validates the service is usable. Always healthy: there is no
// remote dependency.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
