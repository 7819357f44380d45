package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// The contract every implementation must keep: vectors have a constant
// length (Dimensions), the same text always yields the same vector, and
// each component stays in a bounded range. The default implementation
// is a deterministic character-hash placeholder; keeping the contract
// here means a real semantic model can be swapped in without touching
// any caller.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving
	// input order. Each text is embedded independently, so
	// implementations are free to run them concurrently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g. 1024).
	// This must match the dimension of every stored document.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is usable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
