package driven

import (
	"context"

	"github.com/conduitworks/parley/internal/core/domain"
)

// CloudReply is a normalized response from the hosted API, including
// its exact usage accounting.
type CloudReply struct {
	// Content is the generated text.
	Content string

	// Model is the model name the backend reports having used.
	Model string

	// InputTokens and OutputTokens come from the backend's own usage
	// accounting; they are exact, not estimated.
	InputTokens  int
	OutputTokens int
}

// CloudLLM is the hosted generation backend. It accepts the full
// structured message history, including inlined binary attachments,
// and reports exact token usage. Calls use a short, interactive
// timeout.
type CloudLLM interface {
	// SendMessages sends an ordered message history and returns the
	// generated reply with usage counts.
	SendMessages(ctx context.Context, model string, messages []domain.PromptMessage, maxTokens int) (*CloudReply, error)

	// Ping validates the API is reachable and the key is accepted.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// LocalLLM is the local inference host. It accepts a flat prompt
// string, returns generated text only (no usage accounting), and is
// given a long timeout to tolerate slow on-device inference.
type LocalLLM interface {
	// Generate produces a completion for the prompt using the given
	// backend model name.
	Generate(ctx context.Context, model, prompt string) (string, error)

	// ListModels returns the model tags the host has available.
	ListModels(ctx context.Context) ([]string, error)

	// Endpoint returns the configured base URL, used to name the
	// subsystem in unreachable errors.
	Endpoint() string

	// Ping validates the host is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// RAGReply is a response from the retrieval-augmented endpoint.
type RAGReply struct {
	// Content is the generated text.
	Content string

	// Context lists the context snippets the backend actually used.
	Context []string

	// TokensPerSecond is the backend's reported throughput.
	TokensPerSecond float64
}

// RAGBackend is the retrieval-augmented local inference endpoint.
// Like LocalLLM it reports no usage accounting and gets a long timeout.
type RAGBackend interface {
	// Query sends an augmented prompt and returns the reply together
	// with the context the backend used.
	Query(ctx context.Context, query, model string, includeContext bool, topK int) (*RAGReply, error)

	// Endpoint returns the configured base URL, used to name the
	// subsystem in unreachable errors.
	Endpoint() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
