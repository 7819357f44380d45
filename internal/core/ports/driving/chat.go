package driving

import (
	"context"

	"github.com/conduitworks/parley/internal/core/domain"
)

// SendMessageRequest is one inbound chat turn.
type SendMessageRequest struct {
	// ConversationID names the conversation the turn belongs to.
	ConversationID string

	// Content is the user's message text.
	Content string

	// Model is the requested model identifier. When empty, the
	// conversation's current model (or the configured default) is used.
	Model string

	// FileIDs are previously registered uploads to bind to this turn.
	FileIDs []string

	// MaxTokens caps the cloud backend's response length. Zero uses
	// the configured default.
	MaxTokens int
}

// TurnResult is the normalized outcome of a chat turn, identical in
// shape across backends.
type TurnResult struct {
	// Content is the assistant's reply.
	Content string

	// Model is the model identifier the turn actually used.
	Model string

	// Source tags which backend produced the reply.
	Source string

	// InputTokens and OutputTokens are exact for cloud turns and
	// heuristic estimates for local ones.
	InputTokens  int
	OutputTokens int

	// Cost is the dollar cost of the turn. Local turns are always 0.
	Cost float64

	// ContextChunks is how many retrieved chunks augmented the prompt.
	// Zero for non-retrieval turns.
	ContextChunks int

	// Message is the persisted assistant message.
	Message *domain.Message
}

// ChatService routes chat turns to the right backend and persists the
// exchange.
type ChatService interface {
	// SendMessage handles one turn end to end: classify the model,
	// build history, call the backend, persist the result.
	SendMessage(ctx context.Context, req SendMessageRequest) (*TurnResult, error)
}
