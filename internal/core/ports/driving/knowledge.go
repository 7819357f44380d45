package driving

import (
	"context"

	"github.com/conduitworks/parley/internal/core/domain"
)

// IngestReceipt reports the outcome of a document ingestion.
type IngestReceipt struct {
	// DocumentID is the stored chunk row's id.
	DocumentID string

	// Truncated is true when the content exceeded the ingestion limit
	// and was cut before embedding. Callers should surface this, since
	// the discarded text is not retrievable.
	Truncated bool
}

// KnowledgeService manages the retrieval knowledge base.
type KnowledgeService interface {
	// AddDocument truncates, embeds and stores a document.
	AddDocument(ctx context.Context, title, content string, metadata map[string]any) (*IngestReceipt, error)

	// ListDocuments returns per-title summaries, newest first.
	ListDocuments(ctx context.Context) ([]domain.DocumentGroup, error)

	// DeleteDocument removes every chunk of a title and returns the
	// number of rows removed. Unknown titles return 0.
	DeleteDocument(ctx context.Context, title string) (int, error)

	// Search ranks stored documents by similarity to the query text
	// and returns at most k results.
	Search(ctx context.Context, query string, k int) ([]domain.RetrievalResult, error)
}
