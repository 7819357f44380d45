package driven

import (
	"context"

	"github.com/conduitworks/parley/internal/core/domain"
)

// DocumentStore persists knowledge-base documents.
//
// The store does not need to rank by similarity itself; the retrieval
// service scans AllDocuments and computes cosine similarity in core.
// A backend with native nearest-neighbour support may still implement
// this interface and ignore the scan path.
type DocumentStore interface {
	// SaveDocument stores a new document row. Documents are never
	// mutated in place; re-ingesting a title adds rows.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// AllDocuments returns every stored document in insertion order.
	// The stable order is what makes repeated searches reproducible
	// when similarities tie.
	AllDocuments(ctx context.Context) ([]domain.Document, error)

	// ListGrouped returns per-title summaries ordered by creation time
	// descending.
	ListGrouped(ctx context.Context) ([]domain.DocumentGroup, error)

	// DeleteByTitle removes all chunks of a title and reports how many
	// rows went away. Deleting an unknown title returns 0, not an error.
	DeleteByTitle(ctx context.Context, title string) (int, error)
}
