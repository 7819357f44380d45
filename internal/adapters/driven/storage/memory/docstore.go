package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/conduitworks/parley/internal/core/domain"
	"github.com/conduitworks/parley/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// Documents are kept in a slice so insertion order survives, which the
// retrieval layer relies on for stable tie-breaking.
type DocumentStore struct {
	mu   sync.RWMutex
	docs []domain.Document
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{}
}

// SaveDocument appends a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, *doc)
	return nil
}

// AllDocuments returns every stored document in insertion order.
func (s *DocumentStore) AllDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Document, len(s.docs))
	copy(out, s.docs)
	return out, nil
}

// ListGrouped returns per-title summaries, newest first.
func (s *DocumentStore) ListGrouped(_ context.Context) ([]domain.DocumentGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byTitle := make(map[string]*domain.DocumentGroup)
	order := make([]string, 0)
	for _, doc := range s.docs {
		g, ok := byTitle[doc.Title]
		if !ok {
			byTitle[doc.Title] = &domain.DocumentGroup{
				Title:        doc.Title,
				ChunkCount:   1,
				FirstChunkID: doc.ID,
				CreatedAt:    doc.CreatedAt,
				UpdatedAt:    doc.UpdatedAt,
			}
			order = append(order, doc.Title)
			continue
		}
		g.ChunkCount++
		if doc.CreatedAt.Before(g.CreatedAt) {
			g.CreatedAt = doc.CreatedAt
			g.FirstChunkID = doc.ID
		}
		if doc.UpdatedAt.After(g.UpdatedAt) {
			g.UpdatedAt = doc.UpdatedAt
		}
	}

	out := make([]domain.DocumentGroup, 0, len(order))
	for _, title := range order {
		out = append(out, *byTitle[title])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteByTitle removes all documents with the title and reports how
// many were removed.
func (s *DocumentStore) DeleteByTitle(_ context.Context, title string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.docs[:0]
	removed := 0
	for _, doc := range s.docs {
		if doc.Title == title {
			removed++
			continue
		}
		kept = append(kept, doc)
	}
	s.docs = kept
	return removed, nil
}
