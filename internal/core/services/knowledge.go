package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/conduitworks/parley/internal/core/domain"
	"github.com/conduitworks/parley/internal/core/ports/driven"
	"github.com/conduitworks/parley/internal/core/ports/driving"
	"github.com/conduitworks/parley/internal/logger"
)

// Ensure KnowledgeService implements the interface.
var _ driving.KnowledgeService = (*KnowledgeService)(nil)

// DefaultTruncateLength caps ingested content before embedding.
// Documents are stored whole (no chunking); anything beyond the cap is
// discarded, and the receipt reports that it happened.
const DefaultTruncateLength = 2000

// KnowledgeService manages the retrieval knowledge base.
type KnowledgeService struct {
	docStore    driven.DocumentStore
	embedding   driven.EmbeddingService
	retrieval   *RetrievalService
	truncateLen int
}

// NewKnowledgeService creates a new knowledge service. truncateLen <= 0
// uses DefaultTruncateLength.
func NewKnowledgeService(
	docStore driven.DocumentStore,
	embedding driven.EmbeddingService,
	retrieval *RetrievalService,
	truncateLen int,
) *KnowledgeService {
	if truncateLen <= 0 {
		truncateLen = DefaultTruncateLength
	}
	return &KnowledgeService{
		docStore:    docStore,
		embedding:   embedding,
		retrieval:   retrieval,
		truncateLen: truncateLen,
	}
}

// AddDocument truncates, embeds and stores a document as a single
// chunk. Embedding happens before the row is written, so a failure
// never leaves a half-written document. Re-ingesting a title adds a
// new row; callers wanting replacement semantics must delete first.
func (s *KnowledgeService) AddDocument(ctx context.Context, title, content string, metadata map[string]any) (*driving.IngestReceipt, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrInvalidInput)
	}

	logger.Section("Ingest")
	logger.Debug("Adding document %q (%d bytes)", title, len(content))

	truncated := false
	if len(content) > s.truncateLen {
		// Back up to a rune boundary so the cut never leaves a partial
		// UTF-8 sequence in the stored text.
		cut := s.truncateLen
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut]
		truncated = true
		logger.Warn("Content truncated to %d bytes before embedding", cut)
	}

	embedding, err := s.embedding.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embed document: %w", err)
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:         uuid.NewString(),
		Title:      title,
		Content:    content,
		ChunkIndex: 0,
		Embedding:  embedding,
		Metadata:   metadata,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("%w: saving document: %v", domain.ErrStoreFailure, err)
	}

	logger.Info("Document %q stored as %s", title, doc.ID)
	return &driving.IngestReceipt{DocumentID: doc.ID, Truncated: truncated}, nil
}

// ListDocuments returns per-title summaries, newest first.
func (s *KnowledgeService) ListDocuments(ctx context.Context) ([]domain.DocumentGroup, error) {
	groups, err := s.docStore.ListGrouped(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing documents: %v", domain.ErrStoreFailure, err)
	}
	return groups, nil
}

// DeleteDocument removes all chunks of a title. Deleting an unknown
// title returns 0, not an error.
func (s *KnowledgeService) DeleteDocument(ctx context.Context, title string) (int, error) {
	if title == "" {
		return 0, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}

	n, err := s.docStore.DeleteByTitle(ctx, title)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting %q: %v", domain.ErrStoreFailure, title, err)
	}
	logger.Info("Deleted %d chunks of %q", n, title)
	return n, nil
}

// Search ranks stored documents by similarity to the query text.
func (s *KnowledgeService) Search(ctx context.Context, query string, k int) ([]domain.RetrievalResult, error) {
	return s.retrieval.Search(ctx, query, k)
}
