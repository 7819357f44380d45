package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/conduitworks/parley/internal/core/domain"
	"github.com/conduitworks/parley/internal/core/ports/driven"
	"github.com/conduitworks/parley/internal/logger"
)

// contextPreamble opens the assembled context block sent to a
// retrieval-augmented backend.
const contextPreamble = "Here is relevant information from the knowledge base:\n\n"

// RetrievalService ranks stored documents by similarity to a query.
type RetrievalService struct {
	docStore  driven.DocumentStore
	embedding driven.EmbeddingService
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(docStore driven.DocumentStore, embedding driven.EmbeddingService) *RetrievalService {
	return &RetrievalService{
		docStore:  docStore,
		embedding: embedding,
	}
}

// Search embeds the query, scores every stored document by cosine
// similarity and returns the top k. Ties keep insertion order (oldest
// first), so repeated queries against an unchanged store return
// identical orderings. An empty store yields an empty result list.
func (s *RetrievalService) Search(ctx context.Context, query string, k int) ([]domain.RetrievalResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: top-k must be positive, got %d", domain.ErrInvalidInput, k)
	}

	logger.Section("Retrieval")
	logger.Debug("Query: %q, k=%d", query, k)

	queryVec, err := s.embedding.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	docs, err := s.docStore.AllDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: loading documents: %v", domain.ErrStoreFailure, err)
	}
	logger.Debug("Scanning %d stored documents", len(docs))

	results := make([]domain.RetrievalResult, 0, len(docs))
	for _, doc := range docs {
		results = append(results, domain.RetrievalResult{
			DocumentID: doc.ID,
			Title:      doc.Title,
			Content:    doc.Content,
			Similarity: cosineSimilarity(queryVec, doc.Embedding),
			Metadata:   doc.Metadata,
		})
	}

	// Stable sort preserves the store's insertion order on ties.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > k {
		results = results[:k]
	}

	logger.Info("Retrieval: %d results", len(results))
	return results, nil
}

// BuildContext formats retrieval results into a single text block to
// prepend to a prompt. It is a pure function: results are rendered in
// the given order, never re-ranked or filtered. Empty input yields the
// empty string, signalling "no augmentation".
func BuildContext(results []domain.RetrievalResult) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(contextPreamble)
	for i, r := range results {
		fmt.Fprintf(&b, "[Source %d: %s]\n", i+1, r.Title)
		b.WriteString(r.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

// cosineSimilarity returns 1 - cosine distance between two vectors.
// A zero vector on either side scores 0. Rounding can push the value
// a hair outside [0, 1], so it is clamped.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
