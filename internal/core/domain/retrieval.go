package domain

// RetrievalResult is a single similarity-search hit. Results are
// produced fresh per query and never persisted.
type RetrievalResult struct {
	// DocumentID is the matched chunk row.
	DocumentID string

	// Title is the logical document name.
	Title string

	// Content is the stored (truncated) chunk text.
	Content string

	// Similarity is 1 - cosine distance, in [0, 1].
	Similarity float64

	// Metadata is the document's opaque metadata.
	Metadata map[string]any
}
