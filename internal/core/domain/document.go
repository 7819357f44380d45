package domain

import "time"

// Document represents one stored knowledge-base entry: a chunk of a
// logical document together with its embedding.
//
// The ingestion policy stores exactly one chunk per title (content is
// truncated rather than split), so ChunkIndex is always 0 today. The
// field is kept so the storage schema does not change if chunking is
// introduced later.
type Document struct {
	// ID is the unique identifier for this chunk row.
	ID string

	// Title names the logical document. Several chunk rows may share
	// a title; deletion cascades over all of them.
	Title string

	// Content is the (possibly truncated) text that was embedded.
	Content string

	// ChunkIndex orders chunks within a title.
	ChunkIndex int

	// Embedding is the fixed-length vector representation of Content.
	// Every document in a store must have the same dimension.
	Embedding []float32

	// Metadata contains arbitrary key-value pairs supplied at ingestion.
	Metadata map[string]any

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document was last written.
	UpdatedAt time.Time
}

// DocumentGroup summarises all chunk rows sharing a title.
// Produced by listing, newest first.
type DocumentGroup struct {
	// Title is the logical document name.
	Title string

	// ChunkCount is the number of stored rows for this title.
	ChunkCount int

	// FirstChunkID is the id of the lowest-index chunk, usable as a
	// representative handle for the whole document.
	FirstChunkID string

	// CreatedAt is the earliest ingestion time across the chunks.
	CreatedAt time.Time

	// UpdatedAt is the latest write time across the chunks.
	UpdatedAt time.Time
}
