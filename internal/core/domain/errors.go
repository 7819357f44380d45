package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input. Turns are
	// aborted on this before any backend call is made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBackendUnreachable indicates a local generation backend could
	// not be reached (connection refused or timed out). Wrapping errors
	// name the endpoint so the caller can tell which subsystem is down.
	ErrBackendUnreachable = errors.New("backend unreachable")

	// ErrBackendRejected indicates the cloud backend returned an
	// API-level error; the backend's own message is wrapped alongside.
	ErrBackendRejected = errors.New("backend rejected request")

	// ErrStoreFailure indicates a persistence failure during ingestion
	// or search. A document is never left half-written: embedding
	// happens before any row is inserted.
	ErrStoreFailure = errors.New("store failure")
)
