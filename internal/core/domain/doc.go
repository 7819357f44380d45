// Package domain defines the core business entities for Parley.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An embedded knowledge-base entry
//   - Message: One turn of a stored conversation
//   - Attachment: A file carried by a message
//   - RetrievalResult: A similarity-ranked search hit
//   - RoutingDecision: Which backend a model identifier maps to
//   - PromptMessage: Provider-neutral structured message content
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
