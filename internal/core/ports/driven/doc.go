// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Turns text into fixed-length vectors
//   - DocumentStore: Knowledge-base persistence
//   - ConversationStore: Conversation and message persistence (external
//     collaborator; adapters are thin)
//   - FileStore: Reads stored attachment bytes
//
// # Backend Interfaces
//
// One per generation backend; each has its own transport, timeout and
// cost-accounting rules:
//
//   - CloudLLM: Hosted API with exact usage accounting
//   - LocalLLM: Local inference host, flat prompts, no usage reporting
//   - RAGBackend: Retrieval-augmented local inference endpoint
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
