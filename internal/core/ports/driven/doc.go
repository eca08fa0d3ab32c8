// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Normaliser / NormaliserRegistry: Extracts plain text from files
//   - Chunker: Splits text into segments
//   - DocumentStore: Document persistence
//   - VectorIndex: Vector storage and similarity search
//   - CompletionAPI: The remote chat-completion endpoint
//   - ConfigStore / PromptStore: Persisted settings and prompt overrides
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Without it, every embedding is a zero vector and
//     retrieval returns nothing.
//   - Reranker: Without it, candidates keep their similarity order.
//   - EmbeddingCache: Without it, every text is sent to the provider.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
