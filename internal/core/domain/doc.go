// Package domain defines the core business entities for kbassist.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: an uploaded document and its processing lifecycle
//   - Chunk: a segment of a document's text with its embedding
//   - VectorRecord / VectorHit: what the vector index stores and returns
//   - SearchResult: a per-document retrieval hit
//   - Result: an explicit success-or-degraded outcome
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
