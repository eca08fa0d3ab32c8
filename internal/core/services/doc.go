// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The RAG pipeline lives here: the embedding engine, retrieval,
// context assembly and generation with retry and fallback. Every
// dependency on an external system degrades to a usable value rather
// than an error; see domain.Result.
package services
