package domain

// ChatRequest is a single chat turn.
type ChatRequest struct {
	// OwnerID is the principal sending the message.
	OwnerID int64

	// Message is the user's question.
	Message string

	// UseDocuments enables similarity retrieval over the owner's documents.
	UseDocuments bool

	// DocumentIDs selects documents whose full content is used as context.
	// When set, similarity retrieval is skipped.
	DocumentIDs []int64
}

// ChatResponse is the answer to a chat turn.
type ChatResponse struct {
	Message string

	// Sources are the retrieval hits used to build the context.
	Sources []SearchResult

	// Degraded is true when the answer is a canned fallback or a
	// partially streamed reply.
	Degraded bool
}
