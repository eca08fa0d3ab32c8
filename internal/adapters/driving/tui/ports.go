// Package tui provides an interactive terminal chat for kbassist.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/kbassist/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the TUI.
type Ports struct {
	// Chat answers messages. Required.
	Chat driving.ChatService

	// Retrieval backs the search view. Optional.
	Retrieval driving.RetrievalService

	// Documents backs the documents view. Optional.
	Documents driving.DocumentService

	// OwnerID is the principal every request is made as.
	OwnerID int64
}

// NewPorts creates a Ports aggregate with the given services.
func NewPorts(
	chat driving.ChatService,
	retrieval driving.RetrievalService,
	documents driving.DocumentService,
	ownerID int64,
) *Ports {
	return &Ports{
		Chat:      chat,
		Retrieval: retrieval,
		Documents: documents,
		OwnerID:   ownerID,
	}
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}
