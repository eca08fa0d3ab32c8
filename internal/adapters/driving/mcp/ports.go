package mcp

import (
	"github.com/custodia-labs/kbassist/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls into.
type Ports struct {
	// Retrieval answers the search tool.
	Retrieval driving.RetrievalService

	// Chat answers the ask tool. Optional.
	Chat driving.ChatService

	// Documents backs list_documents and the document resources. Optional.
	Documents driving.DocumentService

	// OwnerID is the principal every request is made on behalf of.
	OwnerID int64
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
