package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/kbassist/internal/core/domain"
)

// defaultSearchLimit applies when the caller gives no limit.
const defaultSearchLimit = 5

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the text to find similar document passages for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of documents to return (default 5)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results  []SearchResultOutput `json:"results"`
	Count    int                  `json:"count"`
	Degraded bool                 `json:"degraded,omitempty"`
}

// SearchResultOutput represents a single matched document.
type SearchResultOutput struct {
	DocumentID int64   `json:"document_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
	Excerpt    string  `json:"excerpt"`
	Chunks     int     `json:"chunks"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Message     string  `json:"message" jsonschema:"the question to answer"`
	NoDocuments bool    `json:"no_documents,omitempty" jsonschema:"answer without consulting indexed documents"`
	DocumentIDs []int64 `json:"document_ids,omitempty" jsonschema:"answer from these documents only"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer   string               `json:"answer"`
	Sources  []SearchResultOutput `json:"sources,omitempty"`
	Degraded bool                 `json:"degraded,omitempty"`
}

// DocumentListOutput is the output schema for the list_documents tool.
type DocumentListOutput struct {
	Documents []DocumentInfo `json:"documents"`
	Count     int            `json:"count"`
}

// DocumentInfo describes one indexed document.
type DocumentInfo struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	FileType    string `json:"file_type"`
	VectorCount int    `json:"vector_count"`
	URI         string `json:"uri"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find indexed documents similar to a query",
	}, s.handleSearch)

	if s.ports.Chat != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask",
			Description: "Answer a question using the indexed documents as reference material",
		}, s.handleAsk)
	}

	if s.ports.Documents != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_documents",
			Description: "List documents that finished processing",
		}, s.handleListDocuments)
	}
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	if input.Query == "" {
		return nil, SearchOutput{}, errors.New("query is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	r := s.ports.Retrieval.Query(ctx, s.ports.OwnerID, input.Query, limit)
	results := toResultOutputs(r.Value)
	return nil, SearchOutput{
		Results:  results,
		Count:    len(results),
		Degraded: !r.OK(),
	}, nil
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	resp, err := s.ports.Chat.Reply(ctx, domain.ChatRequest{
		OwnerID:      s.ports.OwnerID,
		Message:      input.Message,
		UseDocuments: !input.NoDocuments,
		DocumentIDs:  input.DocumentIDs,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{
		Answer:   resp.Message,
		Sources:  toResultOutputs(resp.Sources),
		Degraded: resp.Degraded,
	}, nil
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, DocumentListOutput, error) {
	summaries, err := s.ports.Documents.Summaries(ctx, s.ports.OwnerID)
	if err != nil {
		return nil, DocumentListOutput{}, fmt.Errorf("listing documents: %w", err)
	}
	infos := toDocumentInfos(summaries)
	return nil, DocumentListOutput{Documents: infos, Count: len(infos)}, nil
}

func toResultOutputs(results []domain.SearchResult) []SearchResultOutput {
	out := make([]SearchResultOutput, len(results))
	for i := range results {
		out[i] = SearchResultOutput{
			DocumentID: results[i].DocumentID,
			Title:      results[i].Title,
			Score:      results[i].Score,
			Excerpt:    results[i].Content,
			Chunks:     results[i].ChunkCount,
		}
	}
	return out
}

func toDocumentInfos(summaries []domain.DocumentSummary) []DocumentInfo {
	out := make([]DocumentInfo, len(summaries))
	for i := range summaries {
		out[i] = DocumentInfo{
			ID:          summaries[i].ID,
			Title:       summaries[i].Title,
			FileType:    summaries[i].FileType,
			VectorCount: summaries[i].VectorCount,
			URI:         documentURI(summaries[i].ID),
		}
	}
	return out
}
