package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sanad/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the regulatory documents"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Mode       string           `json:"mode"`
	Answer     string           `json:"answer"`
	Citations  []CitationOutput `json:"citations"`
	Followups  []string         `json:"followups"`
	Disclaimer string           `json:"disclaimer,omitempty"`
}

// CitationOutput is one cited page.
type CitationOutput struct {
	Filename    string   `json:"filename"`
	Page        int      `json:"page"`
	URL         string   `json:"url,omitempty"`
	SnapshotURI string   `json:"snapshot_uri,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the text to find matching document pages for"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Evidence []EvidenceOutput `json:"evidence"`
	Count    int              `json:"count"`
}

// EvidenceOutput is one retrieved page.
type EvidenceOutput struct {
	Filename string  `json:"filename"`
	Page     int     `json:"page"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "ask",
		Description: "Answer a question from the indexed regulatory documents. " +
			"Grounded answers cite filename, page and publication URL; " +
			"when nothing matches, a general-knowledge answer is returned with a disclaimer and no citations.",
	}, s.handleAsk)

	if s.ports.Retrieval != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "retrieve",
			Description: "Return the document pages most similar to a query, without generating an answer",
		}, s.handleRetrieve)
	}
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	result, err := s.ports.Ask.Ask(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Mode:      result.Mode.String(),
		Answer:    result.AnswerText,
		Citations: make([]CitationOutput, len(result.Citations)),
		Followups: result.SuggestedFollowups,
	}
	if output.Followups == nil {
		output.Followups = []string{}
	}
	if result.Mode == domain.ModeGeneral {
		output.Disclaimer = domain.GeneralDisclaimer
	}

	for i, c := range result.Citations {
		output.Citations[i] = CitationOutput{
			Filename: c.Filename,
			Page:     c.PageNumber,
			URL:      c.URL,
			Warnings: c.Warnings,
		}
		if c.HasSnapshot() {
			output.Citations[i].SnapshotURI = snapshotURI(c.Filename, c.PageNumber)
		}
	}

	return nil, output, nil
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if s.ports.Retrieval == nil {
		return nil, RetrieveOutput{}, errors.New("retrieval is not available")
	}

	evidence, err := s.ports.Retrieval.Retrieve(ctx, input.Query)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Evidence: make([]EvidenceOutput, len(evidence)),
		Count:    len(evidence),
	}
	for i, ev := range evidence {
		output.Evidence[i] = EvidenceOutput{
			Filename: ev.Unit.Filename,
			Page:     ev.Unit.PageNumber,
			Score:    ev.Score,
			Text:     ev.Unit.Text,
		}
	}

	return nil, output, nil
}
