package mcp

import (
	"github.com/custodia-labs/sanad/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Ask answers questions. Required.
	Ask driving.AskService

	// Retrieval exposes evidence without generation.
	Retrieval driving.RetrievalService

	// Catalog lists manifest records and index statistics.
	Catalog driving.CatalogService

	// Snapshot serves page images.
	Snapshot driving.SnapshotService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Ask == nil {
		return ErrMissingAskService
	}
	// Retrieval, Catalog and Snapshot are optional; their tools and
	// resources are only registered when present.
	return nil
}
