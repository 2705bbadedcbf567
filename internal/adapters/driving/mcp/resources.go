package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for sanad resources.
	uriScheme = "sanad://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Catalog != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "sources",
			Name:        "sources",
			Description: "Manifest of indexed documents and their publication URLs",
			MIMEType:    "application/json",
		}, s.handleSourcesResource)

		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "index",
			Name:        "index",
			Description: "Embedding index statistics",
			MIMEType:    "application/json",
		}, s.handleIndexResource)
	}

	if s.ports.Snapshot != nil {
		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: uriScheme + "snapshots/{filename}/{page}",
			Name:        "page-snapshot",
			Description: "PNG image of a cited document page",
			MIMEType:    "image/png",
		}, s.handleSnapshotResource)
	}
}

// handleSourcesResource returns the manifest records.
func (s *Server) handleSourcesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type sourceInfo struct {
		Filename string `json:"filename"`
		URL      string `json:"url"`
	}

	records := s.ports.Catalog.Sources()
	infos := make([]sourceInfo, len(records))
	for i, rec := range records {
		infos[i] = sourceInfo{Filename: rec.Filename, URL: rec.URL}
	}

	return jsonResult(req.Params.URI, infos)
}

// handleIndexResource returns index statistics.
func (s *Server) handleIndexResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	stats, err := s.ports.Catalog.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading index stats: %w", err)
	}

	return jsonResult(req.Params.URI, map[string]any{
		"units":       stats.Units,
		"documents":   stats.Documents,
		"model":       stats.Fingerprint.Model,
		"dimensions":  stats.Fingerprint.Dimensions,
		"fingerprint": stats.Fingerprint.String(),
	})
}

// handleSnapshotResource returns the PNG image of one page.
func (s *Server) handleSnapshotResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	filename, page, ok := parseSnapshotURI(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	ref, err := s.ports.Snapshot.Snapshot(ctx, filename, page)
	if err != nil {
		return nil, fmt.Errorf("rendering snapshot: %w", err)
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "image/png",
			Blob:     data,
		}},
	}, nil
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// snapshotURI builds sanad://snapshots/{filename}/{page}.
func snapshotURI(filename string, page int) string {
	return fmt.Sprintf("%ssnapshots/%s/%d", uriScheme, url.PathEscape(filename), page)
}

// parseSnapshotURI is the inverse of snapshotURI.
func parseSnapshotURI(uri string) (string, int, bool) {
	const prefix = uriScheme + "snapshots/"

	if !strings.HasPrefix(uri, prefix) {
		return "", 0, false
	}

	rest := strings.TrimPrefix(uri, prefix)
	i := strings.LastIndex(rest, "/")
	if i <= 0 {
		return "", 0, false
	}

	filename, err := url.PathUnescape(rest[:i])
	if err != nil || filename == "" {
		return "", 0, false
	}
	page, err := strconv.Atoi(rest[i+1:])
	if err != nil || page < 1 {
		return "", 0, false
	}
	return filename, page, true
}
