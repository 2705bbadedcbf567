package driven

import "context"

// SnapshotIndex serves page images addressed by (filename, page).
// Rendering is deterministic and cached: the first request renders,
// later requests are cache hits.
type SnapshotIndex interface {
	// Get returns a reference (file path) to the PNG for page of filename.
	// Fails with domain.ErrPageRender when the page is out of range or
	// rendering fails.
	Get(ctx context.Context, filename string, page int) (string, error)
}
