package driven

import "github.com/custodia-labs/sanad/internal/core/domain"

// SourceResolver maps document filenames to their authoritative publication URL.
type SourceResolver interface {
	// Resolve returns the URL for filename. Lookup is case-insensitive and
	// fails with domain.ErrUnknownSource when filename has no record.
	Resolve(filename string) (string, error)

	// Records returns every record in manifest order.
	Records() []domain.SourceRecord
}

// SourceRecorder adds records to the source manifest.
type SourceRecorder interface {
	// Record appends every record whose filename is not yet listed and
	// returns how many were added. Existing rows are never changed.
	Record(records []domain.SourceRecord) (int, error)
}
