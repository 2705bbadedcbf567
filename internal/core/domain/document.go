package domain

import "fmt"

// Page is the extracted text of one physical page of a document.
type Page struct {
	// Number is the 1-indexed physical page number.
	Number int

	// Text is the raw extracted text of the page.
	Text string
}

// UnitKey identifies a page of a document. At most one TextUnit exists per key.
type UnitKey struct {
	Filename   string
	PageNumber int
}

// String returns "filename#page".
func (k UnitKey) String() string {
	return fmt.Sprintf("%s#%d", k.Filename, k.PageNumber)
}

// TextUnit is the atomic retrievable unit: the text of exactly one page.
// It is created once per page at ingestion and never mutated afterwards.
type TextUnit struct {
	// ID is derived from the unit key, so re-ingesting a page yields the same ID.
	ID string

	// Filename is the originating document's base filename.
	Filename string

	// PageNumber is the 1-indexed physical page the text came from.
	PageNumber int

	// Text is the page's extracted text.
	Text string

	// Embedding is the vector representation, set by the embedding index.
	Embedding []float32
}

// Key returns the unit's (filename, page) identity.
func (u TextUnit) Key() UnitKey {
	return UnitKey{Filename: u.Filename, PageNumber: u.PageNumber}
}

// EmbeddingFingerprint identifies the embedding function an index was built with.
// Query-time embeddings must come from the same function.
type EmbeddingFingerprint struct {
	// Model is the embedding model name.
	Model string

	// Dimensions is the vector length the model produces.
	Dimensions int
}

// IsZero reports whether no fingerprint has been recorded.
func (f EmbeddingFingerprint) IsZero() bool {
	return f.Model == "" && f.Dimensions == 0
}

// String returns "model/dims".
func (f EmbeddingFingerprint) String() string {
	return fmt.Sprintf("%s/%d", f.Model, f.Dimensions)
}

// IndexStats summarises a persisted index.
type IndexStats struct {
	Units       int
	Documents   int
	Fingerprint EmbeddingFingerprint
}

// DocumentReport records the outcome of ingesting one document.
type DocumentReport struct {
	Filename     string
	Units        int
	SkippedPages int
	Err          error
}

// IngestReport records the outcome of one ingestion run.
type IngestReport struct {
	Documents []DocumentReport
}

// Succeeded returns the number of documents ingested without error.
func (r *IngestReport) Succeeded() int {
	n := 0
	for _, d := range r.Documents {
		if d.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of documents that were aborted.
func (r *IngestReport) Failed() int {
	return len(r.Documents) - r.Succeeded()
}

// ChunkedDocument is the outcome of chunking one document.
type ChunkedDocument struct {
	// Filename is the document's base name.
	Filename string

	// Units holds one unit per indexed page, in page order.
	Units []TextUnit

	// Pages is the document's physical page count.
	Pages int
}

// Skipped returns the number of pages left out for being (nearly) empty.
func (d *ChunkedDocument) Skipped() int {
	return d.Pages - len(d.Units)
}
