package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a document format with no page reader.
	ErrUnsupportedType = errors.New("unsupported type")

	// Manifest Errors.

	// ErrManifestFormat indicates the manifest header is missing or a row is malformed.
	ErrManifestFormat = errors.New("manifest format error")

	// ErrDuplicateSource indicates a filename appears more than once in the manifest.
	ErrDuplicateSource = errors.New("duplicate source")

	// ErrUnknownSource indicates a filename has no manifest row.
	// At ingestion this aborts the document; at query time the citation degrades.
	ErrUnknownSource = errors.New("unknown source")

	// ErrNotDocument indicates a crawled link did not serve a PDF.
	ErrNotDocument = errors.New("not a PDF document")

	// Query Errors.

	// ErrPageRender indicates a page image could not be produced.
	ErrPageRender = errors.New("page render failed")

	// ErrGenerationUnavailable indicates the answer service failed or is unreachable.
	// The query produces no answer.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Index Errors.

	// ErrEmbeddingMismatch indicates the query embedding function differs from
	// the one the index was built with.
	ErrEmbeddingMismatch = errors.New("embedding function mismatch")

	// ErrIndexNotFound indicates no persisted index exists at the configured path.
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexVersion indicates the persisted index has an unsupported format version.
	ErrIndexVersion = errors.New("unsupported index version")
)
