// Package domain defines the core business entities for sanad.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceRecord: A manifest row mapping a document to its publication URL
//   - TextUnit: One page of extracted text with its provenance
//   - EvidenceUnit: A retrieved TextUnit with its similarity score
//   - Citation: A user-facing reference to a page actually used in an answer
//   - AnswerResult: The outcome of one question, with its grounding mode
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
