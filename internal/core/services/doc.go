// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The query path is Retriever, then AnswerComposer, then CitationResolver.
// The ingest path is IngestService feeding the EmbeddingIndex.
package services
