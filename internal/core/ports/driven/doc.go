// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - UnitStore: Persisted text units and their embeddings (SQLite)
//   - EmbeddingService: Generates vector embeddings for units and queries
//   - SourceResolver: Maps document filenames to publication URLs (manifest)
//   - PageReader: Extracts per-page text from a document
//   - ConfigStore: Application configuration
//
// # Query-time Interfaces
//
//   - LLMService: Answer generation. Without it, questions cannot be answered.
//   - SnapshotIndex: Page images for citations. Failures degrade a citation only.
//   - PromptStore: Customisable prompt templates with embedded defaults.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
