// Package sqlite provides the persisted embedding index.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements driven.UnitStore:
// one row per indexed page, with its embedding stored as a float32 blob and
// nearest-neighbour search done by exact cosine similarity.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. The index_meta table records the on-disk format
// version and the pinned embedding model and dimensions.
//
// # Data Location
//
// By default, the database is stored at ~/.sanad/index/index.db
//
// # Handles
//
// Ingestion opens the store read-write with NewStore. Query processes open
// it with OpenReadOnly, which fails with domain.ErrIndexNotFound when no
// ingestion has run. Ingestion must not run while queries are active.
package sqlite
