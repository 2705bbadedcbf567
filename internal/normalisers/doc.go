// Package normalisers turns documents into per-page text and page images.
// Each format package provides a PageReader and a PageRenderer; the
// Registry dispatches on file extension.
//
// Readers are registered with the Registry at startup.
package normalisers
