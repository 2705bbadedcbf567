package domain

import "strings"

// SourceRecord maps a local document filename to its authoritative publication URL.
type SourceRecord struct {
	// Filename is the document's base filename as found in the corpus folder.
	Filename string

	// URL is the absolute http(s) address the document was published at.
	URL string
}

// NormaliseFilename returns the manifest lookup key for a filename.
// Keys are trimmed and case-insensitive.
func NormaliseFilename(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
