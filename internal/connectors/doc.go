// Package connectors provides the document sources sanad ingests from.
// The filesystem connector lists, expands and watches a flat folder of
// documents. The web connector fills that folder from a publisher's
// listing pages.
package connectors
