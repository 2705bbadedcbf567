package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sanad/internal/core/domain"
)

func crawled(name string, outcome domain.CrawlOutcome, err error) domain.CrawledDocument {
	return domain.CrawledDocument{
		Source:  domain.SourceRecord{Filename: name, URL: "https://www.bnm.gov.my/documents/" + name},
		Outcome: outcome,
		Err:     err,
	}
}

func TestCrawlCmd_UsesConfiguredListings(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.crawl.report = &domain.CrawlReport{
		Pages: 4,
		Documents: []domain.CrawledDocument{
			crawled("tawarruq.pdf", domain.CrawlDownloaded, nil),
			crawled("hibah.pdf", domain.CrawlExisting, nil),
		},
		Recorded: 2,
	}

	out, err := execute("crawl")

	require.NoError(t, err)
	assert.True(t, ts.crawl.called)
	assert.Empty(t, ts.crawl.listings)
	assert.Contains(t, out, "new    tawarruq.pdf")
	assert.NotContains(t, out, "hibah.pdf")
	assert.Contains(t, out, "Visited 4 listing pages and found 2 documents: 1 downloaded, 1 already present, 0 failed.")
	assert.Contains(t, out, "Added 2 sources to the manifest.")
	assert.Contains(t, out, "sanad ingest")
}

func TestCrawlCmd_ExplicitListings(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("crawl", "https://www.bnm.gov.my/dnfbp")

	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.bnm.gov.my/dnfbp"}, ts.crawl.listings)
	assert.Contains(t, out, "found 0 documents")
	assert.NotContains(t, out, "sanad ingest")
}

func TestCrawlCmd_ReportsFailures(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	listingErr := errors.New("https://www.bnm.gov.my/dnfbp: status 503")
	ts.crawl.report = &domain.CrawlReport{
		Pages:         1,
		ListingErrors: []error{listingErr},
		Documents:     []domain.CrawledDocument{crawled("blocked.pdf", domain.CrawlFailed, domain.ErrNotDocument)},
	}
	ts.crawl.err = errors.Join(listingErr, domain.ErrNotDocument)

	out, err := execute("crawl")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotDocument)
	assert.Contains(t, out, "status 503")
	assert.Contains(t, out, "blocked.pdf: not a PDF document")
	assert.Contains(t, out, "1 failed.")
}

func TestCrawlCmd_NotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	crawlService = nil

	_, err := execute("crawl")
	assert.EqualError(t, err, "crawl service not configured")
}
