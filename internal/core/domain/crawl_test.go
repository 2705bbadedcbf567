package domain

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCrawlTargets_AreSeparateURLs(t *testing.T) {
	targets := DefaultCrawlTargets()
	require.Len(t, targets, 8)
	for _, target := range targets {
		u, err := url.Parse(target)
		require.NoError(t, err)
		assert.Equal(t, "www.bnm.gov.my", u.Host)
		assert.NotContains(t, u.Path, "https:")
	}
	assert.Equal(t, targets, DefaultAppSettings().Crawl.URLs)
	assert.Equal(t, 20, DefaultAppSettings().Crawl.MaxPages)
}

func TestCrawlReport_Count(t *testing.T) {
	r := &CrawlReport{Documents: []CrawledDocument{
		{Outcome: CrawlDownloaded},
		{Outcome: CrawlDownloaded},
		{Outcome: CrawlExisting},
		{Outcome: CrawlFailed, Err: errors.New("status 404")},
	}}
	assert.Equal(t, 2, r.Count(CrawlDownloaded))
	assert.Equal(t, 1, r.Count(CrawlExisting))
	assert.Equal(t, 1, r.Count(CrawlFailed))
	assert.Zero(t, (&CrawlReport{}).Count(CrawlDownloaded))
}
