package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
	"github.com/custodia-labs/sanad/internal/core/ports/driving"
	"github.com/custodia-labs/sanad/internal/logger"
)

// Ensure CrawlService implements the interface.
var _ driving.CrawlService = (*CrawlService)(nil)

// CrawlService fills the corpus folder from the publisher's listings and
// records the publication URL of every document it finds there.
type CrawlService struct {
	crawler  driven.SourceCrawler
	recorder driven.SourceRecorder
	targets  []string
}

// NewCrawlService creates a crawl service. targets are crawled when Crawl
// is given no listings; recorder may be nil to skip the manifest.
func NewCrawlService(crawler driven.SourceCrawler, recorder driven.SourceRecorder, targets []string) *CrawlService {
	return &CrawlService{
		crawler:  crawler,
		recorder: recorder,
		targets:  targets,
	}
}

// Crawl discovers every listing first, then downloads each unique document.
// Files already in the corpus folder are not fetched again but are still
// recorded, so the manifest covers everything the crawl has seen.
func (s *CrawlService) Crawl(ctx context.Context, listings []string) (*domain.CrawlReport, error) {
	logger.Section("Crawl")

	if len(listings) == 0 {
		listings = s.targets
	}
	if len(listings) == 0 {
		return nil, fmt.Errorf("%w: no listing URLs to crawl", domain.ErrInvalidInput)
	}

	report := &domain.CrawlReport{}
	var errs []error

	found := s.discover(ctx, listings, report)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	logger.Info("Found %d documents on %d listing pages", len(found), report.Pages)

	var present []domain.SourceRecord
	for i, rec := range found {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		doc := domain.CrawledDocument{Source: rec}
		fetched, err := s.crawler.Fetch(ctx, rec)
		switch {
		case err != nil:
			logger.Warn("[%d/%d] %s: %v", i+1, len(found), rec.Filename, err)
			doc.Outcome, doc.Err = domain.CrawlFailed, err
			errs = append(errs, fmt.Errorf("%s: %w", rec.Filename, err))
		case fetched:
			logger.Debug("[%d/%d] Downloaded %s", i+1, len(found), rec.Filename)
			doc.Outcome = domain.CrawlDownloaded
		default:
			doc.Outcome = domain.CrawlExisting
		}
		if doc.Err == nil {
			present = append(present, rec)
		}
		report.Documents = append(report.Documents, doc)
	}

	if s.recorder != nil && len(present) > 0 {
		n, err := s.recorder.Record(present)
		if err != nil {
			errs = append(errs, fmt.Errorf("record sources: %w", err))
		}
		report.Recorded = n
	}

	logger.Info("Downloaded %d documents, %d already present, %d failed",
		report.Count(domain.CrawlDownloaded), report.Count(domain.CrawlExisting), report.Count(domain.CrawlFailed))
	return report, errors.Join(slices.Concat(report.ListingErrors, errs)...)
}

// discover walks every listing and returns the unique documents in order.
// Two links sharing a filename would overwrite each other, so the first wins.
func (s *CrawlService) discover(ctx context.Context, listings []string, report *domain.CrawlReport) []domain.SourceRecord {
	var found []domain.SourceRecord
	byName := make(map[string]string)

	for _, listing := range listings {
		if ctx.Err() != nil {
			break
		}
		logger.Info("Crawling %s", listing)

		records, pages, err := s.crawler.Discover(ctx, listing)
		report.Pages += pages
		if err != nil {
			logger.Warn("%s: %v", listing, err)
			report.ListingErrors = append(report.ListingErrors, fmt.Errorf("%s: %w", listing, err))
		}

		for _, rec := range records {
			key := domain.NormaliseFilename(rec.Filename)
			if prev, dup := byName[key]; dup {
				if prev != rec.URL {
					logger.Warn("Skipping %s: %s already comes from %s", rec.URL, rec.Filename, prev)
				}
				continue
			}
			byName[key] = rec.URL
			found = append(found, rec)
		}
	}
	return found
}
