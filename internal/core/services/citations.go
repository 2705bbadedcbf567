package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
	"github.com/custodia-labs/sanad/internal/logger"
)

// DefaultCitationConcurrency bounds parallel URL and snapshot lookups.
const DefaultCitationConcurrency = 4

// Warning texts attached to degraded citations.
const (
	WarnLinkUnavailable     = "source reference only, link unavailable"
	WarnSnapshotUnavailable = "page image unavailable"
)

// CitationResolver turns used evidence into citations with a publication
// URL and a page image. Lookup failures degrade the citation, never drop it.
type CitationResolver struct {
	sources     driven.SourceResolver
	snapshots   driven.SnapshotIndex
	concurrency int
}

// NewCitationResolver creates a resolver. Either dependency may be nil, in
// which case that half of every citation is left empty with a warning.
func NewCitationResolver(sources driven.SourceResolver, snapshots driven.SnapshotIndex) *CitationResolver {
	return &CitationResolver{
		sources:     sources,
		snapshots:   snapshots,
		concurrency: DefaultCitationConcurrency,
	}
}

// Resolve returns one citation per distinct (filename, page) in evidence,
// in evidence order.
func (r *CitationResolver) Resolve(ctx context.Context, evidence []domain.EvidenceUnit) []domain.Citation {
	citations := make([]domain.Citation, 0, len(evidence))
	seen := make(map[domain.UnitKey]struct{}, len(evidence))
	for _, ev := range evidence {
		key := ev.Unit.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		citations = append(citations, domain.Citation{
			Filename:   key.Filename,
			PageNumber: key.PageNumber,
		})
	}
	if len(citations) == 0 {
		return citations
	}

	// Each goroutine owns one slot, so output order is evidence order.
	urls := make([]string, len(citations))
	snaps := make([]string, len(citations))
	urlErrs := make([]error, len(citations))
	snapErrs := make([]error, len(citations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i := range citations {
		c := citations[i]
		g.Go(func() error {
			urls[i], urlErrs[i] = r.resolveURL(c.Filename)
			return nil
		})
		g.Go(func() error {
			snaps[i], snapErrs[i] = r.resolveSnapshot(gctx, c.Filename, c.PageNumber)
			return nil
		})
	}
	_ = g.Wait()

	for i := range citations {
		citations[i].URL = urls[i]
		citations[i].SnapshotRef = snaps[i]
		if urlErrs[i] != nil {
			logger.Warn("Citation %s page %d: %v", citations[i].Filename, citations[i].PageNumber, urlErrs[i])
			citations[i].Warnings = append(citations[i].Warnings, WarnLinkUnavailable)
		}
		if snapErrs[i] != nil {
			logger.Warn("Citation %s page %d: %v", citations[i].Filename, citations[i].PageNumber, snapErrs[i])
			citations[i].Warnings = append(citations[i].Warnings,
				fmt.Sprintf("%s: %v", WarnSnapshotUnavailable, snapErrs[i]))
		}
	}
	return citations
}

func (r *CitationResolver) resolveURL(filename string) (string, error) {
	if r.sources == nil {
		return "", fmt.Errorf("%w: no manifest loaded", domain.ErrUnknownSource)
	}
	return r.sources.Resolve(filename)
}

func (r *CitationResolver) resolveSnapshot(ctx context.Context, filename string, page int) (string, error) {
	if r.snapshots == nil {
		return "", fmt.Errorf("%w: snapshots disabled", domain.ErrPageRender)
	}
	ref, err := r.snapshots.Get(ctx, filename, page)
	if err != nil && !errors.Is(err, domain.ErrPageRender) {
		err = fmt.Errorf("%w: %w", domain.ErrPageRender, err)
	}
	return ref, err
}
