package domain

// DefaultCrawlTargets are the Bank Negara Malaysia listings the corpus is
// built from.
func DefaultCrawlTargets() []string {
	return []string{
		"https://www.bnm.gov.my/banking-islamic-banking",
		"https://www.bnm.gov.my/insurance-takaful",
		"https://www.bnm.gov.my/development-financial-institutions",
		"https://www.bnm.gov.my/money-services-business",
		"https://www.bnm.gov.my/intermediaries",
		"https://www.bnm.gov.my/payment-systems",
		"https://www.bnm.gov.my/dnfbp",
		"https://www.bnm.gov.my/regulations/currency",
	}
}

// CrawlOutcome is what happened to one discovered document.
type CrawlOutcome int

const (
	// CrawlDownloaded means the document was fetched into the corpus folder.
	CrawlDownloaded CrawlOutcome = iota
	// CrawlExisting means a file of that name was already in the corpus folder.
	CrawlExisting
	// CrawlFailed means the download failed; Err says why.
	CrawlFailed
)

// CrawledDocument is one PDF link found on a listing.
type CrawledDocument struct {
	Source  SourceRecord
	Outcome CrawlOutcome
	Err     error
}

// CrawlReport records the outcome of one crawl.
type CrawlReport struct {
	// Pages is the number of listing pages visited.
	Pages int

	// Documents holds every unique PDF link, in discovery order.
	Documents []CrawledDocument

	// ListingErrors are listings that could not be walked to the end.
	ListingErrors []error

	// Recorded is the number of rows added to the source manifest.
	Recorded int
}

// Count returns how many documents ended with outcome.
func (r *CrawlReport) Count(outcome CrawlOutcome) int {
	n := 0
	for _, d := range r.Documents {
		if d.Outcome == outcome {
			n++
		}
	}
	return n
}
