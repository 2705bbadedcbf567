package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sanad/internal/core/domain"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [listing-url...]",
	Short: "Download published documents into the corpus folder",
	Long: `Walks the publisher's listing pages, following each "Next" link up to
crawl.max_pages pages, and downloads every linked PDF into the corpus folder
(corpus.dir). Files already there are not fetched again. Each document's
publication URL is added to the source manifest unless its filename is
already listed.

With no arguments the listings in crawl.urls are walked.`,
	RunE: withServices(AccessCrawl, runCrawl),
}

func init() {
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	if crawlService == nil {
		return errors.New("crawl service not configured")
	}

	report, err := crawlService.Crawl(commandContext(cmd), args)
	if report != nil {
		printCrawlReport(cmd, report)
	}
	if err != nil {
		return fmt.Errorf("crawl finished with errors: %w", err)
	}
	return nil
}

func printCrawlReport(cmd *cobra.Command, report *domain.CrawlReport) {
	st := newStyles(cmd.OutOrStdout())
	for _, err := range report.ListingErrors {
		cmd.Printf("  %s %v\n", st.warning.Render("FAILED"), err)
	}
	for _, doc := range report.Documents {
		switch doc.Outcome {
		case domain.CrawlFailed:
			cmd.Printf("  %s %s: %v\n", st.warning.Render("FAILED"), doc.Source.Filename, doc.Err)
		case domain.CrawlDownloaded:
			cmd.Printf("  new    %s\n", doc.Source.Filename)
		}
	}

	cmd.Printf("Visited %d listing pages and found %d documents: %d downloaded, %d already present, %d failed.\n",
		report.Pages, len(report.Documents), report.Count(domain.CrawlDownloaded),
		report.Count(domain.CrawlExisting), report.Count(domain.CrawlFailed))
	if report.Recorded > 0 {
		cmd.Printf("Added %d sources to the manifest.\n", report.Recorded)
	}
	if report.Count(domain.CrawlDownloaded) > 0 {
		cmd.Println(st.muted.Render("Run 'sanad ingest' to index them."))
	}
}
