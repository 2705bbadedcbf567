package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driving"
)

var (
	ingestReset  bool
	ingestWatch  bool
	ingestDryRun bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Index documents into the embedding index",
	Long: `Extracts the text of every page, embeds it and stores it in the index.
Paths may be files, directories or glob patterns; with no paths the corpus
folder (corpus.dir) is ingested. Every document must be listed in the source
manifest. A document that fails is reported and skipped.

Use --watch to keep running and re-ingest documents as they change.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestReset, "reset", false, "clear the index before ingesting")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "re-ingest documents when they change")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "ingest into a throwaway in-memory index")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	access := AccessWrite
	if ingestDryRun {
		access = AccessMemory
	}
	return withServices(access, ingest)(cmd, args)
}

func ingest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	paths := args
	if len(paths) == 0 {
		if corpusWatcher == nil {
			return errors.New("no paths given and no corpus folder configured")
		}
		paths = []string{corpusWatcher.Root()}
	}

	ctx := commandContext(cmd)

	if ingestReset {
		if err := ingestService.Reset(ctx); err != nil {
			return err
		}
		cmd.Println("Index cleared.")
	}

	cmd.Printf("Ingesting %d path(s)...\n", len(paths))
	report, err := ingestService.Ingest(ctx, paths)
	if report != nil {
		printIngestReport(cmd, report)
	}
	if !ingestWatch {
		if err != nil {
			return fmt.Errorf("ingest finished with errors: %w", err)
		}
		return nil
	}
	if err != nil && report == nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	return watchCorpus(ctx, cmd, ingestService)
}

func printIngestReport(cmd *cobra.Command, report *domain.IngestReport) {
	st := newStyles(cmd.OutOrStdout())
	for _, doc := range report.Documents {
		if doc.Err != nil {
			cmd.Printf("  %s %s: %v\n", st.warning.Render("FAILED"), doc.Filename, doc.Err)
			continue
		}
		line := fmt.Sprintf("  ok     %s: %d pages", doc.Filename, doc.Units)
		if doc.SkippedPages > 0 {
			line += st.muted.Render(fmt.Sprintf(" (%d empty pages skipped)", doc.SkippedPages))
		}
		cmd.Println(line)
	}
	cmd.Printf("Ingested %d documents, %d failed.\n", report.Succeeded(), report.Failed())
}

// watchCorpus re-ingests documents as they change until ctx is cancelled.
func watchCorpus(ctx context.Context, cmd *cobra.Command, svc driving.IngestService) error {
	if corpusWatcher == nil {
		return errors.New("watch: no corpus folder configured")
	}

	changes, err := corpusWatcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	cmd.Printf("Watching %s for changes (Ctrl+C to stop)...\n", corpusWatcher.Root())
	for path := range changes {
		doc := svc.IngestFile(ctx, path)
		if doc.Err != nil {
			cmd.Printf("  FAILED %s: %v\n", doc.Filename, doc.Err)
			continue
		}
		cmd.Printf("  ok     %s: %d pages\n", doc.Filename, doc.Units)
	}
	return nil
}
