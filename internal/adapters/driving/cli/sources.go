package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var sourcesOutput string

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the documents in the source manifest",
	RunE:  withServices(AccessRead, runSources),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the embedding index",
	RunE:  withServices(AccessRead, runStatus),
}

func init() {
	sourcesCmd.Flags().StringVarP(&sourcesOutput, "output", "o", outputText, "output format: text, json or yaml")
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(statusCmd)
}

type sourceResult struct {
	Filename string `json:"filename" yaml:"filename"`
	URL      string `json:"url" yaml:"url"`
}

func runSources(cmd *cobra.Command, _ []string) error {
	if err := validateOutput(sourcesOutput); err != nil {
		return err
	}
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	records := catalogService.Sources()
	if sourcesOutput != outputText {
		out := make([]sourceResult, len(records))
		for i, r := range records {
			out[i] = sourceResult{Filename: r.Filename, URL: r.URL}
		}
		return writeStructured(cmd.OutOrStdout(), sourcesOutput, out)
	}

	if len(records) == 0 {
		cmd.Println("No sources in the manifest.")
		return nil
	}

	cmd.Println("Sources:")
	for _, r := range records {
		cmd.Printf("  %s\n      %s\n", r.Filename, r.URL)
	}
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	cmd.Printf("Manifest: %d sources\n", len(catalogService.Sources()))

	stats, err := catalogService.Stats(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	cmd.Printf("Index: %d pages from %d documents\n", stats.Units, stats.Documents)
	if stats.Fingerprint.IsZero() {
		cmd.Println("Embedding: (none pinned)")
	} else {
		cmd.Printf("Embedding: %s\n", stats.Fingerprint)
	}
	return nil
}
