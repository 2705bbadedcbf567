package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sanad/internal/core/domain"
)

var retrieveOutput string

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Show the pages most similar to a query",
	Long: `Retrieves the indexed pages most similar to a query without generating
an answer. Only pages at or above retrieval.min_similarity are shown.`,
	Args: cobra.MinimumNArgs(1),
	RunE: withServices(AccessRead, runRetrieve),
}

func init() {
	retrieveCmd.Flags().StringVarP(&retrieveOutput, "output", "o", outputText, "output format: text, json or yaml")
	rootCmd.AddCommand(retrieveCmd)
}

type evidenceResult struct {
	Filename string  `json:"filename" yaml:"filename"`
	Page     int     `json:"page" yaml:"page"`
	Score    float64 `json:"score" yaml:"score"`
	Text     string  `json:"text" yaml:"text"`
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if err := validateOutput(retrieveOutput); err != nil {
		return err
	}
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	evidence, err := retrievalService.Retrieve(commandContext(cmd), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("retrieve failed: %w", err)
	}

	if retrieveOutput != outputText {
		out := make([]evidenceResult, len(evidence))
		for i, ev := range evidence {
			out[i] = evidenceResult{
				Filename: ev.Unit.Filename,
				Page:     ev.Unit.PageNumber,
				Score:    ev.Score,
				Text:     ev.Unit.Text,
			}
		}
		return writeStructured(cmd.OutOrStdout(), retrieveOutput, out)
	}

	printEvidence(cmd, evidence)
	return nil
}

func printEvidence(cmd *cobra.Command, evidence []domain.EvidenceUnit) {
	if len(evidence) == 0 {
		cmd.Println("No relevant pages found.")
		return
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println("Results:")
	cmd.Println()
	for i, ev := range evidence {
		cmd.Printf("  [%d] %s, page %d (%.2f)\n", i+1, ev.Unit.Filename, ev.Unit.PageNumber, ev.Score)
		cmd.Printf("      %s\n", st.muted.Render(snippet(ev.Unit.Text, 160)))
		cmd.Println()
	}
}

// snippet returns the first n runes of text on one line.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
