package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/services"
)

var (
	askOutput  string
	askTimeout time.Duration
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the indexed documents",
	Long: `Answers a question from the indexed regulatory documents.

When relevant pages are found the answer is grounded in them and every page
used is cited with its filename, page number and publication URL. Otherwise
a general-knowledge answer is given, prefixed with a disclaimer.

Run without a question to see some starter questions.`,
	RunE: withServices(AccessRead, runAsk),
}

func init() {
	askCmd.Flags().StringVarP(&askOutput, "output", "o", outputText, "output format: text, json or yaml")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 2*time.Minute, "maximum time to wait for an answer (0 = no limit)")
	rootCmd.AddCommand(askCmd)
}

// askResult is the structured form of an answer.
type askResult struct {
	Mode       string           `json:"mode" yaml:"mode"`
	Answer     string           `json:"answer" yaml:"answer"`
	Citations  []citationResult `json:"citations" yaml:"citations"`
	Followups  []string         `json:"followups" yaml:"followups"`
	Disclaimer string           `json:"disclaimer,omitempty" yaml:"disclaimer,omitempty"`
}

type citationResult struct {
	Filename string   `json:"filename" yaml:"filename"`
	Page     int      `json:"page" yaml:"page"`
	URL      string   `json:"url,omitempty" yaml:"url,omitempty"`
	Snapshot string   `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := validateOutput(askOutput); err != nil {
		return err
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		cmd.Println("Ask a question, for example:")
		for _, q := range services.StarterQuestions() {
			cmd.Printf("  sanad ask %q\n", q)
		}
		return nil
	}

	if askService == nil {
		return errors.New("ask service not configured")
	}

	ctx := commandContext(cmd)
	if askTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, askTimeout)
		defer cancel()
	}

	result, err := askService.Ask(ctx, question)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askOutput != outputText {
		return writeStructured(cmd.OutOrStdout(), askOutput, toAskResult(result))
	}
	printAnswer(cmd, result)
	return nil
}

func toAskResult(result *domain.AnswerResult) askResult {
	out := askResult{
		Mode:      result.Mode.String(),
		Answer:    result.AnswerText,
		Citations: make([]citationResult, len(result.Citations)),
		Followups: result.SuggestedFollowups,
	}
	if out.Followups == nil {
		out.Followups = []string{}
	}
	if result.Mode == domain.ModeGeneral {
		out.Disclaimer = domain.GeneralDisclaimer
	}
	for i, c := range result.Citations {
		out.Citations[i] = citationResult{
			Filename: c.Filename,
			Page:     c.PageNumber,
			URL:      c.URL,
			Snapshot: c.SnapshotRef,
			Warnings: c.Warnings,
		}
	}
	return out
}

const (
	linkUnavailable     = "source reference only, link unavailable"
	snapshotUnavailable = "page image unavailable"
)

// snapshotWarnings explains a missing page image. The link warning is
// printed on its own line and is left out here.
func snapshotWarnings(c domain.Citation) []string {
	var out []string
	for _, w := range c.Warnings {
		if w != linkUnavailable {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		out = append(out, snapshotUnavailable)
	}
	return out
}

func printAnswer(cmd *cobra.Command, result *domain.AnswerResult) {
	st := newStyles(cmd.OutOrStdout())

	answer := result.AnswerText
	if result.Mode == domain.ModeGeneral {
		cmd.Println(st.disclaimer.Render(domain.GeneralDisclaimer))
		cmd.Println()
		answer = strings.TrimSpace(strings.TrimPrefix(answer, domain.GeneralDisclaimer))
	}
	cmd.Println(answer)

	if len(result.Citations) > 0 {
		cmd.Println()
		cmd.Println(st.heading.Render("Sources:"))
		for i, c := range result.Citations {
			cmd.Printf("  [%d] %s, page %d\n", i+1, c.Filename, c.PageNumber)
			if c.HasURL() {
				cmd.Printf("      %s\n", c.URL)
			} else {
				cmd.Printf("      %s\n", st.warning.Render(linkUnavailable))
			}
			if c.HasSnapshot() {
				cmd.Printf("      %s\n", st.muted.Render("page image: "+c.SnapshotRef))
			} else {
				for _, w := range snapshotWarnings(c) {
					cmd.Printf("      %s\n", st.muted.Render(w))
				}
			}
		}
	}

	if len(result.SuggestedFollowups) > 0 {
		cmd.Println()
		cmd.Println(st.heading.Render("You might also ask:"))
		for _, q := range result.SuggestedFollowups {
			cmd.Printf("  - %s\n", q)
		}
	}
}
