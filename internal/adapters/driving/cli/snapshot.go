package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [filename] [page]",
	Short: "Render a document page as an image",
	Long: `Renders one page of an indexed document as a PNG and prints its path.
Pages are numbered from 1. Rendered pages are cached.`,
	Args: cobra.ExactArgs(2),
	RunE: withServices(AccessRead, runSnapshot),
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	page, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid page number %q", args[1])
	}
	if snapshotService == nil {
		return errors.New("snapshot service not configured")
	}

	ref, err := snapshotService.Snapshot(commandContext(cmd), args[0], page)
	if err != nil {
		return fmt.Errorf("snapshot failed: %w", err)
	}

	cmd.Println(ref)
	return nil
}
