package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ghexport-cli/internal/cleanup"
)

var (
	cleanupExportRoot     string
	cleanupPrefixFallback bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Repair placeholder image extensions",
	Long: `Renames downloaded images that still carry the placeholder extension
to their sniffed type and rewrites Markdown references to them.
Running it again on a clean tree changes nothing.`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().StringVar(&cleanupExportRoot, "export-root", "export",
		"export root to clean up")
	cleanupCmd.Flags().BoolVar(&cleanupPrefixFallback, "prefix-fallback", false,
		"resolve stale references by numeric filename prefix (best effort)")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	result, err := cleanup.Run(cleanupExportRoot, cleanup.Options{
		PrefixFallback: cleanupPrefixFallback,
	})
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	if result.Renamed > 0 {
		cmd.Printf("Renamed %d files and updated Markdown references in %d files.\n",
			result.Renamed, result.UpdatedFiles)
	} else {
		cmd.Printf("No placeholder files renamed. Updated Markdown references in %d files.\n",
			result.UpdatedFiles)
	}
	return nil
}
