package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ghexport-cli/internal/auth"
	"github.com/custodia-labs/ghexport-cli/internal/export"
	"github.com/custodia-labs/ghexport-cli/internal/images"
)

var retryOutRoot string

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Retry failed attachment downloads",
	Long: `Reads every missing-attachment log under the out root and re-attempts
each recorded download through the authenticated API client. Already
downloaded files are skipped.`,
	RunE: runRetry,
}

func init() {
	retryCmd.Flags().StringVar(&retryOutRoot, "out-root", "",
		"root folder holding the Markdown export (default export, config key out_root)")
	rootCmd.AddCommand(retryCmd)
}

func runRetry(cmd *cobra.Command, _ []string) error {
	store := openStore()
	outRoot := rootDir(store, retryOutRoot, "out_root", "export")

	logs, err := filepath.Glob(filepath.Join(outRoot, "missing_attachments_*.jsonl"))
	if err != nil {
		return fmt.Errorf("scan %s: %w", outRoot, err)
	}
	if len(logs) == 0 {
		cmd.Println("No missing-attachment logs found.")
		return nil
	}

	downloader := images.NewDownloader(auth.NewChainProvider(store))
	ctx := context.Background()

	attempted, downloaded := 0, 0
	for _, logPath := range logs {
		records, err := export.ReadMissingLog(logPath)
		if err != nil {
			cmd.PrintErrf("ERROR: %v\n", err)
			continue
		}
		for _, record := range records {
			attempted++
			dest := filepath.Join(outRoot, record.RepoSlug, filepath.FromSlash(record.LocalPath))
			if err := downloader.Fetch(ctx, record.URL, dest); err != nil {
				cmd.PrintErrf("WARN: %s still failing: %v\n", record.URL, err)
				continue
			}
			downloaded++
		}
	}

	cmd.Printf("Retried %d attachments: %d downloaded, %d still missing.\n",
		attempted, downloaded, attempted-downloaded)
	return nil
}
