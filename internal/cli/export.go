package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ghexport-cli/internal/auth"
	"github.com/custodia-labs/ghexport-cli/internal/config"
	"github.com/custodia-labs/ghexport-cli/internal/export"
	"github.com/custodia-labs/ghexport-cli/internal/images"
	"github.com/custodia-labs/ghexport-cli/internal/logger"
)

var (
	exportRepos   []string
	exportRawRoot string
	exportOutRoot string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export repositories to Markdown",
	Long: `Reads raw issue and PR JSON for each --repo from the raw root and
writes one Markdown file per item, with images downloaded to local
assets. Failed downloads are recorded in a per-repository JSONL log
for a later 'ghexport retry' pass.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringArrayVar(&exportRepos, "repo", nil,
		"repository in the form OWNER/REPO (repeatable)")
	exportCmd.Flags().StringVar(&exportRawRoot, "raw-root", "",
		"root folder containing raw JSON (default export/raw, config key raw_root)")
	exportCmd.Flags().StringVar(&exportOutRoot, "out-root", "",
		"root folder for Markdown output (default export, config key out_root)")
	if err := exportCmd.MarkFlagRequired("repo"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	// Validate every repository before touching any of them.
	repos := make([]export.Repository, 0, len(exportRepos))
	for _, arg := range exportRepos {
		repo, err := export.ParseRepository(arg)
		if err != nil {
			return fmt.Errorf("invalid repo format %q: %w", arg, err)
		}
		repos = append(repos, repo)
	}

	store := openStore()
	exporter := &export.Exporter{
		RawRoot:  rootDir(store, exportRawRoot, "raw_root", "export/raw"),
		OutRoot:  rootDir(store, exportOutRoot, "out_root", "export"),
		Fetcher:  images.NewDownloader(auth.NewChainProvider(store)),
		Progress: cmd.OutOrStdout(),
	}

	ctx := context.Background()
	failed := 0
	for _, repo := range repos {
		if err := exporter.ExportRepo(ctx, repo); err != nil {
			cmd.PrintErrf("ERROR: %v\n", err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d repositories failed", failed, len(repos))
	}
	return nil
}

// openStore loads the config store, degrading to nil when the config
// file cannot be read.
func openStore() *config.Store {
	store, err := config.NewStore("")
	if err != nil {
		logger.Debug("config store unavailable: %v", err)
		return nil
	}
	return store
}

// rootDir resolves a root folder: explicit flag, then config key, then
// the built-in default.
func rootDir(store *config.Store, flagValue, key, fallback string) string {
	if flagValue != "" {
		return flagValue
	}
	if store != nil {
		if v := store.GetString(key); v != "" {
			return v
		}
	}
	return fallback
}
