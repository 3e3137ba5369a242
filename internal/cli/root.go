// Package cli wires the ghexport commands.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ghexport-cli/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ghexport",
	Short: "Export GitHub issues and pull requests to Markdown",
	Long: `Turns raw GitHub issue and PR JSON (fetched with 'gh api --paginate')
into per-item Markdown files, downloading embedded images to local
assets and rewriting their references.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
