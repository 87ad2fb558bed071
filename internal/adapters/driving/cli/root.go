// Package cli provides the cobra command tree for policywatch.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/policywatch/internal/core/ports/driving"
	"github.com/custodia-labs/policywatch/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Global flags.
var (
	verbose   bool
	logJSON   bool
	configDir string
)

// settingsService is loaded lazily from configDir unless injected.
var settingsService driving.SettingsService

var rootCmd = &cobra.Command{
	Use:   "policywatch",
	Short: "Monitor and query policy document collections",
	Long: `policywatch watches a government and a hospital collection of policy PDFs.
New documents are summarised and cross-checked against the other collection,
and stakeholders are notified of additions, removals and inconsistencies.

The summaries can be searched from the command line, over HTTP or through MCP.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
		logger.SetJSON(logJSON)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON lines")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "",
		"config directory (default ~/.policywatch)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
