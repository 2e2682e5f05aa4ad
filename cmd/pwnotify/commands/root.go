package commands

import (
	"github.com/spf13/cobra"
)

var (
	// configPath is the XML configuration file for the run.
	configPath string

	// reportPathOverride replaces the configured report file path.
	reportPathOverride string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "pwnotify",
	Short: "Notify directory users whose passwords are nearing expiration",
	Long: `pwnotify enumerates directory accounts, emails the users whose
passwords are inside the configured warning window, and writes a
per-account audit report. It performs one bounded run per invocation
and exits.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", "pwnotify.xml",
		"Path to the XML configuration file",
	)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}
