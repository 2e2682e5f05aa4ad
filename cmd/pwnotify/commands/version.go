package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"pwnotify/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Run:   runVersion,
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("pwnotify version %s", build.Version)
	if build.Commit != "" {
		fmt.Printf(" commit=%s", build.Commit)
	}
	fmt.Println()
}
