package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "safetrack-api",
		Short: "SafeTrack help-desk ticket API",
		Long:  `SafeTrack API serves the help-desk ticket and comment endpoints and manages its database schema.`,
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
