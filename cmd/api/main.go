package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "helpdesk",
		Short: "Help-desk ticket service",
		Long:  `Help-desk ticket service with the HTTP API, Mojito360 sync and scheduled auto-close.`,
		RunE:  runServe,
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newAutoCloseCommand(),
		newMigrateCommand(),
		newIssueTokenCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
