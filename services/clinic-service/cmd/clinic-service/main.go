package main

import (
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
)

func main() {
	var envFile string
	rootCmd := &cobra.Command{
		Use:          "clinic-service",
		Short:        "Clinic scheduling and booking service",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional env file read after the environment")

	rootCmd.AddCommand(serveCmd(&envFile))
	rootCmd.AddCommand(migrateCmd(&envFile))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
