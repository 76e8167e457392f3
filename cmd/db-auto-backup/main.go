package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	envFile    string
	logLevel   string
	logFormat  string
	dockerHost string
	once       bool

	rootCmd = &cobra.Command{
		Use:   "db-auto-backup",
		Short: "Back up database containers",
		Long: "Finds running database containers (PostgreSQL, MySQL/MariaDB, Redis), dumps them into " +
			"compressed files in the backup directory and optionally uploads them to S3. " +
			"Runs once, or on the cron schedule given in SCHEDULE.",
		SilenceUsage: true,
		RunE:         runBackup,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file first")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text, json), overrides LOG_FORMAT")
	rootCmd.PersistentFlags().StringVar(&dockerHost, "docker-host", "", "Docker daemon socket, overrides DOCKER_HOST")
	rootCmd.Flags().BoolVar(&once, "once", false, "Run a single backup and exit even when SCHEDULE is set")

	rootCmd.AddCommand(providersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
