package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "permitwise",
	Short: "PermitWise local compliance answer service",
	Long:  `PermitWise answers "is X allowed here?" questions by combining conversational intake with deterministic rule evaluation.`,
}

func init() {
	// Local development convenience; missing .env files are fine.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override (json, console)")
}

func Execute() error {
	return rootCmd.Execute()
}
