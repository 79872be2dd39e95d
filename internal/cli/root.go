// Package cli wires the formloom commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:   "formloom",
	Short: "formloom - self-hosted form builder with conditional logic and A/B testing",
	Long: `formloom is a self-hosted form builder: field layouts, style cascade,
conditional rules, A/B variants and an embeddable public runtime, all in
a single Go binary.

Running without a subcommand starts the server (same as 'formloom serve').`,
	RunE: runServe,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", getEnvOrDefault("FL_CONFIG", "./formloom.yml"), "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite database path (overrides config)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
