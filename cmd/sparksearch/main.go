// Package main provides the sparksearch CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sparklabs/sparksearch/internal/config"
	"github.com/sparklabs/sparksearch/internal/logging"
)

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "sparksearch",
	Short: "Sparksearch filters and searches uploaded resume spreadsheets",
	Long: `Sparksearch ingests CSV and Excel files into a database and lets you
filter rows per column, by substring for text columns and by inclusive
range for numeric columns. It runs as an HTTP server or as a one-shot
command against a local file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load .env if present (Overload overwrites existing env vars).
		if err := godotenv.Overload(); err == nil {
			slog.Info("loaded .env file")
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
