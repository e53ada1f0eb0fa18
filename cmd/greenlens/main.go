package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"greenlens/internal/config"
	"greenlens/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "greenlens",
	Short: "Upload sustainability reports and review extracted ESG initiatives",
	Long: "GreenLens uploads a sustainability report to the analysis backend, follows\n" +
		"its progress stream and presents the extracted initiatives next to the document.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and installs the default logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	return cfg, nil
}
