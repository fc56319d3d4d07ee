// Package cli provides the command-line interface for shodh.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"shodh/internal/client"
	"shodh/internal/config"
	"shodh/internal/metrics"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string
	verbose   bool

	// Global config, client, and metrics
	cfg        config.Config
	apiClient  *client.Client
	collector  *metrics.Collector
	appLogger  *slog.Logger
	logCleanup func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "shodh",
	Short: "Terminal client for the Shodh research-paper assistant",
	Long: `Shodh is a terminal client for a research-paper reading assistant.

Browse and save papers, watch server-side PDF ingestion jobs live, and chat
with an LLM-backed assistant about a paper or a project, with streamed
answers and citations.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if serverURL != "" {
			cfg.ServerURL = serverURL
		}
		if verbose {
			cfg.LogLevel = config.ParseLogLevel("debug")
		}

		logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		appLogger = logger
		logCleanup = cleanup

		collector = metrics.NewCollector()
		apiClient = client.New(cfg.ServerURL,
			client.WithLogger(logger),
			client.WithTimeout(cfg.RequestTimeout),
			client.WithCollector(collector),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			_ = logCleanup()
		}
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
