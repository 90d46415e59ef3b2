// Command insightflow ingests news articles and answers questions about them.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"insightflow/internal/config"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Subcommands write results to stdout
// and logs to stderr.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		storeMode string
		cfg       *config.Config
	)

	root := &cobra.Command{
		Use:           "insightflow",
		Short:         "Fetch news articles and ask questions about them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cmd.Flags().Changed("store") {
				if err := loaded.SetStoreMode(storeMode); err != nil {
					return err
				}
			}
			setupLogging(stderr, loaded)
			*cfg = *loaded
			return nil
		},
	}
	cfg = &config.Config{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&storeMode, "store", config.StoreModeIndex, "store backend: index or flat (overrides STORE_MODE)")

	root.AddCommand(
		ingestCMD(cfg),
		askCMD(cfg),
		clearCMD(cfg),
		serveCMD(cfg),
	)
	return root
}

// setupLogging configures structured logging with configurable level and format.
func setupLogging(w io.Writer, cfg *config.Config) {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)
}
