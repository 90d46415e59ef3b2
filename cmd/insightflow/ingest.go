package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"insightflow/internal/config"
	"insightflow/internal/indexer"
	"insightflow/internal/store"
)

func ingestCMD(cfg *config.Config) *cobra.Command {
	var chunkSize, chunkOverlap int

	cmd := &cobra.Command{
		Use:   "ingest URL...",
		Short: "Fetch up to three article URLs and replace the store with their chunks",
		Long: `Fetch up to three article URLs, extract their text, split it into
overlapping chunks and replace the stored chunks with the result.

Example:
  insightflow ingest https://example.com/news/1 https://example.com/news/2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("chunk-size") {
				cfg.ChunkSize = chunkSize
			}
			if cmd.Flags().Changed("chunk-overlap") {
				cfg.ChunkOverlap = chunkOverlap
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			pipeline, err := a.pipeline()
			if err != nil {
				return err
			}

			report := pipeline.Ingest(cmd.Context(), args)
			printIngestReport(cmd.OutOrStdout(), report)
			if inv, ok := a.store.(store.Inventory); ok && report.OK() {
				sources, err := inv.Sources(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list stored sources: %w", err)
				}
				printSources(cmd.OutOrStdout(), sources)
			}

			switch {
			case report.StoreError != "":
				return fmt.Errorf("failed to save chunks: %s", report.StoreError)
			case !report.Saved:
				return errors.New("no chunks were produced; the store is unchanged")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&chunkSize, "chunk-size", indexer.DefaultChunkSize, "maximum chunk length in characters (overrides CHUNK_SIZE)")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", indexer.DefaultChunkOverlap, "characters shared by adjacent chunks (overrides CHUNK_OVERLAP)")
	return cmd
}

func printIngestReport(w io.Writer, report indexer.IngestReport) {
	for _, u := range report.URLs {
		switch u.Status {
		case indexer.StatusOK:
			fmt.Fprintf(w, "ok       %s  %q  %d chunks\n", u.URL, u.Title, u.Chunks)
		default:
			fmt.Fprintf(w, "%-8s %s  %s\n", u.Status, u.URL, u.Message)
		}
	}
	if report.Saved {
		s := report.Stats
		fmt.Fprintf(w, "stored %d chunks (length min %d, max %d, mean %.1f, p95 %d)\n",
			report.Chunks, s.Min, s.Max, s.Mean, s.P95)
	}
}

func printSources(w io.Writer, sources []store.Source) {
	fmt.Fprintln(w, "stored sources:")
	for i, src := range sources {
		fmt.Fprintf(w, "  %d. %s (%s) %d chunks\n", i+1, src.Title, src.URL, src.Chunks)
	}
}
