package main

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	nethttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"insightflow/internal/config"
	"insightflow/internal/http"
)

//go:embed index.html
var indexHTML string

func serveCMD(cfg *config.Config) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			deps := &http.Deps{
				RAGEngine:        a.engine(),
				Store:            a.store,
				AnsweringEnabled: a.answers.Enabled(),
				IndexHTML:        indexHTML,
			}
			if pipeline, err := a.pipeline(); err != nil {
				slog.Warn("ingestion disabled", "reason", err)
				deps.IngestDisabledReason = err.Error()
			} else {
				deps.Ingester = pipeline
			}
			if !deps.AnsweringEnabled {
				slog.Warn("answering disabled", "reason", "no API key configured")
			}

			if addr == "" {
				addr = ":" + cfg.APIPort
			}
			srv := &nethttp.Server{
				Addr:              addr,
				Handler:           http.NewRouter(deps),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("Starting API server", "addr", addr, "store", cfg.StoreMode)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, nethttp.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			slog.Info("Shutting down API server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :API_PORT)")
	return cmd
}
