package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-import/internal/domain/import/inbox"
	"github.com/FACorreiaa/statement-import/pkg/storage"
)

const shutdownTimeout = 10 * time.Second

func newWatchCmd(a *app) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Import statements dropped into the inbox directory on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runWatch(cmd, once)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "sweep the inbox once and exit")
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, once bool) error {
	cfg := a.cfg.Inbox

	archive, err := storage.NewLocalStorage(cfg.ArchiveDir)
	if err != nil {
		return err
	}
	sweeper := inbox.NewSweeper(cfg.Dir, cfg.Schedule, a.deps.ImportService, archive, a.logger).
		WithRepository(a.deps.Transactions)

	if once {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return err
		}
		report, err := sweeper.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "files %d, failed %d, stored %d, duplicates %d, row errors %d\n",
			report.Files, report.Failed, report.Imported, report.Duplicates, report.RowErrors)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var server *http.Server
	if a.cfg.Observability.MetricsEnabled {
		server = a.startMetricsServer()
	}

	if err := sweeper.Start(); err != nil {
		return err
	}
	sweeper.RunNow()

	<-ctx.Done()
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}

	select {
	case <-sweeper.Stop().Done():
	case <-shutdownCtx.Done():
		a.logger.Warn("inbox sweep still running at shutdown")
	}
	return nil
}

func (a *app) startMetricsServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.deps.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Observability.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("metrics server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	return server
}
