package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dagrun-dev/dagrun/internal/config"
	"github.com/dagrun-dev/dagrun/internal/dag"
	"github.com/dagrun-dev/dagrun/internal/log"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the graph described by the config file to completion",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runGraph(); err != nil {
			exitWithError("run failed", err)
		}
	},
}

func runGraph() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
		slog.Info("metrics server listening", "addr", cfg.Metrics.Listen, "path", cfg.Metrics.Path)
	}

	d, err := dag.BuildFromConfig(&cfg.Graph, slog.Default())
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start graph: %w", err)
	}
	slog.Info("graph started", "run", d.RunID)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigCh
	slog.Info("received shutdown signal, stopping", "signal", sig)

	stopErrCh := make(chan error, 1)
	go func() { stopErrCh <- d.Stop() }()

	select {
	case err := <-stopErrCh:
		if err != nil {
			return fmt.Errorf("stop graph: %w", err)
		}
		slog.Info("graph stopped cleanly")
	case sig := <-sigCh:
		slog.Warn("received second shutdown signal, killing", "signal", sig)
		if err := d.Kill(); err != nil {
			return fmt.Errorf("kill graph: %w", err)
		}
		<-stopErrCh // Stop's goroutine unblocks once the nodes it's waiting on exit
		slog.Info("graph killed")
	}
	return nil
}
