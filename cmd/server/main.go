// Package main runs the API server with a cron-scheduled daily scan.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"

	"krx-gap-lab/internal/api"
	"krx-gap-lab/internal/app"
	"krx-gap-lab/internal/observability"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.New(registry)

	a, err := app.Bootstrap(ctx, *configPath, metrics)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	scanner := a.NewScanner()
	server := api.NewServer(a.Cfg.Server, a.Signals, scanner, registry, a.Log)

	// Seconds-resolution cron, e.g. "0 30 18 * * *" for 18:30 KST daily.
	scheduler := cron.New(cron.WithSeconds())
	_, err = scheduler.AddFunc(a.Cfg.Scanner.DailyCron, func() {
		summary, err := scanner.Scan(ctx, "")
		if err != nil {
			a.Log.Error().Err(err).Msg("scheduled scan failed")
			return
		}
		server.LiveFeed().Publish(summary.Top)
	})
	if err != nil {
		a.Log.Fatal().Err(err).Str("cron", a.Cfg.Scanner.DailyCron).Msg("invalid cron expression")
	}
	scheduler.Start()
	defer scheduler.Stop()

	a.Log.Info().
		Str("cron", a.Cfg.Scanner.DailyCron).
		Int("port", a.Cfg.Server.Port).
		Msg("server starting")

	if err := server.Start(ctx); err != nil {
		a.Log.Fatal().Err(err).Msg("server stopped")
	}
	a.Log.Info().Msg("shutdown complete")
}
