// Package main builds the return-history tables over a date range: the
// disclosure-driven event_returns_history or the news-driven news_returns.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"krx-gap-lab/internal/app"
	"krx-gap-lab/internal/classify"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	source := flag.String("source", "news", "History source: news or disclosures")
	start := flag.String("start", "", "Start date (YYYYMMDD)")
	end := flag.String("end", "", "End date (YYYYMMDD)")
	classifierURL := flag.String("classifier-url", os.Getenv("CLASSIFIER_URL"),
		"Classification service endpoint (disclosures source only)")
	flag.Parse()

	if *start == "" || *end == "" {
		fmt.Fprintln(os.Stderr, "-start and -end are required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Bootstrap(ctx, *configPath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	switch *source {
	case "news":
		processed, saved, err := a.NewNewsHistoryBuilder().Build(ctx, *start, *end)
		if err != nil {
			a.Log.Fatal().Err(err).Msg("news history build failed")
		}
		a.Log.Info().Int("processed", processed).Int("saved", saved).Msg("news history done")

	case "disclosures":
		if *classifierURL == "" {
			a.Log.Fatal().Msg("-classifier-url is required for the disclosures source")
		}
		classifier := classify.NewHTTPClassifier(*classifierURL, 30*time.Second, a.Log)
		stats, err := a.NewHistoryBuilder(classifier).Build(ctx, *start, *end)
		if err != nil {
			a.Log.Fatal().Err(err).Msg("history build failed")
		}
		a.Log.Info().
			Int("processed", stats.TotalProcessed).
			Int("saved", stats.TotalSaved).
			Msg("history done")

	default:
		a.Log.Fatal().Str("source", *source).Msg("unknown source, want news or disclosures")
	}
}
