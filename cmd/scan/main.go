// Package main runs the daily gap scan: a single day by default, or a date
// range in backfill mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"krx-gap-lab/internal/app"
	"krx-gap-lab/internal/reporting"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	date := flag.String("date", "", "Scan date (YYYYMMDD), defaults to yesterday")
	backfillStart := flag.String("backfill-start", "", "Backfill start date (YYYYMMDD)")
	backfillEnd := flag.String("backfill-end", "", "Backfill end date (YYYYMMDD)")
	reportPath := flag.String("report", "", "Write a Markdown report of the run to this file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Bootstrap(ctx, *configPath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	scanner := a.NewScanner()

	if *backfillStart != "" || *backfillEnd != "" {
		if *backfillStart == "" || *backfillEnd == "" {
			a.Log.Fatal().Msg("backfill needs both -backfill-start and -backfill-end")
		}
		total, err := scanner.Backfill(ctx, *backfillStart, *backfillEnd)
		if err != nil {
			a.Log.Fatal().Err(err).Msg("backfill failed")
		}
		a.Log.Info().Int("signals", total).Msg("backfill done")
		return
	}

	summary, err := scanner.Scan(ctx, *date)
	if err != nil {
		a.Log.Fatal().Err(err).Msg("scan failed")
	}
	if *reportPath != "" {
		if err := reporting.WriteMarkdown(*reportPath, reporting.FromSummary(summary, nil)); err != nil {
			a.Log.Fatal().Err(err).Msg("write report failed")
		}
		a.Log.Info().Str("path", *reportPath).Msg("report written")
	}
	a.Log.Info().
		Str("scan_date", summary.ScanDate).
		Int("signals", summary.Signals).
		Msg("scan done")
}
