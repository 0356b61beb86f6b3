// Package app wires configuration, logging, storage and the pipeline
// components for the command-line entry points.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"krx-gap-lab/internal/classify"
	"krx-gap-lab/internal/config"
	"krx-gap-lab/internal/expectation"
	"krx-gap-lab/internal/gap"
	"krx-gap-lab/internal/logging"
	"krx-gap-lab/internal/observability"
	"krx-gap-lab/internal/pricing"
	"krx-gap-lab/internal/scan"
	"krx-gap-lab/internal/storage"
	chstore "krx-gap-lab/internal/storage/clickhouse"
	"krx-gap-lab/internal/storage/migrations"
	pgstore "krx-gap-lab/internal/storage/postgres"
)

// App holds everything a command needs after bootstrap.
type App struct {
	Cfg *config.Config
	Log zerolog.Logger

	PG *pgstore.Pool
	CH *chstore.Conn

	Prices       storage.DailyPriceStore
	EventReturns storage.EventReturnStore
	NewsReturns  storage.NewsReturnStore
	Signals      storage.GapSignalStore
	News         storage.NewsEventStore
	Disclosures  storage.DisclosureStore
	Listings     storage.ListingStore

	Aliases *classify.AliasMap
	Metrics *observability.Metrics
}

// Bootstrap loads the config file, opens both databases, applies pending
// migrations and builds the store layer.
func Bootstrap(ctx context.Context, configPath string, metrics *observability.Metrics) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, err
	}

	pg, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pg); err != nil {
		pg.Close()
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}

	ch, err := chstore.NewConn(ctx, cfg.ClickHouse.DSN)
	if err != nil {
		pg.Close()
		return nil, fmt.Errorf("connect clickhouse: %w", err)
	}
	if err := migrations.RunClickhouseMigrations(ctx, ch); err != nil {
		pg.Close()
		ch.Close()
		return nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	aliases, err := classify.LoadAliasMap(cfg.Aliases.Path, log)
	if err != nil {
		pg.Close()
		ch.Close()
		return nil, err
	}

	return &App{
		Cfg:          cfg,
		Log:          log,
		PG:           pg,
		CH:           ch,
		Prices:       chstore.NewDailyPriceStore(ch),
		EventReturns: pgstore.NewEventReturnStore(pg),
		NewsReturns:  pgstore.NewNewsReturnStore(pg),
		Signals:      pgstore.NewGapSignalStore(pg),
		News:         pgstore.NewNewsEventStore(pg),
		Disclosures:  pgstore.NewDisclosureStore(pg),
		Listings:     pgstore.NewListingStore(pg),
		Aliases:      aliases,
		Metrics:      metrics,
	}, nil
}

// Close releases database handles.
func (a *App) Close() {
	if a.CH != nil {
		a.CH.Close()
	}
	if a.PG != nil {
		a.PG.Close()
	}
}

// NewScanner assembles the daily scanner with the HISTORY strategy first and
// the SIMPLE fallback second.
func (a *App) NewScanner() *scan.DailyGapScanner {
	mapper := pricing.NewAnchorMapper(a.Prices, a.Log)
	calculator := pricing.NewReturnCalculator(a.Prices, a.Log)
	model := expectation.NewModel(a.EventReturns, a.Log,
		expectation.WithLookbackDays(a.Cfg.Scanner.LookbackDays))
	detector := gap.NewDetector(model, a.EventReturns, a.Log,
		gap.WithZThreshold(a.Cfg.Scanner.ZThreshold),
		gap.WithMinConfidence(a.Cfg.Scanner.MinConfidence))

	strategies := []scan.Strategy{
		scan.NewHistoryStrategy(mapper, calculator, detector, a.Log),
		scan.NewSimpleStrategy(a.Prices, a.NewsReturns, a.Cfg.Scanner.ZThreshold, a.Cfg.Scanner.MinSamples, a.Log),
	}
	return scan.NewDailyGapScanner(a.News, a.Signals, a.Aliases, strategies, a.Metrics, a.Log)
}

// NewHistoryBuilder assembles the disclosure-driven history builder.
func (a *App) NewHistoryBuilder(classifier classify.EventClassifier) *scan.HistoryBuilder {
	return scan.NewHistoryBuilder(
		a.Disclosures,
		a.Listings,
		a.EventReturns,
		classifier,
		pricing.NewAnchorMapper(a.Prices, a.Log),
		pricing.NewReturnCalculator(a.Prices, a.Log),
		a.Log,
	)
}

// NewNewsHistoryBuilder assembles the news-driven history builder.
func (a *App) NewNewsHistoryBuilder() *scan.NewsHistoryBuilder {
	return scan.NewNewsHistoryBuilder(a.News, a.Prices, a.NewsReturns, a.Aliases, a.Log)
}
