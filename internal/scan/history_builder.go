package scan

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"krx-gap-lab/internal/classify"
	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/pricing"
	"krx-gap-lab/internal/storage"
)

// historyFlushEvery is how many saved records accumulate before a bulk
// upsert is flushed.
const historyFlushEvery = 10

// ProcessingStats counts a history build's attrition, one counter per drop
// cause, so a run's funnel is visible at a glance.
type ProcessingStats struct {
	TotalProcessed  int
	TotalSaved      int
	Classified      int
	ClassifiedOther int
	NoSummary       int
	NoStockCode     int
	NoAnchor        int
	NoReturn        int
}

// HistoryBuilder turns regulatory disclosures into event_returns_history
// rows: classify the disclosure, resolve the corporation to a stock code,
// anchor the event to a trading day and record the realized 1/3/5-day
// log-returns.
type HistoryBuilder struct {
	disclosures storage.DisclosureStore
	listings    storage.ListingStore
	returns     storage.EventReturnStore
	classifier  classify.EventClassifier
	mapper      *pricing.AnchorMapper
	calculator  *pricing.ReturnCalculator
	log         zerolog.Logger
}

func NewHistoryBuilder(
	disclosures storage.DisclosureStore,
	listings storage.ListingStore,
	returns storage.EventReturnStore,
	classifier classify.EventClassifier,
	mapper *pricing.AnchorMapper,
	calculator *pricing.ReturnCalculator,
	log zerolog.Logger,
) *HistoryBuilder {
	return &HistoryBuilder{
		disclosures: disclosures,
		listings:    listings,
		returns:     returns,
		classifier:  classifier,
		mapper:      mapper,
		calculator:  calculator,
		log:         log.With().Str("component", "history_builder").Logger(),
	}
}

// Build processes every disclosure with event_date in [startDate, endDate]
// (compact YYYYMMDD). One failing disclosure never aborts the run; saved
// rows are flushed in small batches with a final flush at the end.
func (b *HistoryBuilder) Build(ctx context.Context, startDate, endDate string) (*ProcessingStats, error) {
	events, err := b.disclosures.GetByDateRange(ctx, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("fetch disclosures %s..%s: %w", startDate, endDate, err)
	}
	b.log.Info().
		Str("start", startDate).
		Str("end", endDate).
		Int("events", len(events)).
		Msg("history build started")

	stats := &ProcessingStats{}
	var batch []*domain.EventReturn

	for idx, event := range events {
		stats.TotalProcessed++

		record := b.processOne(ctx, event, stats)
		if record != nil {
			batch = append(batch, record)
			stats.TotalSaved++
		}

		if len(batch) >= historyFlushEvery {
			b.flush(ctx, &batch, stats)
		}
		if (idx+1)%100 == 0 {
			b.log.Info().
				Int("processed", idx+1).
				Int("total", len(events)).
				Int("saved", stats.TotalSaved).
				Int("classified", stats.Classified).
				Msg("history build progress")
		}
	}
	b.flush(ctx, &batch, stats)

	b.logFinal(stats)
	return stats, nil
}

// processOne walks one disclosure through the classify → resolve → price
// funnel. A nil result means the disclosure was dropped; stats say why.
func (b *HistoryBuilder) processOne(ctx context.Context, event *domain.Disclosure, stats *ProcessingStats) *domain.EventReturn {
	eventCode := b.classifyEvent(ctx, event, stats)
	if eventCode == "" {
		return nil
	}

	stockCode, err := b.listings.StockCodeByCorp(ctx, event.CorpCode)
	if err != nil {
		stats.NoStockCode++
		b.log.Debug().Str("corp_code", event.CorpCode).Msg("no stock code for corporation")
		return nil
	}
	stockCode = pricing.PadStockCode(stockCode)

	anchor := b.mapper.AnchorPrice(ctx, stockCode, event.EventDate)
	if anchor == nil {
		stats.NoAnchor++
		return nil
	}

	path := b.calculator.CalculateReturns(ctx, stockCode, anchor.AnchorDate, anchor.AnchorClose, pricing.DefaultHorizons)
	if path.AllNil() {
		stats.NoReturn++
		return nil
	}

	return &domain.EventReturn{
		StockCode:   stockCode,
		EventDate:   event.EventDate,
		EventCode:   eventCode,
		AnchorDate:  path.AnchorDate,
		AnchorPrice: anchor.AnchorClose,
		Return1D:    path.Horizons[1],
		Return3D:    path.Horizons[3],
		Return5D:    path.Horizons[5],
		Volume:      anchor.Volume,
		MarketCap:   anchor.MarketCap,
	}
}

func (b *HistoryBuilder) classifyEvent(ctx context.Context, event *domain.Disclosure, stats *ProcessingStats) string {
	if event.Summary == "" {
		stats.NoSummary++
		return ""
	}

	result, err := b.classifier.Classify(ctx, event.Summary, event.Summary)
	if err != nil {
		b.log.Error().Err(err).Str("corp", event.CorpName).Msg("classification failed")
		return ""
	}
	if result.Other() {
		stats.ClassifiedOther++
		b.log.Debug().
			Str("corp", event.CorpName).
			Float64("confidence", result.Confidence).
			Msg("unclassifiable disclosure")
		return ""
	}

	stats.Classified++
	return result.Labels[0]
}

func (b *HistoryBuilder) flush(ctx context.Context, batch *[]*domain.EventReturn, stats *ProcessingStats) {
	if len(*batch) == 0 {
		return
	}
	if err := b.returns.UpsertBulk(ctx, *batch); err != nil {
		stats.TotalSaved -= len(*batch)
		b.log.Error().Err(err).Int("records", len(*batch)).Msg("history flush failed")
	}
	*batch = (*batch)[:0]
}

func (b *HistoryBuilder) logFinal(stats *ProcessingStats) {
	b.log.Info().
		Int("processed", stats.TotalProcessed).
		Int("saved", stats.TotalSaved).
		Int("classified", stats.Classified).
		Int("classified_other", stats.ClassifiedOther).
		Int("no_summary", stats.NoSummary).
		Int("no_stock_code", stats.NoStockCode).
		Int("no_anchor", stats.NoAnchor).
		Int("no_return", stats.NoReturn).
		Msg("history build complete")
}
