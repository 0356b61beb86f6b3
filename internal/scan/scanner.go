package scan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"krx-gap-lab/internal/classify"
	"krx-gap-lab/internal/dateutil"
	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/observability"
	"krx-gap-lab/internal/pricing"
	"krx-gap-lab/internal/storage"
)

// DailyGapScanner reads one day of classified news, expands each row into
// (stock, event) candidates, runs them through the strategy chain and
// persists the resulting signals.
type DailyGapScanner struct {
	news       storage.NewsEventStore
	signals    storage.GapSignalStore
	aliases    *classify.AliasMap
	strategies []Strategy
	metrics    *observability.Metrics
	log        zerolog.Logger
}

func NewDailyGapScanner(
	news storage.NewsEventStore,
	signals storage.GapSignalStore,
	aliases *classify.AliasMap,
	strategies []Strategy,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *DailyGapScanner {
	return &DailyGapScanner{
		news:       news,
		signals:    signals,
		aliases:    aliases,
		strategies: strategies,
		metrics:    metrics,
		log:        log.With().Str("component", "daily_scanner").Logger(),
	}
}

// Scan processes one calendar day of news. An empty scanDate means
// yesterday. Signals are persisted before the summary is returned; a
// persistence failure on one signal does not abort the rest.
func (s *DailyGapScanner) Scan(ctx context.Context, scanDate string) (*Summary, error) {
	if scanDate == "" {
		scanDate = dateutil.FromTime(time.Now().AddDate(0, 0, -1))
	}
	started := time.Now()

	for _, strat := range s.strategies {
		if r, ok := strat.(interface{ Reset() }); ok {
			r.Reset()
		}
	}

	newsList, err := s.news.GetByDate(ctx, scanDate)
	if err != nil {
		s.metrics.ObserveScan("error", time.Since(started).Seconds())
		return nil, fmt.Errorf("load news for %s: %w", scanDate, err)
	}
	s.log.Info().Str("scan_date", scanDate).Int("news", len(newsList)).Msg("scan started")

	var signals []*domain.GapSignal
	for _, news := range newsList {
		for _, cand := range s.expand(news) {
			s.metrics.ObserveCandidate()
			if sig := s.evaluate(ctx, cand); sig != nil {
				signals = append(signals, sig)
				s.metrics.ObserveSignal(sig.Direction, sig.Magnitude, sig.CalcMode)
				s.log.Info().
					Str("calc_mode", sig.CalcMode).
					Str("stock", sig.StockName).
					Str("event_code", sig.EventCode).
					Float64("z", sig.ZScore).
					Str("direction", sig.Direction).
					Str("magnitude", sig.Magnitude).
					Msg("gap signal")
			}
		}
	}

	s.persist(ctx, signals)

	summary := Summarize(scanDate, len(newsList), signals)
	summary.Log(s.log)
	s.metrics.ObserveScan("ok", time.Since(started).Seconds())
	return summary, nil
}

// Backfill scans every calendar day in [startDate, endDate]. A failed day is
// logged and skipped.
func (s *DailyGapScanner) Backfill(ctx context.Context, startDate, endDate string) (totalSignals int, err error) {
	if startDate > endDate {
		return 0, fmt.Errorf("backfill range inverted: %s > %s", startDate, endDate)
	}
	s.log.Info().Str("start", startDate).Str("end", endDate).Msg("backfill started")

	for day := startDate; day <= endDate; {
		summary, scanErr := s.Scan(ctx, day)
		if scanErr != nil {
			s.log.Error().Err(scanErr).Str("scan_date", day).Msg("backfill day failed")
		} else {
			totalSignals += summary.Signals
		}

		next, addErr := dateutil.AddDays(day, 1)
		if addErr != nil {
			return totalSignals, fmt.Errorf("advance backfill date %s: %w", day, addErr)
		}
		day = next
	}

	s.log.Info().
		Str("start", startDate).
		Str("end", endDate).
		Int("signals", totalSignals).
		Msg("backfill complete")
	return totalSignals, nil
}

// expand splits the comma-separated company and event lists, drops "other"
// labels and unresolvable names, and yields the cross product.
func (s *DailyGapScanner) expand(news *domain.NewsEvent) []*Candidate {
	companies := splitList(news.Companies)
	events := splitList(news.EventCodes)

	var kept []string
	for _, ev := range events {
		if strings.EqualFold(ev, domain.EventCodeOther) {
			continue
		}
		kept = append(kept, ev)
	}
	if len(kept) == 0 {
		return nil
	}

	var out []*Candidate
	for _, company := range companies {
		code, ok := s.aliases.StockCode(company)
		if !ok {
			s.log.Debug().Str("company", company).Msg("no stock code for company")
			continue
		}
		for _, ev := range kept {
			out = append(out, &Candidate{
				NewsID:    news.NewsID,
				NewsTitle: news.Title,
				StockCode: pricing.PadStockCode(code),
				StockName: company,
				EventCode: ev,
				NewsDate:  news.NewsDate,
			})
		}
	}
	return out
}

func (s *DailyGapScanner) evaluate(ctx context.Context, c *Candidate) *domain.GapSignal {
	for _, strat := range s.strategies {
		if sig := strat.Attempt(ctx, c); sig != nil {
			return sig
		}
	}
	return nil
}

func (s *DailyGapScanner) persist(ctx context.Context, signals []*domain.GapSignal) {
	if len(signals) == 0 {
		return
	}
	saved := 0
	for _, sig := range signals {
		if err := s.signals.Upsert(ctx, sig); err != nil {
			s.metrics.ObserveStoreError("news_gaps")
			s.log.Error().Err(err).
				Str("news_id", sig.NewsID).
				Str("stock_code", sig.StockCode).
				Msg("signal save failed")
			continue
		}
		saved++
	}
	s.log.Info().Int("saved", saved).Int("total", len(signals)).Msg("signals persisted")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
