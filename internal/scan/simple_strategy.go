package scan

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"krx-gap-lab/internal/dateutil"
	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/storage"
)

const (
	simpleLookbackDays = 365
	simpleMinStd       = 1e-6
)

// SimpleStrategy is the fallback path used when the history path cannot
// judge a candidate. It compares the mean over news_returns instead of the
// full event distribution, and feeds itself from two run-scoped caches that
// are built lazily on the first fallback of a run: a price window around the
// scan date and a point-in-time per-event aggregate.
type SimpleStrategy struct {
	prices      storage.DailyPriceStore
	newsReturns storage.NewsReturnStore
	zThreshold  float64
	minSamples  int
	log         zerolog.Logger

	// Run-scoped state; Reset drops it. The scanner drives strategies from
	// a single goroutine, so no locking here.
	priceCache *PriceCache
	statsCache map[string]domain.ReturnAggregate
	cachedDate string
}

func NewSimpleStrategy(prices storage.DailyPriceStore, newsReturns storage.NewsReturnStore, zThreshold float64, minSamples int, log zerolog.Logger) *SimpleStrategy {
	return &SimpleStrategy{
		prices:      prices,
		newsReturns: newsReturns,
		zThreshold:  zThreshold,
		minSamples:  minSamples,
		log:         log.With().Str("strategy", domain.CalcModeSimple).Logger(),
	}
}

func (s *SimpleStrategy) Name() string { return domain.CalcModeSimple }

// Reset drops the run-scoped caches. The scanner calls it at the start of
// each run so a backfill never judges one day with another day's window.
func (s *SimpleStrategy) Reset() {
	s.priceCache = nil
	s.statsCache = nil
	s.cachedDate = ""
}

func (s *SimpleStrategy) ensureCaches(ctx context.Context, scanDate string) bool {
	if s.priceCache != nil && s.statsCache != nil && s.cachedDate == scanDate {
		return true
	}

	s.log.Info().Str("scan_date", scanDate).Msg("loading fallback caches")

	priceCache, err := LoadPriceCache(ctx, s.prices, scanDate, scanDate)
	if err != nil {
		s.log.Error().Err(err).Msg("price cache load failed")
		return false
	}

	from, err := dateutil.AddDays(scanDate, -simpleLookbackDays)
	if err != nil {
		s.log.Error().Err(err).Str("scan_date", scanDate).Msg("bad scan date")
		return false
	}
	statsCache, err := s.newsReturns.AggregateByEvent(ctx, scanHorizon, from, scanDate)
	if err != nil {
		s.log.Error().Err(err).Msg("stats cache load failed")
		return false
	}

	s.priceCache = priceCache
	s.statsCache = statsCache
	s.cachedDate = scanDate
	s.log.Info().
		Int("stocks", priceCache.Stocks()).
		Int("events", len(statsCache)).
		Msg("fallback caches ready")
	return true
}

func (s *SimpleStrategy) Attempt(ctx context.Context, c *Candidate) *domain.GapSignal {
	if !s.ensureCaches(ctx, c.NewsDate) {
		return nil
	}

	anchor, returns, ok := s.priceCache.ReturnsFrom(c.StockCode, c.NewsDate, []int{scanHorizon})
	if !ok || returns[scanHorizon] == nil {
		return nil
	}
	actual := *returns[scanHorizon]

	stats, ok := s.statsCache[c.EventCode]
	if !ok || stats.Count < s.minSamples {
		return nil
	}
	if stats.Std < simpleMinStd {
		return nil
	}

	z := (actual - stats.Mean) / stats.Std
	if math.Abs(z) < s.zThreshold {
		return nil
	}

	return &domain.GapSignal{
		NewsID:         c.NewsID,
		NewsTitle:      c.NewsTitle,
		StockCode:      c.StockCode,
		StockName:      c.StockName,
		EventCode:      c.EventCode,
		EventDate:      c.NewsDate,
		AnchorDate:     anchor.Date,
		Horizon:        scanHorizon,
		ActualReturn:   actual,
		ExpectedReturn: stats.Mean,
		ExpectedMean:   stats.Mean,
		ExpectedStd:    stats.Std,
		ZScore:         z,
		Percentile:     0.5,
		Direction:      simpleDirection(z),
		Magnitude:      simpleMagnitude(z),
		SampleCount:    stats.Count,
		CalcMode:       domain.CalcModeSimple,
	}
}

func simpleDirection(z float64) string {
	if z > 0 {
		return domain.DirectionOver
	}
	return domain.DirectionUnder
}

// simpleMagnitude keeps the fallback path's four-tier taxonomy, including
// the LOW tier that only appears when the threshold is configured below 1.
func simpleMagnitude(z float64) string {
	switch abs := math.Abs(z); {
	case abs >= 3.0:
		return domain.MagnitudeExtreme
	case abs >= 2.0:
		return domain.MagnitudeHigh
	case abs >= 1.0:
		return domain.MagnitudeModerate
	default:
		return domain.MagnitudeLow
	}
}

var _ Strategy = (*SimpleStrategy)(nil)
