// Package expectation derives per-event return distributions from the
// accumulated event_returns_history and serves them through a per-instance
// cache keyed by event, horizon, lookback and as-of date.
package expectation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"krx-gap-lab/internal/dateutil"
	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/storage"
)

const (
	// DefaultLookbackDays bounds the history window used to build a
	// distribution.
	DefaultLookbackDays = 365

	// MinSamples is the smallest history an expectation can be built from.
	MinSamples = 10

	// confidenceFullSamples is the sample count at which confidence
	// saturates at 1.0.
	confidenceFullSamples = 100
)

// Model computes expected-return distributions per (event, horizon) and
// caches them for the lifetime of the instance. Safe for concurrent use.
type Model struct {
	returns      storage.EventReturnStore
	lookbackDays int
	log          zerolog.Logger

	mu    sync.RWMutex
	cache map[string]*domain.ExpectationStats
	hits  int
	miss  int
}

// Option customizes a Model.
type Option func(*Model)

// WithLookbackDays overrides the default history window.
func WithLookbackDays(days int) Option {
	return func(m *Model) { m.lookbackDays = days }
}

func NewModel(returns storage.EventReturnStore, log zerolog.Logger, opts ...Option) *Model {
	m := &Model{
		returns:      returns,
		lookbackDays: DefaultLookbackDays,
		log:          log.With().Str("component", "expectation_model").Logger(),
		cache:        make(map[string]*domain.ExpectationStats),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// cacheKey includes asOf so that distributions computed for different
// reference dates never collide: an expectation is always point-in-time.
func (m *Model) cacheKey(eventCode string, horizon int, asOf string) string {
	return fmt.Sprintf("%s_%d_%d_%s", eventCode, horizon, m.lookbackDays, asOf)
}

// Expectation returns the return distribution for the event code at the
// horizon, built from history strictly within the lookback window ending at
// asOf (compact YYYYMMDD). Returns nil when fewer than MinSamples records
// exist; a nil result is cached so the store is not re-queried within a run.
func (m *Model) Expectation(ctx context.Context, eventCode string, horizon int, asOf string) (*domain.ExpectationStats, error) {
	key := m.cacheKey(eventCode, horizon, asOf)

	m.mu.RLock()
	stats, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		m.mu.Lock()
		m.hits++
		m.mu.Unlock()
		return stats, nil
	}

	from, err := dateutil.AddDays(asOf, -m.lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("resolve lookback window: %w", err)
	}

	returns, err := m.returns.ReturnsByEvent(ctx, eventCode, horizon, from, asOf)
	if err != nil {
		return nil, fmt.Errorf("load returns for %s h=%d: %w", eventCode, horizon, err)
	}

	stats = buildStats(eventCode, horizon, returns)
	if stats == nil {
		m.log.Debug().
			Str("event_code", eventCode).
			Int("horizon", horizon).
			Int("samples", len(returns)).
			Msg("insufficient history for expectation")
	}

	m.mu.Lock()
	m.cache[key] = stats
	m.miss++
	m.mu.Unlock()
	return stats, nil
}

// AllExpectations builds distributions for every event code at every horizon,
// skipping combinations with insufficient history.
func (m *Model) AllExpectations(ctx context.Context, eventCodes []string, horizons []int, asOf string) (map[string]map[int]*domain.ExpectationStats, error) {
	out := make(map[string]map[int]*domain.ExpectationStats, len(eventCodes))
	for _, code := range eventCodes {
		for _, h := range horizons {
			stats, err := m.Expectation(ctx, code, h, asOf)
			if err != nil {
				return nil, err
			}
			if stats == nil {
				continue
			}
			if out[code] == nil {
				out[code] = make(map[int]*domain.ExpectationStats, len(horizons))
			}
			out[code][h] = stats
		}
	}
	return out, nil
}

// ClearCache drops all cached distributions. Call between scan runs so each
// run observes current history.
func (m *Model) ClearCache() {
	m.mu.Lock()
	m.cache = make(map[string]*domain.ExpectationStats)
	m.hits = 0
	m.miss = 0
	m.mu.Unlock()
}

// CacheStats reports cache hit and miss counts since the last ClearCache.
func (m *Model) CacheStats() (hits, misses int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hits, m.miss
}

func buildStats(eventCode string, horizon int, returns []float64) *domain.ExpectationStats {
	n := len(returns)
	if n < MinSamples {
		return nil
	}

	sorted := make([]float64, n)
	copy(sorted, returns)
	sort.Float64s(sorted)

	mean := 0.0
	for _, r := range sorted {
		mean += r
	}
	mean /= float64(n)

	variance := 0.0
	for _, r := range sorted {
		d := r - mean
		variance += d * d
	}
	variance /= float64(n - 1)
	std := math.Sqrt(variance)

	q25 := percentile(sorted, 0.25)
	median := percentile(sorted, 0.50)
	q75 := percentile(sorted, 0.75)

	confidence := float64(n) / confidenceFullSamples
	if confidence > 1.0 {
		confidence = 1.0
	}

	return &domain.ExpectationStats{
		EventCode:  eventCode,
		Horizon:    horizon,
		Mean:       mean,
		Median:     median,
		Std:        std,
		Q25:        q25,
		Q75:        q75,
		IQR:        q75 - q25,
		Count:      n,
		Confidence: confidence,
	}
}

// percentile computes the p-th quantile of a sorted slice using linear
// interpolation between closest ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
