// Package gap turns realized returns into anomaly verdicts by comparing them
// against per-event expected distributions.
package gap

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/expectation"
	"krx-gap-lab/internal/pricing"
	"krx-gap-lab/internal/storage"
)

const (
	// DefaultZThreshold is the minimum |z| for a signal.
	DefaultZThreshold = 2.0

	// DefaultMinConfidence gates out distributions built from thin history.
	DefaultMinConfidence = 0.5

	// minStd guards the z-score division against degenerate distributions.
	minStd = 1e-6

	// neutralPercentile is reported when the rank cannot be computed.
	neutralPercentile = 0.5
)

// Detector checks realized returns against expected distributions and emits
// GapSignal verdicts for statistically unusual moves.
type Detector struct {
	model         *expectation.Model
	returns       storage.EventReturnStore
	zThreshold    float64
	minConfidence float64
	log           zerolog.Logger
}

// Option customizes a Detector.
type Option func(*Detector)

// WithZThreshold overrides the signal threshold.
func WithZThreshold(z float64) Option {
	return func(d *Detector) { d.zThreshold = z }
}

// WithMinConfidence overrides the confidence gate.
func WithMinConfidence(c float64) Option {
	return func(d *Detector) { d.minConfidence = c }
}

func NewDetector(model *expectation.Model, returns storage.EventReturnStore, log zerolog.Logger, opts ...Option) *Detector {
	d := &Detector{
		model:         model,
		returns:       returns,
		zThreshold:    DefaultZThreshold,
		minConfidence: DefaultMinConfidence,
		log:           log.With().Str("component", "gap_detector").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Observation is one realized return to be checked against expectations.
type Observation struct {
	NewsID       string
	NewsTitle    string
	StockCode    string
	StockName    string
	EventCode    string
	EventDate    string
	AnchorDate   string
	Horizon      int
	ActualReturn float64
}

// Detect evaluates one observation. A nil signal with a nil error means the
// move is unremarkable or there is not enough history to judge it.
func (d *Detector) Detect(ctx context.Context, obs *Observation) (*domain.GapSignal, error) {
	stats, err := d.model.Expectation(ctx, obs.EventCode, obs.Horizon, obs.AnchorDate)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return nil, nil
	}
	if stats.Confidence < d.minConfidence {
		d.log.Debug().
			Str("event_code", obs.EventCode).
			Float64("confidence", stats.Confidence).
			Msg("distribution confidence below gate")
		return nil, nil
	}
	if stats.Std < minStd {
		d.log.Debug().
			Str("event_code", obs.EventCode).
			Int("horizon", obs.Horizon).
			Msg("degenerate distribution, skipping")
		return nil, nil
	}

	z := (obs.ActualReturn - stats.Median) / stats.Std
	if math.Abs(z) < d.zThreshold {
		return nil, nil
	}

	return &domain.GapSignal{
		NewsID:         obs.NewsID,
		NewsTitle:      obs.NewsTitle,
		StockCode:      obs.StockCode,
		StockName:      obs.StockName,
		EventCode:      obs.EventCode,
		EventDate:      obs.EventDate,
		AnchorDate:     obs.AnchorDate,
		Horizon:        obs.Horizon,
		ActualReturn:   obs.ActualReturn,
		ExpectedReturn: stats.Median,
		ExpectedMean:   stats.Mean,
		ExpectedStd:    stats.Std,
		ExpectedQ25:    stats.Q25,
		ExpectedQ75:    stats.Q75,
		ZScore:         z,
		Percentile:     d.percentileRank(ctx, obs),
		Confidence:     stats.Confidence,
		Direction:      Direction(z),
		Magnitude:      Magnitude(z),
		SampleCount:    stats.Count,
		CalcMode:       domain.CalcModeHistory,
	}, nil
}

// BatchEvent is one classified event with its realized returns per horizon,
// as produced by the return calculator.
type BatchEvent struct {
	NewsID     string
	NewsTitle  string
	StockCode  string
	StockName  string
	EventCode  string
	EventDate  string
	AnchorDate string
	Returns    map[int]*float64
}

// DetectBatch evaluates the cross product of events and horizons, collecting
// only the observations that produce a signal. Horizons without a realized
// return are skipped; a store error on one pair does not abort the rest.
// A nil horizons slice means the default 1/3/5 trading days.
func (d *Detector) DetectBatch(ctx context.Context, events []*BatchEvent, horizons []int) []*domain.GapSignal {
	if len(horizons) == 0 {
		horizons = pricing.DefaultHorizons
	}
	var signals []*domain.GapSignal
	for _, ev := range events {
		for _, horizon := range horizons {
			actual, ok := ev.Returns[horizon]
			if !ok || actual == nil {
				continue
			}
			sig, err := d.Detect(ctx, &Observation{
				NewsID:       ev.NewsID,
				NewsTitle:    ev.NewsTitle,
				StockCode:    ev.StockCode,
				StockName:    ev.StockName,
				EventCode:    ev.EventCode,
				EventDate:    ev.EventDate,
				AnchorDate:   ev.AnchorDate,
				Horizon:      horizon,
				ActualReturn: *actual,
			})
			if err != nil {
				d.log.Error().Err(err).
					Str("news_id", ev.NewsID).
					Str("stock_code", ev.StockCode).
					Int("horizon", horizon).
					Msg("gap detection failed")
				continue
			}
			if sig != nil {
				signals = append(signals, sig)
			}
		}
	}
	return signals
}

// percentileRank places the actual return within the event's history as the
// share of returns strictly below it. Falls back to the neutral 0.5 when the
// rank query fails or the history is empty.
func (d *Detector) percentileRank(ctx context.Context, obs *Observation) float64 {
	below, total, err := d.returns.CountBelow(ctx, obs.EventCode, obs.Horizon, obs.ActualReturn)
	if err != nil {
		d.log.Warn().Err(err).
			Str("event_code", obs.EventCode).
			Msg("percentile rank query failed, using neutral")
		return neutralPercentile
	}
	if total == 0 {
		return neutralPercentile
	}
	return float64(below) / float64(total)
}

// Direction reports OVER for positive z and UNDER otherwise.
func Direction(z float64) string {
	if z > 0 {
		return domain.DirectionOver
	}
	return domain.DirectionUnder
}

// Magnitude maps |z| to a severity tier. Only tiers at or above MODERATE are
// emitted here; callers past the signal threshold never see values below 2.
func Magnitude(z float64) string {
	switch abs := math.Abs(z); {
	case abs >= 3.0:
		return domain.MagnitudeExtreme
	case abs >= 2.0:
		return domain.MagnitudeHigh
	default:
		return domain.MagnitudeModerate
	}
}
