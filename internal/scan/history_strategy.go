package scan

import (
	"context"

	"github.com/rs/zerolog"

	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/gap"
	"krx-gap-lab/internal/pricing"
)

// scanHorizon is the horizon the daily scanner judges on. Builders still
// record the full 1/3/5 set; live verdicts use next-day moves only.
const scanHorizon = 1

// HistoryStrategy is the primary calculation path: anchor the candidate to a
// trading day, compute the realized next-day return, and compare it against
// the event's accumulated distribution in event_returns_history.
type HistoryStrategy struct {
	mapper     *pricing.AnchorMapper
	calculator *pricing.ReturnCalculator
	detector   *gap.Detector
	log        zerolog.Logger
}

func NewHistoryStrategy(mapper *pricing.AnchorMapper, calculator *pricing.ReturnCalculator, detector *gap.Detector, log zerolog.Logger) *HistoryStrategy {
	return &HistoryStrategy{
		mapper:     mapper,
		calculator: calculator,
		detector:   detector,
		log:        log.With().Str("strategy", domain.CalcModeHistory).Logger(),
	}
}

func (s *HistoryStrategy) Name() string { return domain.CalcModeHistory }

func (s *HistoryStrategy) Attempt(ctx context.Context, c *Candidate) *domain.GapSignal {
	if c.EventCode == "" || c.EventCode == domain.EventCodeOther {
		return nil
	}

	anchor := s.mapper.AnchorPrice(ctx, c.StockCode, c.NewsDate)
	if anchor == nil {
		return nil
	}

	path := s.calculator.CalculateReturns(ctx, c.StockCode, anchor.AnchorDate, anchor.AnchorClose, []int{scanHorizon})
	actual, ok := path.Return(scanHorizon)
	if !ok {
		return nil
	}

	sig, err := s.detector.Detect(ctx, &gap.Observation{
		NewsID:       c.NewsID,
		NewsTitle:    c.NewsTitle,
		StockCode:    c.StockCode,
		StockName:    c.StockName,
		EventCode:    c.EventCode,
		EventDate:    c.NewsDate,
		AnchorDate:   anchor.AnchorDate,
		Horizon:      scanHorizon,
		ActualReturn: actual,
	})
	if err != nil {
		s.log.Error().Err(err).
			Str("news_id", c.NewsID).
			Str("stock_code", c.StockCode).
			Msg("history-based detection failed")
		return nil
	}
	return sig
}

var _ Strategy = (*HistoryStrategy)(nil)
