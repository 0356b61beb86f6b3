package pricing

import (
	"context"
	"errors"
	"math"

	"github.com/rs/zerolog"

	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/storage"
)

// DefaultHorizons are the trading-day horizons measured when the caller does
// not ask for specific ones.
var DefaultHorizons = []int{1, 3, 5}

// ReturnCalculator computes forward log-returns from an anchor.
type ReturnCalculator struct {
	prices storage.DailyPriceStore
	log    zerolog.Logger
}

// NewReturnCalculator creates a new ReturnCalculator.
func NewReturnCalculator(prices storage.DailyPriceStore, log zerolog.Logger) *ReturnCalculator {
	return &ReturnCalculator{
		prices: prices,
		log:    log.With().Str("component", "return_calculator").Logger(),
	}
}

// CalculateReturns computes ln(price_H / anchorPrice) for each horizon H,
// where price_H is the close on the H-th trading day strictly after
// anchorDate. A horizon with fewer than H future trading days is nil.
// Store failures degrade the affected horizons to nil after logging; an
// all-nil path means "no data", never an error to propagate.
func (c *ReturnCalculator) CalculateReturns(ctx context.Context, stockCode, anchorDate string, anchorPrice float64, horizons []int) *domain.ReturnPath {
	if len(horizons) == 0 {
		horizons = DefaultHorizons
	}

	path := &domain.ReturnPath{
		StockCode:   stockCode,
		AnchorDate:  anchorDate,
		AnchorPrice: anchorPrice,
		Horizons:    make(map[int]*float64, len(horizons)),
	}

	padded := PadStockCode(stockCode)
	for _, h := range horizons {
		row, err := c.prices.NthAfter(ctx, padded, anchorDate, h)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				c.log.Error().Err(err).Str("stock", padded).Int("horizon", h).
					Msg("forward price lookup failed")
			}
			path.Horizons[h] = nil
			continue
		}

		logReturn := math.Log(row.Close / anchorPrice)
		path.Horizons[h] = &logReturn

		c.log.Debug().Str("stock", padded).Int("horizon", h).
			Float64("anchor", anchorPrice).Float64("future", row.Close).
			Float64("log_return", logReturn).Msg("horizon return")
	}

	return path
}

// CalculatePricePath returns up to days ordered (date, close) observations
// starting at startDate, degrading to an empty path on store failure.
func (c *ReturnCalculator) CalculatePricePath(ctx context.Context, stockCode, startDate string, days int) []domain.PricePoint {
	points, err := c.CalculatePricePathStrict(ctx, stockCode, startDate, days)
	if err != nil {
		c.log.Error().Err(err).Str("stock", stockCode).Str("start", startDate).
			Msg("price path lookup failed")
		return nil
	}
	return points
}

// CalculatePricePathStrict is the diagnostic entry point: same lookup as
// CalculatePricePath but the store error is returned to the caller.
func (c *ReturnCalculator) CalculatePricePathStrict(ctx context.Context, stockCode, startDate string, days int) ([]domain.PricePoint, error) {
	rows, err := c.prices.PathFrom(ctx, PadStockCode(stockCode), startDate, days)
	if err != nil {
		return nil, err
	}

	points := make([]domain.PricePoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, domain.PricePoint{Date: r.TradeDate, Close: r.Close})
	}
	return points, nil
}
