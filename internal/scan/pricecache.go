// Package scan contains the batch pipelines: history builders that accumulate
// realized post-event returns, and the daily scanner that turns fresh news
// into gap signals.
package scan

import (
	"context"
	"fmt"

	"krx-gap-lab/internal/dateutil"
	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/storage"
)

// pricePadDays widens the cached window on both sides so anchors near the
// range edges still find their forward horizons.
const pricePadDays = 5

// PriceCache holds one date range of closing prices for every stock, loaded
// in a single bulk query. Horizon lookups are index arithmetic over the
// per-stock ascending series, so a cache built for a scan run replaces
// per-row store round trips.
type PriceCache struct {
	series map[string][]domain.PricePoint
}

// LoadPriceCache bulk-loads [start-5d, end+5d] for all stocks.
func LoadPriceCache(ctx context.Context, prices storage.DailyPriceStore, start, end string) (*PriceCache, error) {
	from, err := dateutil.AddDays(start, -pricePadDays)
	if err != nil {
		return nil, fmt.Errorf("price cache window start: %w", err)
	}
	to, err := dateutil.AddDays(end, pricePadDays)
	if err != nil {
		return nil, fmt.Errorf("price cache window end: %w", err)
	}

	rows, err := prices.RangeBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load price range: %w", err)
	}

	series := make(map[string][]domain.PricePoint)
	for _, row := range rows {
		series[row.StockCode] = append(series[row.StockCode], domain.PricePoint{
			Date:  row.TradeDate,
			Close: row.Close,
		})
	}
	return &PriceCache{series: series}, nil
}

// Stocks reports how many stocks the cache covers.
func (c *PriceCache) Stocks() int { return len(c.series) }

// anchorIndex finds the first cached trading day on or after date, or -1.
func (c *PriceCache) anchorIndex(stockCode, date string) int {
	for i, p := range c.series[stockCode] {
		if p.Date >= date {
			return i
		}
	}
	return -1
}

// Anchor returns the first cached trading day on or after date for the stock.
func (c *PriceCache) Anchor(stockCode, date string) (domain.PricePoint, bool) {
	idx := c.anchorIndex(stockCode, date)
	if idx < 0 {
		return domain.PricePoint{}, false
	}
	return c.series[stockCode][idx], true
}

// ReturnsFrom computes log-returns over the given trading-day horizons from
// the anchor on or after date. Horizons beyond the cached series stay nil.
// The second result is false when no anchor exists in the cache.
func (c *PriceCache) ReturnsFrom(stockCode, date string, horizons []int) (anchor domain.PricePoint, returns map[int]*float64, ok bool) {
	idx := c.anchorIndex(stockCode, date)
	if idx < 0 {
		return domain.PricePoint{}, nil, false
	}
	series := c.series[stockCode]
	anchor = series[idx]

	returns = make(map[int]*float64, len(horizons))
	for _, h := range horizons {
		returns[h] = nil
		if idx+h < len(series) && anchor.Close > 0 {
			r := logReturn(anchor.Close, series[idx+h].Close)
			returns[h] = &r
		}
	}
	return anchor, returns, true
}
