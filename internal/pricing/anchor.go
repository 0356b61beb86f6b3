// Package pricing maps events to price anchors and computes forward
// log-returns against the daily price store.
package pricing

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/storage"
)

// AnchorMapper finds the price baseline for an event: the first trading day
// at or after the event's calendar date.
type AnchorMapper struct {
	prices storage.DailyPriceStore
	log    zerolog.Logger
}

// NewAnchorMapper creates a new AnchorMapper.
func NewAnchorMapper(prices storage.DailyPriceStore, log zerolog.Logger) *AnchorMapper {
	return &AnchorMapper{
		prices: prices,
		log:    log.With().Str("component", "anchor_mapper").Logger(),
	}
}

// PadStockCode left-pads a stock code to the 6-digit KRX form.
func PadStockCode(code string) string {
	code = strings.TrimSpace(code)
	if len(code) >= 6 {
		return code
	}
	return strings.Repeat("0", 6-len(code)) + code
}

// AnchorPrice returns the anchor for (stockCode, eventDate), or nil when no
// trading day at or after the event date exists. Store failures degrade to
// nil after logging; callers treat a nil anchor as absence, not an error.
func (m *AnchorMapper) AnchorPrice(ctx context.Context, stockCode, eventDate string) *domain.AnchorPrice {
	padded := PadStockCode(stockCode)

	row, err := m.prices.FirstOnOrAfter(ctx, padded, eventDate)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			m.log.Debug().Str("stock", padded).Str("event_date", eventDate).
				Msg("no anchor price")
			return nil
		}
		m.log.Error().Err(err).Str("stock", padded).Str("event_date", eventDate).
			Msg("anchor price lookup failed")
		return nil
	}

	return &domain.AnchorPrice{
		StockCode:   stockCode,
		EventDate:   eventDate,
		AnchorDate:  row.TradeDate,
		AnchorClose: row.Close,
		Volume:      row.Volume,
	}
}

// AnchorKey identifies one anchor request.
type AnchorKey struct {
	StockCode string
	EventDate string
}

// AnchorPricesBatch resolves anchors for many (stock, date) pairs, collecting
// non-nil results. Each pair issues its own store query; bulk backfills use
// the scanner's range price cache instead.
func (m *AnchorMapper) AnchorPricesBatch(ctx context.Context, keys []AnchorKey) map[AnchorKey]*domain.AnchorPrice {
	result := make(map[AnchorKey]*domain.AnchorPrice)
	for _, k := range keys {
		if anchor := m.AnchorPrice(ctx, k.StockCode, k.EventDate); anchor != nil {
			result[k] = anchor
		}
	}
	return result
}
