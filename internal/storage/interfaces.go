package storage

import (
	"context"

	"krx-gap-lab/internal/domain"
)

// DailyPriceStore provides access to stock_daily_prices storage.
// All dates cross this interface in compact YYYYMMDD form.
type DailyPriceStore interface {
	// InsertBulk adds multiple price rows.
	InsertBulk(ctx context.Context, rows []*domain.DailyPrice) error

	// FirstOnOrAfter returns the earliest row with trade_date >= date for the
	// stock. Returns ErrNotFound when no such row exists.
	FirstOnOrAfter(ctx context.Context, stockCode, date string) (*domain.DailyPrice, error)

	// NthAfter returns the n-th row (1-based) with trade_date strictly after
	// date, ordered ascending. Returns ErrNotFound when fewer than n future
	// trading days exist.
	NthAfter(ctx context.Context, stockCode, date string, n int) (*domain.DailyPrice, error)

	// PathFrom returns up to limit rows with trade_date >= date, ordered
	// ascending.
	PathFrom(ctx context.Context, stockCode, date string, limit int) ([]*domain.DailyPrice, error)

	// RangeBetween returns all rows across all stocks within [start, end]
	// (inclusive), ordered by stock_code then trade_date. Used to bulk-load
	// the scanner's run-scoped price cache.
	RangeBetween(ctx context.Context, start, end string) ([]*domain.DailyPrice, error)
}

// EventReturnStore provides access to event_returns_history storage.
type EventReturnStore interface {
	// Upsert inserts or updates a record keyed by (stock_code, event_date,
	// event_code). Re-runs overwrite returns but not identity fields.
	Upsert(ctx context.Context, r *domain.EventReturn) error

	// UpsertBulk applies Upsert to all records within one transaction.
	UpsertBulk(ctx context.Context, records []*domain.EventReturn) error

	// ReturnsByEvent returns all non-null returns at the horizon for the
	// event code with event_date in [from, to] (inclusive).
	ReturnsByEvent(ctx context.Context, eventCode string, horizon int, from, to string) ([]float64, error)

	// CountBelow returns how many non-null returns at the horizon for the
	// event code are strictly less than value, and the total non-null count.
	CountBelow(ctx context.Context, eventCode string, horizon int, value float64) (below, total int, err error)
}

// NewsReturnStore provides access to news_returns storage.
type NewsReturnStore interface {
	// UpsertBulk inserts or updates records keyed by (news_id, stock_code,
	// event_code) within one transaction.
	UpsertBulk(ctx context.Context, records []*domain.NewsReturn) error

	// AggregateByEvent returns per-event-code mean/std/count of the horizon
	// return over news_date in [from, to] (inclusive). Events with no
	// non-null returns in the window are absent from the map.
	AggregateByEvent(ctx context.Context, horizon int, from, to string) (map[string]domain.ReturnAggregate, error)
}

// GapSignalStore provides access to news_gaps storage.
type GapSignalStore interface {
	// Upsert inserts or updates a signal keyed by (news_id, stock_code,
	// horizon). An update overwrites z_score, direction, magnitude and
	// calc_mode only; sample provenance fields keep their first value.
	// Implementations whose schema lacks a calc_mode column must skip that
	// field rather than fail.
	Upsert(ctx context.Context, s *domain.GapSignal) error

	// GetByDate returns all signals for an event date (YYYYMMDD).
	GetByDate(ctx context.Context, date string) ([]*domain.GapSignal, error)
}

// NewsEventStore provides read access to classified news rows.
type NewsEventStore interface {
	// GetByDate returns classified news (non-null companies and event codes)
	// for one calendar day, ordered by date.
	GetByDate(ctx context.Context, date string) ([]*domain.NewsEvent, error)

	// GetByDateRange returns classified news with news_date in [start, end].
	GetByDateRange(ctx context.Context, start, end string) ([]*domain.NewsEvent, error)
}

// DisclosureStore provides read access to regulatory disclosures.
type DisclosureStore interface {
	// GetByDateRange returns disclosures with event_date in [start, end],
	// ordered by event_date.
	GetByDateRange(ctx context.Context, start, end string) ([]*domain.Disclosure, error)
}

// ListingStore provides corp-to-stock resolution.
type ListingStore interface {
	// StockCodeByCorp returns the stock code for a corp code.
	// Returns ErrNotFound for unlisted corporations.
	StockCodeByCorp(ctx context.Context, corpCode string) (string, error)

	// CorpNameByStock returns the company name for a stock code.
	// Returns ErrNotFound when unknown.
	CorpNameByStock(ctx context.Context, stockCode string) (string, error)
}
