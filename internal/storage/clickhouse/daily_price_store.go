package clickhouse

import (
	"context"
	"fmt"
	"time"

	"krx-gap-lab/internal/dateutil"
	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/storage"
)

// DailyPriceStore implements storage.DailyPriceStore using ClickHouse.
// stock_daily_prices is a ReplacingMergeTree ordered by (stock_code,
// trade_date); duplicate loads collapse on merge.
type DailyPriceStore struct {
	conn *Conn
}

// NewDailyPriceStore creates a new DailyPriceStore.
func NewDailyPriceStore(conn *Conn) *DailyPriceStore {
	return &DailyPriceStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DailyPriceStore = (*DailyPriceStore)(nil)

// InsertBulk adds multiple price rows.
func (s *DailyPriceStore) InsertBulk(ctx context.Context, rows []*domain.DailyPrice) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO stock_daily_prices (stock_code, trade_date, close_price, volume)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		if r == nil || r.StockCode == "" || len(r.TradeDate) != 8 {
			return storage.ErrInvalidInput
		}
		d, err := dateutil.ToTime(r.TradeDate)
		if err != nil {
			return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
		}
		if err := batch.Append(r.StockCode, d, r.Close, uint64(r.Volume)); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// FirstOnOrAfter returns the earliest row with trade_date >= date.
func (s *DailyPriceStore) FirstOnOrAfter(ctx context.Context, stockCode, date string) (*domain.DailyPrice, error) {
	query := `
		SELECT stock_code, trade_date, close_price, volume
		FROM stock_daily_prices FINAL
		WHERE stock_code = ? AND trade_date >= ?
		ORDER BY trade_date ASC
		LIMIT 1
	`
	rows, err := s.queryPrices(ctx, query, stockCode, date)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, storage.ErrNotFound
	}
	return rows[0], nil
}

// NthAfter returns the n-th row strictly after date: skip n-1 later rows,
// take the next one.
func (s *DailyPriceStore) NthAfter(ctx context.Context, stockCode, date string, n int) (*domain.DailyPrice, error) {
	if n < 1 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT stock_code, trade_date, close_price, volume
		FROM stock_daily_prices FINAL
		WHERE stock_code = ? AND trade_date > ?
		ORDER BY trade_date ASC
		LIMIT 1 OFFSET ?
	`
	rows, err := s.queryPrices(ctx, query, stockCode, date, n-1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, storage.ErrNotFound
	}
	return rows[0], nil
}

// PathFrom returns up to limit rows with trade_date >= date.
func (s *DailyPriceStore) PathFrom(ctx context.Context, stockCode, date string, limit int) ([]*domain.DailyPrice, error) {
	query := `
		SELECT stock_code, trade_date, close_price, volume
		FROM stock_daily_prices FINAL
		WHERE stock_code = ? AND trade_date >= ?
		ORDER BY trade_date ASC
		LIMIT ?
	`
	return s.queryPrices(ctx, query, stockCode, date, limit)
}

// RangeBetween returns all rows within [start, end] across all stocks.
func (s *DailyPriceStore) RangeBetween(ctx context.Context, start, end string) ([]*domain.DailyPrice, error) {
	query := `
		SELECT stock_code, trade_date, close_price, volume
		FROM stock_daily_prices FINAL
		WHERE trade_date BETWEEN ? AND ?
		ORDER BY stock_code, trade_date
	`
	return s.queryPrices(ctx, query, start, end)
}

// queryPrices runs a price query. Compact-date arguments are converted to
// time.Time for the Date column.
func (s *DailyPriceStore) queryPrices(ctx context.Context, query string, args ...any) ([]*domain.DailyPrice, error) {
	converted := make([]any, len(args))
	for i, a := range args {
		if str, ok := a.(string); ok && len(str) == 8 {
			d, err := dateutil.ToTime(str)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
			}
			converted[i] = d
			continue
		}
		converted[i] = a
	}

	rows, err := s.conn.Query(ctx, query, converted...)
	if err != nil {
		return nil, fmt.Errorf("query daily prices: %w", err)
	}
	defer rows.Close()

	var result []*domain.DailyPrice
	for rows.Next() {
		var (
			code   string
			day    time.Time
			close  float64
			volume uint64
		)
		if err := rows.Scan(&code, &day, &close, &volume); err != nil {
			return nil, fmt.Errorf("scan daily price: %w", err)
		}
		result = append(result, &domain.DailyPrice{
			StockCode: code,
			TradeDate: dateutil.FromTime(day),
			Close:     close,
			Volume:    int64(volume),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily prices: %w", err)
	}
	return result, nil
}
