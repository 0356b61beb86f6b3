package postgres

import (
	"context"
	"fmt"

	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/storage"
)

// EventReturnStore implements storage.EventReturnStore using PostgreSQL.
type EventReturnStore struct {
	pool *Pool
}

// NewEventReturnStore creates a new EventReturnStore.
func NewEventReturnStore(pool *Pool) *EventReturnStore {
	return &EventReturnStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventReturnStore = (*EventReturnStore)(nil)

const upsertEventReturnSQL = `
	INSERT INTO event_returns_history (
		stock_code, event_date, event_code, anchor_date, anchor_price,
		return_1d, return_3d, return_5d, volume, market_cap, created_at, updated_at
	) VALUES (
		$1, to_date($2, 'YYYYMMDD'), $3, to_date($4, 'YYYYMMDD'), $5,
		$6, $7, $8, $9, $10, now(), now()
	)
	ON CONFLICT (stock_code, event_date, event_code) DO UPDATE SET
		anchor_date = EXCLUDED.anchor_date,
		anchor_price = EXCLUDED.anchor_price,
		return_1d = EXCLUDED.return_1d,
		return_3d = EXCLUDED.return_3d,
		return_5d = EXCLUDED.return_5d,
		volume = EXCLUDED.volume,
		market_cap = EXCLUDED.market_cap,
		updated_at = now()
`

// Upsert inserts or updates a record on (stock_code, event_date, event_code).
func (s *EventReturnStore) Upsert(ctx context.Context, r *domain.EventReturn) error {
	if r == nil || r.StockCode == "" || r.EventCode == "" || len(r.EventDate) != 8 {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, upsertEventReturnSQL,
		r.StockCode, r.EventDate, r.EventCode, r.AnchorDate, r.AnchorPrice,
		r.Return1D, r.Return3D, r.Return5D, r.Volume, r.MarketCap,
	)
	if err != nil {
		return fmt.Errorf("upsert event return: %w", err)
	}
	return nil
}

// UpsertBulk applies Upsert to all records within one transaction.
func (s *EventReturnStore) UpsertBulk(ctx context.Context, records []*domain.EventReturn) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		if r == nil || r.StockCode == "" || r.EventCode == "" || len(r.EventDate) != 8 {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, upsertEventReturnSQL,
			r.StockCode, r.EventDate, r.EventCode, r.AnchorDate, r.AnchorPrice,
			r.Return1D, r.Return3D, r.Return5D, r.Volume, r.MarketCap,
		)
		if err != nil {
			return fmt.Errorf("upsert event return in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ReturnsByEvent returns all non-null returns at the horizon within [from, to].
func (s *EventReturnStore) ReturnsByEvent(ctx context.Context, eventCode string, horizon int, from, to string) ([]float64, error) {
	col, err := returnColumn(horizon)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM event_returns_history
		WHERE event_code = $1
		  AND %s IS NOT NULL
		  AND event_date BETWEEN to_date($2, 'YYYYMMDD') AND to_date($3, 'YYYYMMDD')
	`, col, col)

	rows, err := s.pool.Query(ctx, query, eventCode, from, to)
	if err != nil {
		return nil, fmt.Errorf("query returns by event: %w", err)
	}
	defer rows.Close()

	var result []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan return: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate returns: %w", err)
	}
	return result, nil
}

// CountBelow counts non-null returns strictly below value, plus the total.
func (s *EventReturnStore) CountBelow(ctx context.Context, eventCode string, horizon int, value float64) (below, total int, err error) {
	col, err := returnColumn(horizon)
	if err != nil {
		return 0, 0, err
	}

	query := fmt.Sprintf(`
		SELECT
			count(*) FILTER (WHERE %s < $2),
			count(*)
		FROM event_returns_history
		WHERE event_code = $1 AND %s IS NOT NULL
	`, col, col)

	if err := s.pool.QueryRow(ctx, query, eventCode, value).Scan(&below, &total); err != nil {
		return 0, 0, fmt.Errorf("count below: %w", err)
	}
	return below, total, nil
}

// returnColumn maps a horizon to its column name. Horizons are a closed set,
// never interpolated from user input.
func returnColumn(horizon int) (string, error) {
	switch horizon {
	case 1:
		return "return_1d", nil
	case 3:
		return "return_3d", nil
	case 5:
		return "return_5d", nil
	}
	return "", fmt.Errorf("%w: unsupported horizon %d", storage.ErrInvalidInput, horizon)
}
