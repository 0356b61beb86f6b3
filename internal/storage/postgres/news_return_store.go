package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/storage"
)

// NewsReturnStore implements storage.NewsReturnStore using PostgreSQL.
type NewsReturnStore struct {
	pool *Pool
}

// NewNewsReturnStore creates a new NewsReturnStore.
func NewNewsReturnStore(pool *Pool) *NewsReturnStore {
	return &NewsReturnStore{pool: pool}
}

// Compile-time interface check.
var _ storage.NewsReturnStore = (*NewsReturnStore)(nil)

const upsertNewsReturnSQL = `
	INSERT INTO news_returns (
		news_id, stock_code, stock_name, event_code, news_date,
		anchor_price, return_1d, return_3d, return_5d
	) VALUES (
		$1, $2, $3, $4, to_date($5, 'YYYYMMDD'), $6, $7, $8, $9
	)
	ON CONFLICT (news_id, stock_code, event_code) DO UPDATE SET
		return_1d = EXCLUDED.return_1d,
		return_3d = EXCLUDED.return_3d,
		return_5d = EXCLUDED.return_5d
`

// UpsertBulk inserts or updates records as one pipelined batch. The batch is
// sent in a single sync, so it commits or fails as a unit.
func (s *NewsReturnStore) UpsertBulk(ctx context.Context, records []*domain.NewsReturn) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		if r == nil || r.NewsID == "" || r.StockCode == "" || r.EventCode == "" {
			return storage.ErrInvalidInput
		}
		batch.Queue(upsertNewsReturnSQL,
			r.NewsID, r.StockCode, r.StockName, r.EventCode, r.NewsDate,
			r.AnchorPrice, r.Return1D, r.Return3D, r.Return5D,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert news return: %w", err)
		}
	}
	return results.Close()
}

// AggregateByEvent returns per-event mean/sample-std/count of the horizon
// return over news_date in [from, to].
func (s *NewsReturnStore) AggregateByEvent(ctx context.Context, horizon int, from, to string) (map[string]domain.ReturnAggregate, error) {
	col, err := returnColumn(horizon)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT event_code, avg(%s), coalesce(stddev_samp(%s), 0), count(*)
		FROM news_returns
		WHERE %s IS NOT NULL
		  AND news_date BETWEEN to_date($1, 'YYYYMMDD') AND to_date($2, 'YYYYMMDD')
		GROUP BY event_code
	`, col, col, col)

	rows, err := s.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregate news returns: %w", err)
	}
	defer rows.Close()

	result := make(map[string]domain.ReturnAggregate)
	for rows.Next() {
		var code string
		var agg domain.ReturnAggregate
		if err := rows.Scan(&code, &agg.Mean, &agg.Std, &agg.Count); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		result[code] = agg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregates: %w", err)
	}
	return result, nil
}
