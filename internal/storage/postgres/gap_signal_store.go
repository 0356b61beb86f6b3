package postgres

import (
	"context"
	"fmt"
	"sync"

	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/storage"
)

// GapSignalStore implements storage.GapSignalStore using PostgreSQL.
//
// Deployed news_gaps schemas do not all carry the calc_mode column; the
// store probes information_schema once and shapes its upsert accordingly.
type GapSignalStore struct {
	pool *Pool

	mu          sync.Mutex
	probed      bool
	hasCalcMode bool
}

// NewGapSignalStore creates a new GapSignalStore.
func NewGapSignalStore(pool *Pool) *GapSignalStore {
	return &GapSignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.GapSignalStore = (*GapSignalStore)(nil)

// calcModeSupported reports whether news_gaps has a calc_mode column.
// The probe result is cached for the lifetime of the store.
func (s *GapSignalStore) calcModeSupported(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.probed {
		return s.hasCalcMode, nil
	}

	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_name = 'news_gaps' AND column_name = 'calc_mode'
		)
	`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("probe news_gaps columns: %w", err)
	}

	s.probed = true
	s.hasCalcMode = exists
	return exists, nil
}

const upsertSignalSQL = `
	INSERT INTO news_gaps (
		news_id, news_title, stock_code, stock_name, event_code,
		news_date, anchor_date, horizon, actual_return, expected_return,
		expected_std, z_score, percentile, confidence, direction,
		magnitude, sample_count
	) VALUES (
		$1, $2, $3, $4, $5,
		to_date($6, 'YYYYMMDD'), to_date($7, 'YYYYMMDD'), $8, $9, $10,
		$11, $12, $13, $14, $15,
		$16, $17
	)
	ON CONFLICT (news_id, stock_code, horizon) DO UPDATE SET
		z_score = EXCLUDED.z_score,
		direction = EXCLUDED.direction,
		magnitude = EXCLUDED.magnitude
`

const upsertSignalCalcModeSQL = `
	INSERT INTO news_gaps (
		news_id, news_title, stock_code, stock_name, event_code,
		news_date, anchor_date, horizon, actual_return, expected_return,
		expected_std, z_score, percentile, confidence, direction,
		magnitude, sample_count, calc_mode
	) VALUES (
		$1, $2, $3, $4, $5,
		to_date($6, 'YYYYMMDD'), to_date($7, 'YYYYMMDD'), $8, $9, $10,
		$11, $12, $13, $14, $15,
		$16, $17, $18
	)
	ON CONFLICT (news_id, stock_code, horizon) DO UPDATE SET
		z_score = EXCLUDED.z_score,
		direction = EXCLUDED.direction,
		magnitude = EXCLUDED.magnitude,
		calc_mode = EXCLUDED.calc_mode
`

// Upsert inserts or updates a signal on (news_id, stock_code, horizon).
func (s *GapSignalStore) Upsert(ctx context.Context, sig *domain.GapSignal) error {
	if sig == nil || sig.NewsID == "" || sig.StockCode == "" {
		return storage.ErrInvalidInput
	}

	withCalcMode, err := s.calcModeSupported(ctx)
	if err != nil {
		return err
	}

	anchorDate := sig.AnchorDate
	if anchorDate == "" {
		anchorDate = sig.EventDate
	}

	args := []any{
		sig.NewsID, sig.NewsTitle, sig.StockCode, sig.StockName, sig.EventCode,
		sig.EventDate, anchorDate, sig.Horizon, sig.ActualReturn, sig.ExpectedReturn,
		sig.ExpectedStd, sig.ZScore, sig.Percentile, sig.Confidence, sig.Direction,
		sig.Magnitude, sig.SampleCount,
	}

	query := upsertSignalSQL
	if withCalcMode {
		query = upsertSignalCalcModeSQL
		args = append(args, sig.CalcMode)
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert gap signal: %w", err)
	}
	return nil
}

// GetByDate returns all signals for an event date.
func (s *GapSignalStore) GetByDate(ctx context.Context, date string) ([]*domain.GapSignal, error) {
	withCalcMode, err := s.calcModeSupported(ctx)
	if err != nil {
		return nil, err
	}

	calcModeCol := "''"
	if withCalcMode {
		calcModeCol = "coalesce(calc_mode, '')"
	}

	query := fmt.Sprintf(`
		SELECT
			news_id, news_title, stock_code, stock_name, event_code,
			to_char(news_date, 'YYYYMMDD'), to_char(anchor_date, 'YYYYMMDD'),
			horizon, actual_return, expected_return, expected_std,
			z_score, percentile, confidence, direction, magnitude,
			sample_count, %s
		FROM news_gaps
		WHERE news_date = to_date($1, 'YYYYMMDD')
		ORDER BY news_id, stock_code, horizon
	`, calcModeCol)

	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("query gap signals by date: %w", err)
	}
	defer rows.Close()

	var result []*domain.GapSignal
	for rows.Next() {
		sig := &domain.GapSignal{}
		err := rows.Scan(
			&sig.NewsID, &sig.NewsTitle, &sig.StockCode, &sig.StockName, &sig.EventCode,
			&sig.EventDate, &sig.AnchorDate,
			&sig.Horizon, &sig.ActualReturn, &sig.ExpectedReturn, &sig.ExpectedStd,
			&sig.ZScore, &sig.Percentile, &sig.Confidence, &sig.Direction, &sig.Magnitude,
			&sig.SampleCount, &sig.CalcMode,
		)
		if err != nil {
			return nil, fmt.Errorf("scan gap signal: %w", err)
		}
		result = append(result, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gap signals: %w", err)
	}
	return result, nil
}
