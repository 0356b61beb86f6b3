package postgres

import (
	"context"
	"fmt"

	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/storage"
)

// NewsEventStore implements storage.NewsEventStore over the analyzed_news
// table maintained by the external extraction/classification pipeline.
type NewsEventStore struct {
	pool *Pool
}

// NewNewsEventStore creates a new NewsEventStore.
func NewNewsEventStore(pool *Pool) *NewsEventStore {
	return &NewsEventStore{pool: pool}
}

var _ storage.NewsEventStore = (*NewsEventStore)(nil)

const selectNewsSQL = `
	SELECT url, coalesce(title, ''), stock_name, event_code,
	       to_char(news_date, 'YYYYMMDD')
	FROM analyzed_news
	WHERE news_date BETWEEN to_date($1, 'YYYYMMDD') AND to_date($2, 'YYYYMMDD')
	  AND stock_name IS NOT NULL
	  AND event_code IS NOT NULL
	ORDER BY news_date
`

// GetByDate returns classified news for one day.
func (s *NewsEventStore) GetByDate(ctx context.Context, date string) ([]*domain.NewsEvent, error) {
	return s.GetByDateRange(ctx, date, date)
}

// GetByDateRange returns classified news within [start, end].
func (s *NewsEventStore) GetByDateRange(ctx context.Context, start, end string) ([]*domain.NewsEvent, error) {
	rows, err := s.pool.Query(ctx, selectNewsSQL, start, end)
	if err != nil {
		return nil, fmt.Errorf("query analyzed news: %w", err)
	}
	defer rows.Close()

	var result []*domain.NewsEvent
	for rows.Next() {
		e := &domain.NewsEvent{}
		if err := rows.Scan(&e.NewsID, &e.Title, &e.Companies, &e.EventCodes, &e.NewsDate); err != nil {
			return nil, fmt.Errorf("scan analyzed news: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyzed news: %w", err)
	}
	return result, nil
}

// DisclosureStore implements storage.DisclosureStore over the disclosures
// table fed from the OpenDART pipeline.
type DisclosureStore struct {
	pool *Pool
}

// NewDisclosureStore creates a new DisclosureStore.
func NewDisclosureStore(pool *Pool) *DisclosureStore {
	return &DisclosureStore{pool: pool}
}

var _ storage.DisclosureStore = (*DisclosureStore)(nil)

// GetByDateRange returns disclosures within [start, end], ordered by date.
func (s *DisclosureStore) GetByDateRange(ctx context.Context, start, end string) ([]*domain.Disclosure, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT corp_code, corp_name, to_char(event_date, 'YYYYMMDD'),
		       coalesce(report_nm, ''), coalesce(summary, '')
		FROM disclosures
		WHERE event_date BETWEEN to_date($1, 'YYYYMMDD') AND to_date($2, 'YYYYMMDD')
		ORDER BY event_date
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query disclosures: %w", err)
	}
	defer rows.Close()

	var result []*domain.Disclosure
	for rows.Next() {
		d := &domain.Disclosure{}
		if err := rows.Scan(&d.CorpCode, &d.CorpName, &d.EventDate, &d.ReportNm, &d.Summary); err != nil {
			return nil, fmt.Errorf("scan disclosure: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate disclosures: %w", err)
	}
	return result, nil
}

// ListingStore implements storage.ListingStore over the stock_list table.
type ListingStore struct {
	pool *Pool
}

// NewListingStore creates a new ListingStore.
func NewListingStore(pool *Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

var _ storage.ListingStore = (*ListingStore)(nil)

// StockCodeByCorp returns the stock code for a corp code.
func (s *ListingStore) StockCodeByCorp(ctx context.Context, corpCode string) (string, error) {
	var code string
	err := s.pool.QueryRow(ctx,
		`SELECT stock_code FROM stock_list WHERE corp_code = $1`, corpCode,
	).Scan(&code)
	if err != nil {
		if isNotFoundError(err) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get stock code by corp: %w", err)
	}
	return code, nil
}

// CorpNameByStock returns the company name for a stock code.
func (s *ListingStore) CorpNameByStock(ctx context.Context, stockCode string) (string, error) {
	var name string
	err := s.pool.QueryRow(ctx,
		`SELECT corp_name FROM stock_list WHERE stock_code = $1`, stockCode,
	).Scan(&name)
	if err != nil {
		if isNotFoundError(err) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get corp name by stock: %w", err)
	}
	return name, nil
}
