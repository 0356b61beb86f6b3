package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/storage"
)

// DailyPriceStore is an in-memory implementation of storage.DailyPriceStore.
type DailyPriceStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DailyPrice // keyed by (stock_code, trade_date)
}

// NewDailyPriceStore creates a new in-memory daily price store.
func NewDailyPriceStore() *DailyPriceStore {
	return &DailyPriceStore{
		data: make(map[string]*domain.DailyPrice),
	}
}

var _ storage.DailyPriceStore = (*DailyPriceStore)(nil)

func priceKey(stockCode, tradeDate string) string {
	return fmt.Sprintf("%s|%s", stockCode, tradeDate)
}

// InsertBulk adds multiple price rows. Later rows overwrite earlier ones
// with the same key.
func (s *DailyPriceStore) InsertBulk(_ context.Context, rows []*domain.DailyPrice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		if r == nil || r.StockCode == "" || len(r.TradeDate) != 8 {
			return storage.ErrInvalidInput
		}
		rowCopy := *r
		s.data[priceKey(r.StockCode, r.TradeDate)] = &rowCopy
	}
	return nil
}

// sortedByCode returns all rows for a stock ordered by trade date ASC.
// Caller must hold at least a read lock.
func (s *DailyPriceStore) sortedByCode(stockCode string) []*domain.DailyPrice {
	var rows []*domain.DailyPrice
	for _, r := range s.data {
		if r.StockCode == stockCode {
			rowCopy := *r
			rows = append(rows, &rowCopy)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].TradeDate < rows[j].TradeDate
	})
	return rows
}

// FirstOnOrAfter returns the earliest row with trade_date >= date.
func (s *DailyPriceStore) FirstOnOrAfter(_ context.Context, stockCode, date string) (*domain.DailyPrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.sortedByCode(stockCode) {
		if r.TradeDate >= date {
			return r, nil
		}
	}
	return nil, storage.ErrNotFound
}

// NthAfter returns the n-th row strictly after date.
func (s *DailyPriceStore) NthAfter(_ context.Context, stockCode, date string, n int) (*domain.DailyPrice, error) {
	if n < 1 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := 0
	for _, r := range s.sortedByCode(stockCode) {
		if r.TradeDate > date {
			seen++
			if seen == n {
				return r, nil
			}
		}
	}
	return nil, storage.ErrNotFound
}

// PathFrom returns up to limit rows with trade_date >= date.
func (s *DailyPriceStore) PathFrom(_ context.Context, stockCode, date string, limit int) ([]*domain.DailyPrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyPrice
	for _, r := range s.sortedByCode(stockCode) {
		if r.TradeDate >= date {
			result = append(result, r)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

// RangeBetween returns all rows within [start, end] across all stocks.
func (s *DailyPriceStore) RangeBetween(_ context.Context, start, end string) ([]*domain.DailyPrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyPrice
	for _, r := range s.data {
		if r.TradeDate >= start && r.TradeDate <= end {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StockCode != result[j].StockCode {
			return result[i].StockCode < result[j].StockCode
		}
		return result[i].TradeDate < result[j].TradeDate
	})
	return result, nil
}
