package memory

import (
	"context"
	"fmt"
	"sync"

	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/storage"
)

// EventReturnStore is an in-memory implementation of storage.EventReturnStore.
type EventReturnStore struct {
	mu   sync.RWMutex
	data map[string]*domain.EventReturn // keyed by (stock_code, event_date, event_code)
}

// NewEventReturnStore creates a new in-memory event return store.
func NewEventReturnStore() *EventReturnStore {
	return &EventReturnStore{
		data: make(map[string]*domain.EventReturn),
	}
}

var _ storage.EventReturnStore = (*EventReturnStore)(nil)

func eventReturnKey(r *domain.EventReturn) string {
	return fmt.Sprintf("%s|%s|%s", r.StockCode, r.EventDate, r.EventCode)
}

// Upsert inserts or updates a record on its composite key. Updates overwrite
// anchor and return fields; the identity fields are the key itself.
func (s *EventReturnStore) Upsert(_ context.Context, r *domain.EventReturn) error {
	if r == nil || r.StockCode == "" || r.EventCode == "" || len(r.EventDate) != 8 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recCopy := *r
	s.data[eventReturnKey(r)] = &recCopy
	return nil
}

// UpsertBulk applies Upsert to all records.
func (s *EventReturnStore) UpsertBulk(ctx context.Context, records []*domain.EventReturn) error {
	for _, r := range records {
		if err := s.Upsert(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// ReturnsByEvent returns all non-null returns at the horizon within the window.
func (s *EventReturnStore) ReturnsByEvent(_ context.Context, eventCode string, horizon int, from, to string) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []float64
	for _, r := range s.data {
		if r.EventCode != eventCode || r.EventDate < from || r.EventDate > to {
			continue
		}
		if ret := r.ReturnAt(horizon); ret != nil {
			result = append(result, *ret)
		}
	}
	return result, nil
}

// CountBelow counts non-null returns strictly below value, plus the total.
// The percentile query is window-free, matching the history table contract.
func (s *EventReturnStore) CountBelow(_ context.Context, eventCode string, horizon int, value float64) (below, total int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.data {
		if r.EventCode != eventCode {
			continue
		}
		ret := r.ReturnAt(horizon)
		if ret == nil {
			continue
		}
		total++
		if *ret < value {
			below++
		}
	}
	return below, total, nil
}

// Len returns the number of stored records.
func (s *EventReturnStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
