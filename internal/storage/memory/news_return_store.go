package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/storage"
)

// NewsReturnStore is an in-memory implementation of storage.NewsReturnStore.
type NewsReturnStore struct {
	mu   sync.RWMutex
	data map[string]*domain.NewsReturn // keyed by (news_id, stock_code, event_code)
}

// NewNewsReturnStore creates a new in-memory news return store.
func NewNewsReturnStore() *NewsReturnStore {
	return &NewsReturnStore{
		data: make(map[string]*domain.NewsReturn),
	}
}

var _ storage.NewsReturnStore = (*NewsReturnStore)(nil)

func newsReturnKey(r *domain.NewsReturn) string {
	return fmt.Sprintf("%s|%s|%s", r.NewsID, r.StockCode, r.EventCode)
}

// UpsertBulk inserts or updates records on their composite key.
func (s *NewsReturnStore) UpsertBulk(_ context.Context, records []*domain.NewsReturn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if r == nil || r.NewsID == "" || r.StockCode == "" || r.EventCode == "" {
			return storage.ErrInvalidInput
		}
		recCopy := *r
		s.data[newsReturnKey(r)] = &recCopy
	}
	return nil
}

// AggregateByEvent computes per-event mean/std/count of the horizon return
// over news_date in [from, to]. Std is the sample estimator (n-1).
func (s *NewsReturnStore) AggregateByEvent(_ context.Context, horizon int, from, to string) (map[string]domain.ReturnAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := make(map[string][]float64)
	for _, r := range s.data {
		if r.NewsDate < from || r.NewsDate > to {
			continue
		}
		ret := returnAt(r, horizon)
		if ret == nil {
			continue
		}
		samples[r.EventCode] = append(samples[r.EventCode], *ret)
	}

	result := make(map[string]domain.ReturnAggregate, len(samples))
	for code, vals := range samples {
		n := len(vals)
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		mean := sum / float64(n)

		std := 0.0
		if n > 1 {
			sumSq := 0.0
			for _, v := range vals {
				diff := v - mean
				sumSq += diff * diff
			}
			std = math.Sqrt(sumSq / float64(n-1))
		}

		result[code] = domain.ReturnAggregate{Mean: mean, Std: std, Count: n}
	}
	return result, nil
}

func returnAt(r *domain.NewsReturn, h int) *float64 {
	switch h {
	case 1:
		return r.Return1D
	case 3:
		return r.Return3D
	case 5:
		return r.Return5D
	}
	return nil
}

// Len returns the number of stored records.
func (s *NewsReturnStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
