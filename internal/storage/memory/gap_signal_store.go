package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/storage"
)

// GapSignalStore is an in-memory implementation of storage.GapSignalStore.
type GapSignalStore struct {
	mu   sync.RWMutex
	data map[string]*domain.GapSignal // keyed by (news_id, stock_code, horizon)
}

// NewGapSignalStore creates a new in-memory gap signal store.
func NewGapSignalStore() *GapSignalStore {
	return &GapSignalStore{
		data: make(map[string]*domain.GapSignal),
	}
}

var _ storage.GapSignalStore = (*GapSignalStore)(nil)

func signalKey(newsID, stockCode string, horizon int) string {
	return fmt.Sprintf("%s|%s|%d", newsID, stockCode, horizon)
}

// Upsert inserts a signal, or on key conflict overwrites only z_score,
// direction, magnitude and calc_mode, keeping first-write provenance fields.
func (s *GapSignalStore) Upsert(_ context.Context, sig *domain.GapSignal) error {
	if sig == nil || sig.NewsID == "" || sig.StockCode == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := signalKey(sig.NewsID, sig.StockCode, sig.Horizon)
	existing, exists := s.data[key]
	if !exists {
		sigCopy := *sig
		s.data[key] = &sigCopy
		return nil
	}

	existing.ZScore = sig.ZScore
	existing.Direction = sig.Direction
	existing.Magnitude = sig.Magnitude
	existing.CalcMode = sig.CalcMode
	return nil
}

// GetByDate returns all signals with the given event date, ordered by
// (news_id, stock_code, horizon) for deterministic output.
func (s *GapSignalStore) GetByDate(_ context.Context, date string) ([]*domain.GapSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.GapSignal
	for _, sig := range s.data {
		if sig.EventDate == date {
			sigCopy := *sig
			result = append(result, &sigCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].NewsID != result[j].NewsID {
			return result[i].NewsID < result[j].NewsID
		}
		if result[i].StockCode != result[j].StockCode {
			return result[i].StockCode < result[j].StockCode
		}
		return result[i].Horizon < result[j].Horizon
	})
	return result, nil
}

// Len returns the number of stored signals.
func (s *GapSignalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
