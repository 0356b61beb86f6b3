package memory

import (
	"context"
	"sort"
	"sync"

	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/storage"
)

// NewsEventStore is an in-memory implementation of storage.NewsEventStore.
type NewsEventStore struct {
	mu   sync.RWMutex
	data []*domain.NewsEvent
}

// NewNewsEventStore creates a new in-memory news event store.
func NewNewsEventStore() *NewsEventStore {
	return &NewsEventStore{}
}

var _ storage.NewsEventStore = (*NewsEventStore)(nil)

// Add appends news rows (test fixture helper).
func (s *NewsEventStore) Add(events ...*domain.NewsEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		eventCopy := *e
		s.data = append(s.data, &eventCopy)
	}
}

// GetByDate returns classified news for one day.
func (s *NewsEventStore) GetByDate(ctx context.Context, date string) ([]*domain.NewsEvent, error) {
	return s.GetByDateRange(ctx, date, date)
}

// GetByDateRange returns classified news within [start, end], ordered by date.
func (s *NewsEventStore) GetByDateRange(_ context.Context, start, end string) ([]*domain.NewsEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.NewsEvent
	for _, e := range s.data {
		if e.NewsDate >= start && e.NewsDate <= end && e.Companies != "" && e.EventCodes != "" {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].NewsDate < result[j].NewsDate
	})
	return result, nil
}

// DisclosureStore is an in-memory implementation of storage.DisclosureStore.
type DisclosureStore struct {
	mu   sync.RWMutex
	data []*domain.Disclosure
}

// NewDisclosureStore creates a new in-memory disclosure store.
func NewDisclosureStore() *DisclosureStore {
	return &DisclosureStore{}
}

var _ storage.DisclosureStore = (*DisclosureStore)(nil)

// Add appends disclosure rows (test fixture helper).
func (s *DisclosureStore) Add(rows ...*domain.Disclosure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range rows {
		rowCopy := *d
		s.data = append(s.data, &rowCopy)
	}
}

// GetByDateRange returns disclosures within [start, end], ordered by date.
func (s *DisclosureStore) GetByDateRange(_ context.Context, start, end string) ([]*domain.Disclosure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Disclosure
	for _, d := range s.data {
		if d.EventDate >= start && d.EventDate <= end {
			rowCopy := *d
			result = append(result, &rowCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EventDate < result[j].EventDate
	})
	return result, nil
}

// ListingStore is an in-memory implementation of storage.ListingStore.
type ListingStore struct {
	mu     sync.RWMutex
	byCorp map[string]*domain.Listing
	byCode map[string]*domain.Listing
}

// NewListingStore creates a new in-memory listing store.
func NewListingStore() *ListingStore {
	return &ListingStore{
		byCorp: make(map[string]*domain.Listing),
		byCode: make(map[string]*domain.Listing),
	}
}

var _ storage.ListingStore = (*ListingStore)(nil)

// Add registers listings (test fixture helper).
func (s *ListingStore) Add(rows ...*domain.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range rows {
		rowCopy := *l
		s.byCorp[l.CorpCode] = &rowCopy
		s.byCode[l.StockCode] = &rowCopy
	}
}

// StockCodeByCorp returns the stock code for a corp code.
func (s *ListingStore) StockCodeByCorp(_ context.Context, corpCode string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, exists := s.byCorp[corpCode]
	if !exists {
		return "", storage.ErrNotFound
	}
	return l.StockCode, nil
}

// CorpNameByStock returns the company name for a stock code.
func (s *ListingStore) CorpNameByStock(_ context.Context, stockCode string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, exists := s.byCode[stockCode]
	if !exists {
		return "", storage.ErrNotFound
	}
	return l.CorpName, nil
}
