package expectation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/storage/memory"
)

const asOf = "20240603"

func ptr(v float64) *float64 { return &v }

func seedReturns(t *testing.T, store *memory.EventReturnStore, eventCode string, returns []float64) {
	t.Helper()
	for i, r := range returns {
		rec := &domain.EventReturn{
			StockCode: fmt.Sprintf("%06d", i+1),
			EventDate: "20240102",
			EventCode: eventCode,
			Return1D:  ptr(r),
		}
		if err := store.Upsert(context.Background(), rec); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
}

func TestExpectation_MinSamplesBoundary(t *testing.T) {
	store := memory.NewEventReturnStore()
	seedReturns(t, store, "earnings_surprise", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9})

	model := NewModel(store, zerolog.Nop())
	stats, err := model.Expectation(context.Background(), "earnings_surprise", 1, asOf)
	if err != nil {
		t.Fatalf("Expectation: %v", err)
	}
	if stats != nil {
		t.Errorf("9 samples must yield nil, got %+v", stats)
	}

	// One more record crosses the threshold.
	rec := &domain.EventReturn{StockCode: "000010", EventDate: "20240102", EventCode: "earnings_surprise", Return1D: ptr(10)}
	if err := store.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	model.ClearCache()
	stats, err = model.Expectation(context.Background(), "earnings_surprise", 1, asOf)
	if err != nil {
		t.Fatalf("Expectation: %v", err)
	}
	if stats == nil {
		t.Fatal("10 samples must yield stats")
	}
	if stats.Count != 10 {
		t.Errorf("count = %d, want 10", stats.Count)
	}
}

func TestExpectation_SampleStatistics(t *testing.T) {
	store := memory.NewEventReturnStore()
	// 1..11: mean 6, median 6, sample std sqrt(11).
	vals := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	seedReturns(t, store, "merger_rumor", vals)

	model := NewModel(store, zerolog.Nop())
	stats, err := model.Expectation(context.Background(), "merger_rumor", 1, asOf)
	if err != nil {
		t.Fatalf("Expectation: %v", err)
	}
	if stats == nil {
		t.Fatal("expected stats")
	}
	if math.Abs(stats.Mean-6) > 1e-12 {
		t.Errorf("mean = %f, want 6", stats.Mean)
	}
	if math.Abs(stats.Median-6) > 1e-12 {
		t.Errorf("median = %f, want 6", stats.Median)
	}
	if math.Abs(stats.Std-math.Sqrt(11)) > 1e-12 {
		t.Errorf("std = %f, want sample std sqrt(11)", stats.Std)
	}
	// Linear interpolation on 11 points: q25 at rank 2.5, q75 at rank 7.5.
	if math.Abs(stats.Q25-3.5) > 1e-12 || math.Abs(stats.Q75-8.5) > 1e-12 {
		t.Errorf("quartiles = (%f, %f), want (3.5, 8.5)", stats.Q25, stats.Q75)
	}
	if math.Abs(stats.IQR-5) > 1e-12 {
		t.Errorf("iqr = %f, want 5", stats.IQR)
	}
	if math.Abs(stats.Confidence-0.11) > 1e-12 {
		t.Errorf("confidence = %f, want 0.11", stats.Confidence)
	}
}

func TestExpectation_ConfidenceSaturates(t *testing.T) {
	store := memory.NewEventReturnStore()
	vals := make([]float64, 150)
	for i := range vals {
		vals[i] = float64(i % 7)
	}
	seedReturns(t, store, "capital_increase", vals)

	model := NewModel(store, zerolog.Nop())
	stats, err := model.Expectation(context.Background(), "capital_increase", 1, asOf)
	if err != nil {
		t.Fatalf("Expectation: %v", err)
	}
	if stats == nil {
		t.Fatal("expected stats")
	}
	if stats.Confidence != 1.0 {
		t.Errorf("confidence = %f, want capped at 1.0", stats.Confidence)
	}
}

func TestExpectation_CachesIncludingNil(t *testing.T) {
	store := memory.NewEventReturnStore()
	model := NewModel(store, zerolog.Nop())

	for i := 0; i < 3; i++ {
		if _, err := model.Expectation(context.Background(), "unknown_event", 1, asOf); err != nil {
			t.Fatalf("Expectation: %v", err)
		}
	}
	hits, misses := model.CacheStats()
	if misses != 1 {
		t.Errorf("misses = %d, want a single store query", misses)
	}
	if hits != 2 {
		t.Errorf("hits = %d, want 2", hits)
	}

	model.ClearCache()
	if _, err := model.Expectation(context.Background(), "unknown_event", 1, asOf); err != nil {
		t.Fatalf("Expectation: %v", err)
	}
	_, misses = model.CacheStats()
	if misses != 1 {
		t.Error("ClearCache should force a fresh store query")
	}
}

func TestExpectation_AsOfIsPartOfTheKey(t *testing.T) {
	store := memory.NewEventReturnStore()
	seedReturns(t, store, "earnings_surprise", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	model := NewModel(store, zerolog.Nop())
	if _, err := model.Expectation(context.Background(), "earnings_surprise", 1, "20240603"); err != nil {
		t.Fatalf("Expectation: %v", err)
	}
	if _, err := model.Expectation(context.Background(), "earnings_surprise", 1, "20240604"); err != nil {
		t.Fatalf("Expectation: %v", err)
	}
	_, misses := model.CacheStats()
	if misses != 2 {
		t.Errorf("misses = %d; distinct as-of dates must not share a cache entry", misses)
	}
}

func TestExpectation_LookbackExcludesOldHistory(t *testing.T) {
	store := memory.NewEventReturnStore()
	ctx := context.Background()
	// Ten recent records plus one stale record outside the 365-day window.
	for i := 0; i < 10; i++ {
		rec := &domain.EventReturn{
			StockCode: fmt.Sprintf("%06d", i+1),
			EventDate: "20240102",
			EventCode: "delisting_risk",
			Return1D:  ptr(float64(i)),
		}
		if err := store.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	stale := &domain.EventReturn{StockCode: "999999", EventDate: "20200101", EventCode: "delisting_risk", Return1D: ptr(500)}
	if err := store.Upsert(ctx, stale); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	model := NewModel(store, zerolog.Nop())
	stats, err := model.Expectation(ctx, "delisting_risk", 1, asOf)
	if err != nil {
		t.Fatalf("Expectation: %v", err)
	}
	if stats == nil {
		t.Fatal("expected stats")
	}
	if stats.Count != 10 {
		t.Errorf("count = %d; stale record outside lookback must be excluded", stats.Count)
	}
}

func TestAllExpectations_SkipsThinEvents(t *testing.T) {
	store := memory.NewEventReturnStore()
	seedReturns(t, store, "earnings_surprise", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	seedReturns(t, store, "merger_rumor", []float64{1, 2, 3})

	model := NewModel(store, zerolog.Nop())
	all, err := model.AllExpectations(context.Background(),
		[]string{"earnings_surprise", "merger_rumor"}, []int{1, 3}, asOf)
	if err != nil {
		t.Fatalf("AllExpectations: %v", err)
	}

	if _, ok := all["earnings_surprise"][1]; !ok {
		t.Error("missing expectation for well-covered event at horizon 1")
	}
	// The seeds only populate return_1d, so horizon 3 has no samples.
	if _, ok := all["earnings_surprise"][3]; ok {
		t.Error("horizon 3 has no data and must be skipped")
	}
	if _, ok := all["merger_rumor"]; ok {
		t.Error("thin event must be skipped entirely")
	}
}

type failingReturnStore struct{}

var errReturnsDown = errors.New("returns store unreachable")

func (f *failingReturnStore) Upsert(context.Context, *domain.EventReturn) error { return errReturnsDown }
func (f *failingReturnStore) UpsertBulk(context.Context, []*domain.EventReturn) error {
	return errReturnsDown
}
func (f *failingReturnStore) ReturnsByEvent(context.Context, string, int, string, string) ([]float64, error) {
	return nil, errReturnsDown
}
func (f *failingReturnStore) CountBelow(context.Context, string, int, float64) (int, int, error) {
	return 0, 0, errReturnsDown
}

func TestExpectation_PropagatesStoreError(t *testing.T) {
	model := NewModel(&failingReturnStore{}, zerolog.Nop())
	if _, err := model.Expectation(context.Background(), "earnings_surprise", 1, asOf); !errors.Is(err, errReturnsDown) {
		t.Errorf("expected store error, got %v", err)
	}
}
