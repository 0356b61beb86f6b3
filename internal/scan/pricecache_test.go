package scan

import (
	"context"
	"math"
	"testing"

	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/storage/memory"
)

func seedPrices(t *testing.T, store *memory.DailyPriceStore, code string, dates []string, closes []float64) {
	t.Helper()
	rows := make([]*domain.DailyPrice, len(dates))
	for i := range dates {
		rows[i] = &domain.DailyPrice{StockCode: code, TradeDate: dates[i], Close: closes[i]}
	}
	if err := store.InsertBulk(context.Background(), rows); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}
}

var june2024Week = []string{"20240603", "20240604", "20240605", "20240607", "20240610", "20240611"}

func TestPriceCache_ReturnsFrom(t *testing.T) {
	store := memory.NewDailyPriceStore()
	seedPrices(t, store, "005930", june2024Week, []float64{100, 105, 103, 110, 108, 112})

	cache, err := LoadPriceCache(context.Background(), store, "20240603", "20240603")
	if err != nil {
		t.Fatalf("LoadPriceCache: %v", err)
	}

	anchor, returns, ok := cache.ReturnsFrom("005930", "20240601", []int{1, 3, 5})
	if !ok {
		t.Fatal("expected anchor")
	}
	if anchor.Date != "20240603" || anchor.Close != 100 {
		t.Errorf("anchor = %+v", anchor)
	}
	if returns[1] == nil || math.Abs(*returns[1]-math.Log(1.05)) > 1e-12 {
		t.Errorf("r1 = %v, want ln(105/100)", returns[1])
	}
	if returns[3] == nil || math.Abs(*returns[3]-math.Log(1.10)) > 1e-12 {
		t.Errorf("r3 = %v, want ln(110/100)", returns[3])
	}
	if returns[5] == nil || math.Abs(*returns[5]-math.Log(1.12)) > 1e-12 {
		t.Errorf("r5 = %v, want ln(112/100)", returns[5])
	}
}

func TestPriceCache_HorizonBeyondSeriesStaysNil(t *testing.T) {
	store := memory.NewDailyPriceStore()
	seedPrices(t, store, "005930", june2024Week[:2], []float64{100, 105})

	cache, err := LoadPriceCache(context.Background(), store, "20240603", "20240603")
	if err != nil {
		t.Fatalf("LoadPriceCache: %v", err)
	}

	_, returns, ok := cache.ReturnsFrom("005930", "20240603", []int{1, 3, 5})
	if !ok {
		t.Fatal("expected anchor")
	}
	if returns[1] == nil {
		t.Error("r1 should be available")
	}
	if returns[3] != nil || returns[5] != nil {
		t.Error("horizons past the series must stay nil, never zero")
	}
}

func TestPriceCache_UnknownStock(t *testing.T) {
	store := memory.NewDailyPriceStore()
	cache, err := LoadPriceCache(context.Background(), store, "20240603", "20240603")
	if err != nil {
		t.Fatalf("LoadPriceCache: %v", err)
	}
	if _, _, ok := cache.ReturnsFrom("000660", "20240603", []int{1}); ok {
		t.Error("unknown stock must not anchor")
	}
}

func TestPriceCache_WindowPadsBothSides(t *testing.T) {
	store := memory.NewDailyPriceStore()
	// One price inside the 5-day pad before the range, one after.
	seedPrices(t, store, "005930", []string{"20240530", "20240605"}, []float64{99, 101})

	cache, err := LoadPriceCache(context.Background(), store, "20240603", "20240603")
	if err != nil {
		t.Fatalf("LoadPriceCache: %v", err)
	}
	if _, ok := cache.Anchor("005930", "20240529"); !ok {
		t.Error("pad before the range should be cached")
	}
	if _, ok := cache.Anchor("005930", "20240605"); !ok {
		t.Error("pad after the range should be cached")
	}
}
