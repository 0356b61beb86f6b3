package pricing

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/storage"
	"krx-gap-lab/internal/storage/memory"
)

func seedSeries(t *testing.T, store *memory.DailyPriceStore, code string, dates []string, closes []float64) {
	t.Helper()
	rows := make([]*domain.DailyPrice, len(dates))
	for i := range dates {
		rows[i] = &domain.DailyPrice{StockCode: code, TradeDate: dates[i], Close: closes[i]}
	}
	if err := store.InsertBulk(context.Background(), rows); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}
}

var tradingWeek = []string{"20240603", "20240604", "20240605", "20240606", "20240607", "20240610"}

func TestCalculateReturns_IncreasingSeriesPositive(t *testing.T) {
	store := memory.NewDailyPriceStore()
	seedSeries(t, store, "005930", tradingWeek, []float64{100, 101, 102, 103, 104, 105})

	calc := NewReturnCalculator(store, zerolog.Nop())
	path := calc.CalculateReturns(context.Background(), "005930", "20240603", 100, []int{1, 3, 5})

	for _, h := range []int{1, 3, 5} {
		r, ok := path.Return(h)
		if !ok {
			t.Fatalf("horizon %d: expected data", h)
		}
		if r <= 0 {
			t.Errorf("horizon %d: expected positive return for rising series, got %f", h, r)
		}
	}
}

func TestCalculateReturns_DecreasingSeriesNegative(t *testing.T) {
	store := memory.NewDailyPriceStore()
	seedSeries(t, store, "005930", tradingWeek, []float64{100, 99, 98, 97, 96, 95})

	calc := NewReturnCalculator(store, zerolog.Nop())
	path := calc.CalculateReturns(context.Background(), "005930", "20240603", 100, []int{1, 3, 5})

	for _, h := range []int{1, 3, 5} {
		r, ok := path.Return(h)
		if !ok {
			t.Fatalf("horizon %d: expected data", h)
		}
		if r >= 0 {
			t.Errorf("horizon %d: expected negative return for falling series, got %f", h, r)
		}
	}
}

func TestCalculateReturns_FlatSeriesExactlyZero(t *testing.T) {
	store := memory.NewDailyPriceStore()
	seedSeries(t, store, "005930", tradingWeek, []float64{100, 100, 100, 100, 100, 100})

	calc := NewReturnCalculator(store, zerolog.Nop())
	path := calc.CalculateReturns(context.Background(), "005930", "20240603", 100, []int{1, 3, 5})

	for _, h := range []int{1, 3, 5} {
		r, ok := path.Return(h)
		if !ok {
			t.Fatalf("horizon %d: expected data", h)
		}
		if r != 0.0 {
			t.Errorf("horizon %d: flat series must yield exactly 0.0, got %g", h, r)
		}
	}
}

func TestCalculateReturns_ExactLogValues(t *testing.T) {
	// The §8-style scenario: closes 100, 105, 103, 110 from a Monday anchor.
	store := memory.NewDailyPriceStore()
	seedSeries(t, store, "005930",
		[]string{"20240603", "20240604", "20240605", "20240606"},
		[]float64{100, 105, 103, 110})

	calc := NewReturnCalculator(store, zerolog.Nop())
	path := calc.CalculateReturns(context.Background(), "005930", "20240603", 100, []int{1, 3})

	r1, ok := path.Return(1)
	if !ok {
		t.Fatal("horizon 1: expected data")
	}
	if math.Abs(r1-math.Log(1.05)) > 1e-12 {
		t.Errorf("horizon 1 = %f, want ln(105/100)", r1)
	}

	r3, ok := path.Return(3)
	if !ok {
		t.Fatal("horizon 3: expected data")
	}
	if math.Abs(r3-math.Log(1.10)) > 1e-12 {
		t.Errorf("horizon 3 = %f, want ln(110/100)", r3)
	}
}

func TestCalculateReturns_NullNotZeroWhenShortHistory(t *testing.T) {
	store := memory.NewDailyPriceStore()
	seedSeries(t, store, "005930", []string{"20240603", "20240604"}, []float64{100, 105})

	calc := NewReturnCalculator(store, zerolog.Nop())
	path := calc.CalculateReturns(context.Background(), "005930", "20240603", 100, []int{1, 3, 5})

	if _, ok := path.Return(1); !ok {
		t.Error("horizon 1 should be available")
	}
	for _, h := range []int{3, 5} {
		if r, ok := path.Return(h); ok {
			t.Errorf("horizon %d: expected nil, got %f", h, r)
		}
		if path.Horizons[h] != nil {
			t.Errorf("horizon %d: must be nil, never zero", h)
		}
	}
	if path.AllNil() {
		t.Error("path with one available horizon is not all-nil")
	}
}

func TestCalculateReturns_ZeroPadsStockCode(t *testing.T) {
	store := memory.NewDailyPriceStore()
	seedSeries(t, store, "005930", []string{"20240603", "20240604"}, []float64{100, 105})

	calc := NewReturnCalculator(store, zerolog.Nop())
	path := calc.CalculateReturns(context.Background(), "5930", "20240603", 100, []int{1})

	if _, ok := path.Return(1); !ok {
		t.Error("short stock code should be zero-padded before lookup")
	}
}

// failingPriceStore simulates an unreachable price store.
type failingPriceStore struct{}

var errStoreDown = errors.New("store unreachable")

func (f *failingPriceStore) InsertBulk(context.Context, []*domain.DailyPrice) error {
	return errStoreDown
}
func (f *failingPriceStore) FirstOnOrAfter(context.Context, string, string) (*domain.DailyPrice, error) {
	return nil, errStoreDown
}
func (f *failingPriceStore) NthAfter(context.Context, string, string, int) (*domain.DailyPrice, error) {
	return nil, errStoreDown
}
func (f *failingPriceStore) PathFrom(context.Context, string, string, int) ([]*domain.DailyPrice, error) {
	return nil, errStoreDown
}
func (f *failingPriceStore) RangeBetween(context.Context, string, string) ([]*domain.DailyPrice, error) {
	return nil, errStoreDown
}

var _ storage.DailyPriceStore = (*failingPriceStore)(nil)

func TestCalculateReturns_DegradesToAllNilOnFailure(t *testing.T) {
	calc := NewReturnCalculator(&failingPriceStore{}, zerolog.Nop())
	path := calc.CalculateReturns(context.Background(), "005930", "20240603", 100, []int{1, 3, 5})

	if !path.AllNil() {
		t.Error("store failure must degrade to an all-nil path")
	}
}

func TestCalculatePricePath_DegradeVsStrict(t *testing.T) {
	calc := NewReturnCalculator(&failingPriceStore{}, zerolog.Nop())

	if points := calc.CalculatePricePath(context.Background(), "005930", "20240603", 10); points != nil {
		t.Errorf("degrading path should return nil on failure, got %v", points)
	}

	if _, err := calc.CalculatePricePathStrict(context.Background(), "005930", "20240603", 10); !errors.Is(err, errStoreDown) {
		t.Errorf("strict path should surface the store error, got %v", err)
	}
}

func TestCalculatePricePath_OrderedPairs(t *testing.T) {
	store := memory.NewDailyPriceStore()
	seedSeries(t, store, "005930", tradingWeek, []float64{100, 101, 102, 103, 104, 105})

	calc := NewReturnCalculator(store, zerolog.Nop())
	points := calc.CalculatePricePath(context.Background(), "005930", "20240604", 3)

	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if points[0].Date != "20240604" || points[2].Date != "20240606" {
		t.Errorf("unexpected path window: %+v", points)
	}
	for i := 1; i < len(points); i++ {
		if points[i].Date <= points[i-1].Date {
			t.Error("price path must be ordered by date ASC")
		}
	}
}
