package pricing

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"krx-gap-lab/internal/storage/memory"
)

func TestPadStockCode(t *testing.T) {
	cases := map[string]string{
		"5930":    "005930",
		"005930":  "005930",
		"35420":   "035420",
		"":        "000000",
		"1234567": "1234567", // longer than six stays as-is
	}
	for in, want := range cases {
		if got := PadStockCode(in); got != want {
			t.Errorf("PadStockCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAnchorPrice_ExactTradingDay(t *testing.T) {
	store := memory.NewDailyPriceStore()
	seedSeries(t, store, "005930", []string{"20240603", "20240604"}, []float64{100, 105})

	mapper := NewAnchorMapper(store, zerolog.Nop())
	anchor := mapper.AnchorPrice(context.Background(), "005930", "20240603")

	if anchor == nil {
		t.Fatal("expected anchor for exact trading day")
	}
	if anchor.AnchorDate != "20240603" || anchor.AnchorClose != 100 {
		t.Errorf("anchor = %+v", anchor)
	}
	if anchor.EventDate != "20240603" {
		t.Errorf("event date should be preserved, got %q", anchor.EventDate)
	}
}

func TestAnchorPrice_WeekendRollsForward(t *testing.T) {
	store := memory.NewDailyPriceStore()
	seedSeries(t, store, "005930", []string{"20240531", "20240603"}, []float64{99, 100})

	mapper := NewAnchorMapper(store, zerolog.Nop())
	// 2024-06-01 is a Saturday: the anchor rolls forward, never back.
	anchor := mapper.AnchorPrice(context.Background(), "005930", "20240601")

	if anchor == nil {
		t.Fatal("expected anchor after weekend")
	}
	if anchor.AnchorDate != "20240603" {
		t.Errorf("anchor date = %q, want first trading day on/after event", anchor.AnchorDate)
	}
	if anchor.AnchorDate < anchor.EventDate {
		t.Error("anchor must never precede the event date")
	}
}

func TestAnchorPrice_NilBeyondHistory(t *testing.T) {
	store := memory.NewDailyPriceStore()
	seedSeries(t, store, "005930", []string{"20240603"}, []float64{100})

	mapper := NewAnchorMapper(store, zerolog.Nop())
	if anchor := mapper.AnchorPrice(context.Background(), "005930", "20241231"); anchor != nil {
		t.Errorf("expected nil beyond history, got %+v", anchor)
	}
}

func TestAnchorPrice_NilOnStoreFailure(t *testing.T) {
	mapper := NewAnchorMapper(&failingPriceStore{}, zerolog.Nop())
	if anchor := mapper.AnchorPrice(context.Background(), "005930", "20240603"); anchor != nil {
		t.Errorf("expected nil on store failure, got %+v", anchor)
	}
}

func TestAnchorPricesBatch_SkipsMissing(t *testing.T) {
	store := memory.NewDailyPriceStore()
	seedSeries(t, store, "005930", []string{"20240603"}, []float64{100})

	mapper := NewAnchorMapper(store, zerolog.Nop())
	keys := []AnchorKey{
		{StockCode: "005930", EventDate: "20240603"},
		{StockCode: "000660", EventDate: "20240603"}, // no prices loaded
	}
	got := mapper.AnchorPricesBatch(context.Background(), keys)

	if len(got) != 1 {
		t.Fatalf("expected 1 anchor, got %d", len(got))
	}
	if _, ok := got[AnchorKey{StockCode: "005930", EventDate: "20240603"}]; !ok {
		t.Error("missing anchor for seeded pair")
	}
}
