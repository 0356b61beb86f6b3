package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/storage"
)

func ptr(v float64) *float64 { return &v }

func TestEventReturnStore_UpsertAndQuery(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventReturnStore(pool)
	ctx := context.Background()

	record := &domain.EventReturn{
		StockCode:   "005930",
		EventDate:   "20240603",
		EventCode:   "merger_rumor",
		AnchorDate:  "20240603",
		AnchorPrice: 100,
		Return1D:    ptr(0.0488),
		Return3D:    ptr(0.0953),
		Volume:      123456,
		MarketCap:   1.5e12,
	}
	require.NoError(t, store.Upsert(ctx, record))

	returns, err := store.ReturnsByEvent(ctx, "merger_rumor", 1, "20240101", "20241231")
	require.NoError(t, err)
	require.Len(t, returns, 1)
	assert.InDelta(t, 0.0488, returns[0], 1e-9)
}

func TestEventReturnStore_UpsertOverwritesReturns(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventReturnStore(pool)
	ctx := context.Background()

	record := &domain.EventReturn{
		StockCode: "005930", EventDate: "20240603", EventCode: "merger_rumor",
		AnchorDate: "20240603", AnchorPrice: 100, Return1D: ptr(0.01),
	}
	require.NoError(t, store.Upsert(ctx, record))

	record.Return1D = ptr(0.02)
	record.AnchorPrice = 101
	require.NoError(t, store.Upsert(ctx, record))

	returns, err := store.ReturnsByEvent(ctx, "merger_rumor", 1, "20240101", "20241231")
	require.NoError(t, err)
	require.Len(t, returns, 1, "re-upsert must update, not duplicate")
	assert.InDelta(t, 0.02, returns[0], 1e-9)
}

func TestEventReturnStore_NullReturnsAreExcluded(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventReturnStore(pool)
	ctx := context.Background()

	require.NoError(t, store.UpsertBulk(ctx, []*domain.EventReturn{
		{StockCode: "005930", EventDate: "20240603", EventCode: "merger_rumor",
			AnchorDate: "20240603", AnchorPrice: 100, Return1D: ptr(0.01)},
		{StockCode: "000660", EventDate: "20240603", EventCode: "merger_rumor",
			AnchorDate: "20240603", AnchorPrice: 200}, // no 1d return
	}))

	returns, err := store.ReturnsByEvent(ctx, "merger_rumor", 1, "20240101", "20241231")
	require.NoError(t, err)
	assert.Len(t, returns, 1)
}

func TestEventReturnStore_RejectsUnknownHorizon(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventReturnStore(pool)
	_, err := store.ReturnsByEvent(context.Background(), "merger_rumor", 2, "20240101", "20241231")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestEventReturnStore_CountBelow(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventReturnStore(pool)
	ctx := context.Background()

	var records []*domain.EventReturn
	for i, r := range []float64{-0.02, -0.01, 0.0, 0.01, 0.02} {
		records = append(records, &domain.EventReturn{
			StockCode: "00000" + string(rune('1'+i)), EventDate: "20240603",
			EventCode: "merger_rumor", AnchorDate: "20240603", AnchorPrice: 100,
			Return1D: ptr(r),
		})
	}
	require.NoError(t, store.UpsertBulk(ctx, records))

	below, total, err := store.CountBelow(ctx, "merger_rumor", 1, 0.0)
	require.NoError(t, err)
	assert.Equal(t, 2, below, "strictly below excludes the equal value")
	assert.Equal(t, 5, total)
}

func TestNewsReturnStore_UpsertBulkAndAggregate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewNewsReturnStore(pool)
	ctx := context.Background()

	records := []*domain.NewsReturn{
		{NewsID: "https://n/1", StockCode: "005930", StockName: "삼성전자",
			EventCode: "merger_rumor", NewsDate: "20240603", AnchorPrice: 100, Return1D: ptr(0.01)},
		{NewsID: "https://n/2", StockCode: "000660", StockName: "SK하이닉스",
			EventCode: "merger_rumor", NewsDate: "20240604", AnchorPrice: 200, Return1D: ptr(0.03)},
		{NewsID: "https://n/3", StockCode: "005930", StockName: "삼성전자",
			EventCode: "other_event", NewsDate: "20240604", AnchorPrice: 100, Return1D: ptr(0.10)},
	}
	require.NoError(t, store.UpsertBulk(ctx, records))

	agg, err := store.AggregateByEvent(ctx, 1, "20240101", "20241231")
	require.NoError(t, err)

	merger, ok := agg["merger_rumor"]
	require.True(t, ok)
	assert.Equal(t, 2, merger.Count)
	assert.InDelta(t, 0.02, merger.Mean, 1e-9)
	assert.Greater(t, merger.Std, 0.0)

	// Re-upserting the same rows must not inflate counts.
	require.NoError(t, store.UpsertBulk(ctx, records))
	agg, err = store.AggregateByEvent(ctx, 1, "20240101", "20241231")
	require.NoError(t, err)
	assert.Equal(t, 2, agg["merger_rumor"].Count)
}

func TestNewsReturnStore_UpsertBulkRejectsIncompleteRecords(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewNewsReturnStore(pool)
	ctx := context.Background()

	records := []*domain.NewsReturn{
		{NewsID: "https://n/1", StockCode: "005930", StockName: "삼성전자",
			EventCode: "merger_rumor", NewsDate: "20240603", AnchorPrice: 100, Return1D: ptr(0.01)},
		{NewsID: "", StockCode: "000660", EventCode: "merger_rumor", NewsDate: "20240603"},
	}
	require.ErrorIs(t, store.UpsertBulk(ctx, records), storage.ErrInvalidInput)

	// Validation happens before anything is sent, so the valid record must
	// not have been written either.
	agg, err := store.AggregateByEvent(ctx, 1, "20240101", "20241231")
	require.NoError(t, err)
	assert.Empty(t, agg)
}
