package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"krx-gap-lab/internal/config"
	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/scan"
	"krx-gap-lab/internal/storage/memory"
)

type stubScanner struct {
	summary *scan.Summary
	err     error
	gotDate string
}

func (s *stubScanner) Scan(_ context.Context, scanDate string) (*scan.Summary, error) {
	s.gotDate = scanDate
	return s.summary, s.err
}

func newTestServer(t *testing.T, signals *memory.GapSignalStore, scanner Scanner) *Server {
	t.Helper()
	return NewServer(config.Server{Port: 0}, signals, scanner, prometheus.NewRegistry(), zerolog.Nop())
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestGapsByDate(t *testing.T) {
	store := memory.NewGapSignalStore()
	require.NoError(t, store.Upsert(context.Background(), &domain.GapSignal{
		NewsID: "https://news.example/1", StockCode: "005930",
		EventDate: "20240603", Horizon: 1, ZScore: 3.9,
		Direction: domain.DirectionOver, Magnitude: domain.MagnitudeExtreme,
	}))
	s := newTestServer(t, store, nil)

	rec := do(s, http.MethodGet, "/api/gaps?date=20240603", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Date    string              `json:"date"`
		Count   int                 `json:"count"`
		Signals []*domain.GapSignal `json:"signals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "20240603", resp.Date)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Signals, 1)
	assert.Equal(t, "005930", resp.Signals[0].StockCode)
}

func TestGapsByDate_AcceptsHyphenatedDate(t *testing.T) {
	s := newTestServer(t, memory.NewGapSignalStore(), nil)

	rec := do(s, http.MethodGet, "/api/gaps?date=2024-06-03", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"date":"20240603"`)
}

func TestGapsByDate_BadDate(t *testing.T) {
	s := newTestServer(t, memory.NewGapSignalStore(), nil)
	rec := do(s, http.MethodGet, "/api/gaps?date=notadate", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGapsByDate_EmptyDayIsEmptyList(t *testing.T) {
	s := newTestServer(t, memory.NewGapSignalStore(), nil)
	rec := do(s, http.MethodGet, "/api/gaps?date=20240603", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"signals":[]`)
}

func TestCheckGap(t *testing.T) {
	store := memory.NewGapSignalStore()
	require.NoError(t, store.Upsert(context.Background(), &domain.GapSignal{
		NewsID: "https://news.example/1", StockCode: "005930",
		EventDate: "20240603", Horizon: 1,
	}))
	s := newTestServer(t, store, nil)

	rec := do(s, http.MethodGet, "/api/gaps/check?date=20240603&news_id=https://news.example/1&stock_code=005930", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"found":true`)

	rec = do(s, http.MethodGet, "/api/gaps/check?date=20240603&news_id=https://news.example/1&stock_code=000660", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"found":false`)
}

func TestCheckGap_RequiresIdentity(t *testing.T) {
	s := newTestServer(t, memory.NewGapSignalStore(), nil)
	rec := do(s, http.MethodGet, "/api/gaps/check?date=20240603", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerScan(t *testing.T) {
	scanner := &stubScanner{summary: scan.Summarize("20240603", 4, nil)}
	s := newTestServer(t, memory.NewGapSignalStore(), scanner)

	rec := do(s, http.MethodPost, "/api/scan", `{"date":"20240603"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "20240603", scanner.gotDate)
}

func TestTriggerScan_NoScannerIs503(t *testing.T) {
	s := newTestServer(t, memory.NewGapSignalStore(), nil)
	rec := do(s, http.MethodPost, "/api/scan", `{"date":"20240603"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "scanner not initialized")
}

func TestTriggerScan_ScanErrorIs500(t *testing.T) {
	scanner := &stubScanner{err: errors.New("news store unreachable")}
	s := newTestServer(t, memory.NewGapSignalStore(), scanner)

	rec := do(s, http.MethodPost, "/api/scan", `{"date":"20240603"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "news store unreachable")
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, memory.NewGapSignalStore(), nil)

	rec := do(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
