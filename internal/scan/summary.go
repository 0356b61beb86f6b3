package scan

import (
	"sort"

	"github.com/rs/zerolog"

	"krx-gap-lab/internal/domain"
)

// topSignalCount bounds the leaderboard in run summaries.
const topSignalCount = 5

// Summary describes one scan run's outcome.
type Summary struct {
	ScanDate    string
	NewsSeen    int
	Signals     int
	ByDirection map[string]int
	ByMagnitude map[string]int
	ByCalcMode  map[string]int
	Top         []*domain.GapSignal // by |z| descending, at most five
}

// Summarize builds the run summary over the emitted signals.
func Summarize(scanDate string, newsSeen int, signals []*domain.GapSignal) *Summary {
	s := &Summary{
		ScanDate:    scanDate,
		NewsSeen:    newsSeen,
		Signals:     len(signals),
		ByDirection: make(map[string]int),
		ByMagnitude: make(map[string]int),
		ByCalcMode:  make(map[string]int),
	}
	for _, sig := range signals {
		s.ByDirection[sig.Direction]++
		s.ByMagnitude[sig.Magnitude]++
		s.ByCalcMode[sig.CalcMode]++
	}

	ranked := make([]*domain.GapSignal, len(signals))
	copy(ranked, signals)
	sort.SliceStable(ranked, func(i, j int) bool {
		return absZ(ranked[i]) > absZ(ranked[j])
	})
	if len(ranked) > topSignalCount {
		ranked = ranked[:topSignalCount]
	}
	s.Top = ranked
	return s
}

func absZ(s *domain.GapSignal) float64 {
	if s.ZScore < 0 {
		return -s.ZScore
	}
	return s.ZScore
}

// Log writes the summary in the run log.
func (s *Summary) Log(log zerolog.Logger) {
	if s.Signals == 0 {
		log.Info().Str("scan_date", s.ScanDate).Int("news", s.NewsSeen).Msg("scan complete, no gap signals")
		return
	}

	log.Info().
		Str("scan_date", s.ScanDate).
		Int("news", s.NewsSeen).
		Int("signals", s.Signals).
		Int("over", s.ByDirection[domain.DirectionOver]).
		Int("under", s.ByDirection[domain.DirectionUnder]).
		Int("extreme", s.ByMagnitude[domain.MagnitudeExtreme]).
		Int("high", s.ByMagnitude[domain.MagnitudeHigh]).
		Int("moderate", s.ByMagnitude[domain.MagnitudeModerate]).
		Int("history", s.ByCalcMode[domain.CalcModeHistory]).
		Int("simple", s.ByCalcMode[domain.CalcModeSimple]).
		Msg("scan complete")

	for rank, sig := range s.Top {
		log.Info().
			Int("rank", rank+1).
			Str("calc_mode", sig.CalcMode).
			Str("stock", sig.StockName).
			Str("stock_code", sig.StockCode).
			Float64("z", sig.ZScore).
			Str("direction", sig.Direction).
			Float64("actual", sig.ActualReturn).
			Float64("expected", sig.ExpectedReturn).
			Msg("top signal")
	}
}
