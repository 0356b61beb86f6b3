// Package reporting renders scan runs as human-readable reports.
package reporting

import (
	"time"

	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/scan"
)

// Report is the renderable view of one scan run.
type Report struct {
	GeneratedAt time.Time
	ScanDate    string
	NewsSeen    int
	Signals     int
	ByDirection map[string]int
	ByMagnitude map[string]int
	ByCalcMode  map[string]int
	Top         []*domain.GapSignal
}

// FromSummary builds a report from a scan summary.
func FromSummary(s *scan.Summary, now func() time.Time) *Report {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Report{
		GeneratedAt: now(),
		ScanDate:    s.ScanDate,
		NewsSeen:    s.NewsSeen,
		Signals:     s.Signals,
		ByDirection: s.ByDirection,
		ByMagnitude: s.ByMagnitude,
		ByCalcMode:  s.ByCalcMode,
		Top:         s.Top,
	}
}
