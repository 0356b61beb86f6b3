package reporting

import (
	"fmt"
	"os"
	"strings"
	"time"

	"krx-gap-lab/internal/domain"
)

// WriteMarkdown renders the report and writes it to path.
func WriteMarkdown(path string, r *Report) error {
	if err := os.WriteFile(path, []byte(RenderMarkdown(r)), 0644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// RenderMarkdown renders a scan report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Gap Scan Report - %s\n\n", r.ScanDate))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("News examined: %d | Signals: %d\n\n", r.NewsSeen, r.Signals))

	if r.Signals == 0 {
		sb.WriteString("No gap signals detected.\n")
		return sb.String()
	}

	// Breakdown
	sb.WriteString("## Breakdown\n\n")
	sb.WriteString("| Dimension | Value | Count |\n")
	sb.WriteString("|-----------|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Direction | OVER | %d |\n", r.ByDirection[domain.DirectionOver]))
	sb.WriteString(fmt.Sprintf("| Direction | UNDER | %d |\n", r.ByDirection[domain.DirectionUnder]))
	for _, magnitude := range []string{domain.MagnitudeExtreme, domain.MagnitudeHigh, domain.MagnitudeModerate, domain.MagnitudeLow} {
		if count, ok := r.ByMagnitude[magnitude]; ok {
			sb.WriteString(fmt.Sprintf("| Magnitude | %s | %d |\n", magnitude, count))
		}
	}
	sb.WriteString(fmt.Sprintf("| Calc mode | HISTORY | %d |\n", r.ByCalcMode[domain.CalcModeHistory]))
	sb.WriteString(fmt.Sprintf("| Calc mode | SIMPLE | %d |\n", r.ByCalcMode[domain.CalcModeSimple]))
	sb.WriteString("\n")

	// Leaderboard
	sb.WriteString("## Top Signals by |Z|\n\n")
	sb.WriteString("| Rank | Mode | Stock | Code | Event | Z | Direction | Actual | Expected |\n")
	sb.WriteString("|------|------|-------|------|-------|---|-----------|--------|----------|\n")
	for rank, sig := range r.Top {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %+.2f | %s | %+.2f%% | %+.2f%% |\n",
			rank+1, sig.CalcMode, sig.StockName, sig.StockCode, sig.EventCode,
			sig.ZScore, sig.Direction,
			sig.ActualReturn*100, sig.ExpectedReturn*100))
	}
	sb.WriteString("\n")

	return sb.String()
}
