// Package dateutil converts between the compact date form (YYYYMMDD) used at
// component boundaries and the hyphenated form (YYYY-MM-DD) used by the
// persistence layer. Conversions round-trip losslessly.
package dateutil

import (
	"fmt"
	"strings"
	"time"
)

const (
	compactLayout = "20060102"
	dbLayout      = "2006-01-02"
)

// ToCompact normalizes a date string to YYYYMMDD. Accepts compact,
// hyphenated and slash-separated forms.
func ToCompact(value string) (string, error) {
	clean := strings.TrimSpace(value)
	clean = strings.ReplaceAll(clean, "-", "")
	clean = strings.ReplaceAll(clean, "/", "")
	if len(clean) != 8 {
		return "", fmt.Errorf("unsupported date format: %q", value)
	}
	if _, err := time.Parse(compactLayout, clean); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", value, err)
	}
	return clean, nil
}

// ToDB converts YYYYMMDD to the hyphenated YYYY-MM-DD form.
func ToDB(compact string) (string, error) {
	if len(compact) != 8 {
		return "", fmt.Errorf("not a compact date: %q", compact)
	}
	return compact[:4] + "-" + compact[4:6] + "-" + compact[6:], nil
}

// FromDB converts a persistence-layer date back to YYYYMMDD.
func FromDB(dbDate string) (string, error) {
	return ToCompact(dbDate)
}

// FromTime formats a time as YYYYMMDD.
func FromTime(t time.Time) string {
	return t.Format(compactLayout)
}

// ToTime parses a YYYYMMDD date at midnight UTC.
func ToTime(compact string) (time.Time, error) {
	t, err := time.Parse(compactLayout, compact)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid compact date %q: %w", compact, err)
	}
	return t, nil
}

// AddDays shifts a compact date by n calendar days.
func AddDays(compact string, n int) (string, error) {
	t, err := ToTime(compact)
	if err != nil {
		return "", err
	}
	return FromTime(t.AddDate(0, 0, n)), nil
}
