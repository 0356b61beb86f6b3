package scan

import (
	"context"
	"math"

	"krx-gap-lab/internal/domain"
)

// Candidate is one (news, stock, event) combination after the scanner has
// expanded comma-separated company and event lists and resolved stock codes.
type Candidate struct {
	NewsID    string
	NewsTitle string
	StockCode string
	StockName string
	EventCode string
	NewsDate  string // YYYYMMDD
}

// Strategy is one way of producing a gap verdict for a candidate. Strategies
// degrade to nil on any failure; the scanner tries them in order and the
// first non-nil signal wins, carrying the strategy's calc-mode tag.
type Strategy interface {
	// Name is the calc-mode tag stamped on signals this strategy emits.
	Name() string

	// Attempt evaluates the candidate. Nil means "no verdict here": either
	// the move was unremarkable or this strategy lacked the data to judge.
	Attempt(ctx context.Context, c *Candidate) *domain.GapSignal
}

func logReturn(anchor, future float64) float64 {
	return math.Log(future / anchor)
}
