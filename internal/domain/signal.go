package domain

// Gap direction: OVER is an over-reaction (z > 0), UNDER an under-reaction.
const (
	DirectionOver  = "OVER"
	DirectionUnder = "UNDER"
)

// Gap magnitude tiers by |z|. The LOW tier is used only by the simple
// fallback path, which admits signals below the history path's threshold.
const (
	MagnitudeExtreme  = "EXTREME"  // |z| >= 3.0
	MagnitudeHigh     = "HIGH"     // |z| >= 2.0
	MagnitudeModerate = "MODERATE" // |z| >= 1.0 on the simple path
	MagnitudeLow      = "LOW"
)

// Calculation path provenance tags.
const (
	CalcModeHistory = "HISTORY"
	CalcModeSimple  = "SIMPLE"
)

// GapSignal is the anomaly verdict for one (news, instrument, horizon) triple.
// Corresponds to the news_gaps table; upserted on (NewsID, StockCode, Horizon).
type GapSignal struct {
	NewsID     string // news/event identifier (URL or disclosure receipt no)
	NewsTitle  string
	StockCode  string
	StockName  string
	EventCode  string
	EventDate  string // YYYYMMDD
	AnchorDate string // YYYYMMDD

	Horizon        int
	ActualReturn   float64
	ExpectedReturn float64 // median point estimate on the history path
	ExpectedMean   float64
	ExpectedStd    float64
	ExpectedQ25    float64
	ExpectedQ75    float64

	ZScore     float64
	Percentile float64 // historical position of the actual return, 0..1
	Confidence float64

	Direction string
	Magnitude string

	SampleCount int
	CalcMode    string // HISTORY | SIMPLE
}
