package domain

// EventCodeOther marks an unclassifiable event; it is filtered out before
// any statistical use.
const EventCodeOther = "other"

// EventReturn is one row of ground truth: "stock X, after event type Y on
// date Z, moved by log-return R over horizons {1,3,5} days."
// Corresponds to event_returns_history; upserted on (StockCode, EventDate,
// EventCode) so rebuilds are idempotent.
type EventReturn struct {
	StockCode   string
	EventDate   string // YYYYMMDD
	EventCode   string
	AnchorDate  string // YYYYMMDD
	AnchorPrice float64
	Return1D    *float64
	Return3D    *float64
	Return5D    *float64
	Volume      int64
	MarketCap   float64
}

// ReturnAt reports the stored return at horizon h (1, 3 or 5).
func (r *EventReturn) ReturnAt(h int) *float64 {
	switch h {
	case 1:
		return r.Return1D
	case 3:
		return r.Return3D
	case 5:
		return r.Return5D
	}
	return nil
}

// NewsReturn is the news-driven counterpart of EventReturn, feeding the
// simple fallback path. Corresponds to news_returns; upserted on
// (NewsID, StockCode, EventCode).
type NewsReturn struct {
	NewsID      string
	StockCode   string
	StockName   string
	EventCode   string
	NewsDate    string // YYYYMMDD
	AnchorPrice float64
	Return1D    *float64
	Return3D    *float64
	Return5D    *float64
}

// NewsEvent is one classified news row as supplied by the external
// extraction/classification pipeline. Companies and EventCodes hold
// comma-separated lists exactly as stored.
type NewsEvent struct {
	NewsID     string // URL
	Title      string
	Companies  string // comma-separated company names
	EventCodes string // comma-separated event type codes
	NewsDate   string // YYYYMMDD
}

// Disclosure is one regulatory disclosure row (OpenDART feed).
type Disclosure struct {
	CorpCode  string
	CorpName  string
	EventDate string // receipt date, YYYYMMDD
	ReportNm  string
	Summary   string
}

// Listing maps a corporation to its listed stock code.
type Listing struct {
	CorpCode  string
	CorpName  string
	StockCode string
}
