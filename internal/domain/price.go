package domain

// DailyPrice represents one daily closing price row.
// Corresponds to stock_daily_prices table in ClickHouse.
type DailyPrice struct {
	StockCode string  // 6-digit KRX stock code
	TradeDate string  // trading date, compact form (YYYYMMDD)
	Close     float64 // closing price
	Volume    int64   // traded volume
}

// AnchorPrice is the price baseline for measuring an event's market reaction:
// the first trading day at or after the event's calendar date.
type AnchorPrice struct {
	StockCode   string  // 6-digit KRX stock code
	EventDate   string  // event calendar date (YYYYMMDD)
	AnchorDate  string  // anchor trading date (YYYYMMDD), >= EventDate
	AnchorClose float64 // closing price on the anchor date
	Volume      int64   // traded volume on the anchor date
	MarketCap   float64 // market capitalization, 0 when unknown
}

// PricePoint is one (date, price) observation of a price path.
type PricePoint struct {
	Date  string // YYYYMMDD
	Close float64
}

// ReturnPath holds forward log-returns from an anchor at fixed horizons.
// Horizons[H] = ln(price on the H-th trading day strictly after AnchorDate /
// AnchorPrice). A nil entry means the data is not available yet; nil and
// zero are never conflated.
type ReturnPath struct {
	StockCode   string
	AnchorDate  string // YYYYMMDD
	AnchorPrice float64
	Horizons    map[int]*float64
}

// Return reports the log-return at horizon h, or ok=false when no data exists.
func (p *ReturnPath) Return(h int) (float64, bool) {
	if p == nil {
		return 0, false
	}
	r, exists := p.Horizons[h]
	if !exists || r == nil {
		return 0, false
	}
	return *r, true
}

// AllNil reports whether every horizon is missing.
func (p *ReturnPath) AllNil() bool {
	if p == nil {
		return true
	}
	for _, r := range p.Horizons {
		if r != nil {
			return false
		}
	}
	return true
}
