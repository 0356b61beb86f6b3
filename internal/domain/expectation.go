package domain

// ExpectationStats is the historical statistical profile of returns observed
// after previous occurrences of a given event type at a given horizon.
type ExpectationStats struct {
	EventCode string
	Horizon   int

	Mean   float64 // mean log-return
	Median float64 // median, used as the robust point estimate
	Std    float64 // sample standard deviation (n-1 denominator)
	Q25    float64 // 25th percentile
	Q75    float64 // 75th percentile
	IQR    float64 // Q75 - Q25

	Count      int     // historical sample count
	Confidence float64 // min(1.0, Count/100), scaled by sample size
}

// ReturnAggregate is a point-in-time mean/std/count aggregate over one event
// code, used by the simple fallback calculation path.
type ReturnAggregate struct {
	Mean  float64
	Std   float64
	Count int
}
