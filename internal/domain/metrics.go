package domain

// DealMetrics is the fixed-shape record produced by the metric extractor
// for one product. Every field is independently nullable: a nil pointer
// means the underlying series did not carry enough valid data to estimate
// the value. A product with no usable price history yields the zero value
// (all nil) and is rejected by the run coordinator.
type DealMetrics struct {
	// Price-centric
	PriceCurrent   *float64
	PriceMedian90d *float64
	DiscountPct90d *float64 // (median - current) / median; may be negative
	Confidence     *float64 // 0-100, inverse of relative price volatility
	Score          *float64 // 0-100 deal score

	// Demand-centric
	SalesRankCurrent   *float64
	SalesRankMedian30d *float64
	SalesRankTrend30d  *float64 // positive == rank improving, clamped to [-1, 1]
	RankDrops7d        *int
	Rating             *float64 // stars, 0-5
	ReviewCount        *int

	DemandScore *float64 // 0-100
	HotScore    *float64 // 0-100, primary ranking key
}
