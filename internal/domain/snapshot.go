package domain

import "time"

// PriceSnapshot is an immutable per-run observation of price metrics for
// one product. Corresponds to the price_snapshots table in PostgreSQL.
// Snapshots are append-only: they are never updated or deleted by the
// ingestion core.
type PriceSnapshot struct {
	ID             int64
	ASIN           string
	CapturedAt     time.Time // equals the run's start timestamp
	PriceCurrent   *float64
	PriceMedian90d *float64
	DiscountPct90d *float64
	Confidence     *float64
	Score          *float64
}
