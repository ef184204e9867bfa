package domain

import "time"

// Deal is the mutable, queryable record behind the listing pages.
// Corresponds to the deals table in PostgreSQL.
//
// While IsActive is true, identity is the pair (ASIN, CategorySlug): at
// most one active deal may exist per pair. UpsertActiveDeal enforces this
// by looking up the existing active row before deciding insert vs update.
//
// PublishedAt carries the start timestamp of the run that last touched the
// deal and is the sole marker of run membership; IngestedAt is stamped by
// the storage layer with the true write wall-clock time and is never set
// by the ingestion core.
type Deal struct {
	ID           int64
	ASIN         string
	CategorySlug CategorySlug
	PublishedAt  time.Time

	PriceCurrent   *float64
	PriceMedian90d *float64
	DiscountPct90d *float64
	Confidence     *float64
	Score          *float64

	SalesRankCurrent   *float64
	SalesRankMedian30d *float64
	SalesRankTrend30d  *float64
	RankDrops7d        *int
	Rating             *float64 // stars, 0-5
	ReviewCount        *int

	DemandScore *float64
	HotScore    *float64

	IsActive   bool
	IngestedAt *time.Time
}

// DealView is a Deal joined with its Product's descriptive fields,
// the projection returned to the read API.
type DealView struct {
	Deal
	Title    string
	Brand    string
	ImageURL string
}
