package domain

import "time"

// Series is one raw history series returned by the marketplace client:
// parallel value and timestamp slices. Values may contain NaN for missing
// samples or provider sentinels (<= 0 for price/rank, <= -1 for review
// counts); the extractor filters both.
type Series struct {
	Values []float64
	Times  []time.Time
}

// Empty reports whether the series carries no usable samples at all.
func (s Series) Empty() bool {
	return len(s.Values) == 0 || len(s.Times) == 0
}

// ProductHistory holds the per-product raw time series the extractor
// consumes. The provider exposes two candidate price series; the first
// non-empty one (marketplace-new first, then amazon-direct) is used.
type ProductHistory struct {
	PriceNew    Series // third-party new price history
	PriceAmazon Series // amazon-direct price history
	SalesRank   Series
	Rating      Series // tenths of a star (45 == 4.5 stars)
	ReviewCount Series
}

// PriceSeries returns the first usable price series, or an empty Series
// when the product has no price history at all.
func (h ProductHistory) PriceSeries() Series {
	if !h.PriceNew.Empty() {
		return h.PriceNew
	}
	if !h.PriceAmazon.Empty() {
		return h.PriceAmazon
	}
	return Series{}
}
