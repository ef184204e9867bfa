// Package metrics turns raw per-product history series into the
// fixed-shape DealMetrics record and its derived scores.
//
// Everything in this package is a pure function: no I/O, no state.
// Extracting the same history twice yields bit-identical metrics.
package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/Elhashino/amazon-deals/internal/domain"
)

// Windowing and validity constants. Invalid provider sentinels are <= 0
// for prices and sales ranks and <= -1 for review counts.
const (
	priceWindowDays      = 90
	rankTrendWindowDays  = 30
	rankDropsWindowDays  = 7
	volatilityWindowDays = 90

	// minVolatilitySamples is the minimum in-window sample count for the
	// volatility estimate; below it confidence (and hence the deal score)
	// is absent.
	minVolatilitySamples = 5
)

// Extract computes all deal and demand metrics for a single product.
// A product without any usable price history yields the zero (all-nil)
// record; the run coordinator rejects it.
func Extract(h domain.ProductHistory) domain.DealMetrics {
	var m domain.DealMetrics

	price := h.PriceSeries()
	if price.Empty() {
		return m
	}

	// Price-centric metrics.
	m.PriceCurrent = lastValid(price.Values, 0)
	m.PriceMedian90d = medianLastDays(price, priceWindowDays, 0)

	if m.PriceCurrent != nil && m.PriceMedian90d != nil && *m.PriceMedian90d > 0 {
		d := (*m.PriceMedian90d - *m.PriceCurrent) / *m.PriceMedian90d
		m.DiscountPct90d = &d
	}

	if vol := volatility(price, volatilityWindowDays); vol != nil {
		// 0% volatility => 100 confidence, 30%+ => 0.
		c := clamp(1.0-*vol/0.30, 0, 1) * 100.0
		m.Confidence = &c
	}

	// Demand-centric metrics.
	m.SalesRankCurrent = lastValid(h.SalesRank.Values, 0)
	m.SalesRankMedian30d = medianLastDays(h.SalesRank, rankTrendWindowDays, 0)

	if m.SalesRankCurrent != nil && m.SalesRankMedian30d != nil && *m.SalesRankMedian30d > 0 {
		// Positive trend means the rank number is lower than its recent
		// median, i.e. the product is selling better than usual.
		t := clamp((*m.SalesRankMedian30d-*m.SalesRankCurrent) / *m.SalesRankMedian30d, -1, 1)
		m.SalesRankTrend30d = &t
	}

	m.RankDrops7d = countRankDropsLastDays(h.SalesRank, rankDropsWindowDays)

	if raw := lastValid(h.Rating.Values, 0); raw != nil {
		// Provider delivers tenths of a star (45 == 4.5 stars).
		stars := *raw / 10.0
		m.Rating = &stars
	}

	if raw := lastValid(h.ReviewCount.Values, -1); raw != nil && *raw >= 0 {
		n := int(*raw)
		m.ReviewCount = &n
	}

	applyScores(&m)
	return m
}

// lastValid returns the last sample that is not NaN and strictly above
// floor, or nil when no such sample exists.
func lastValid(values []float64, floor float64) *float64 {
	for i := len(values) - 1; i >= 0; i-- {
		v := values[i]
		if math.IsNaN(v) || v <= floor {
			continue
		}
		return &v
	}
	return nil
}

// subsetLastDays returns the non-NaN values whose timestamp falls within
// the trailing window of the given length, anchored at the series' own
// last timestamp (not wall clock).
func subsetLastDays(s domain.Series, days int) []float64 {
	if s.Empty() {
		return nil
	}
	n := len(s.Values)
	if len(s.Times) < n {
		n = len(s.Times)
	}
	start := s.Times[len(s.Times)-1].Add(-time.Duration(days) * 24 * time.Hour)

	var out []float64
	for i := 0; i < n; i++ {
		if s.Times[i].Before(start) {
			continue
		}
		if math.IsNaN(s.Values[i]) {
			continue
		}
		out = append(out, s.Values[i])
	}
	return out
}

// medianLastDays computes the median of the valid in-window samples,
// discarding values at or below floor. Nil when the window is empty.
func medianLastDays(s domain.Series, days int, floor float64) *float64 {
	window := subsetLastDays(s, days)
	valid := window[:0]
	for _, v := range window {
		if v > floor {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	med := median(valid)
	return &med
}

// volatility estimates robust relative volatility as MAD/median over the
// trailing window. Requires minVolatilitySamples in-window samples and a
// strictly positive median.
func volatility(s domain.Series, days int) *float64 {
	v := subsetLastDays(s, days)
	if len(v) < minVolatilitySamples {
		return nil
	}
	med := median(v)
	if med <= 0 {
		return nil
	}
	dev := make([]float64, len(v))
	for i, x := range v {
		dev[i] = math.Abs(x - med)
	}
	vol := median(dev) / med
	return &vol
}

// countRankDropsLastDays counts strictly-decreasing transitions between
// consecutive valid samples in the trailing window. Returns 0 when fewer
// than 2 valid samples remain, and nil only when the raw series itself is
// empty.
func countRankDropsLastDays(s domain.Series, days int) *int {
	zero := 0
	if s.Empty() {
		return nil
	}
	n := len(s.Values)
	if len(s.Times) < n {
		n = len(s.Times)
	}
	start := s.Times[len(s.Times)-1].Add(-time.Duration(days) * 24 * time.Hour)

	var window []float64
	for i := 0; i < n; i++ {
		if !s.Times[i].Before(start) {
			window = append(window, s.Values[i])
		}
	}
	if len(window) < 2 {
		return &zero
	}

	valid := window[:0]
	for _, v := range window {
		if !math.IsNaN(v) && v > 0 {
			valid = append(valid, v)
		}
	}
	if len(valid) < 2 {
		return &zero
	}

	drops := 0
	for i := 1; i < len(valid); i++ {
		// A "drop" means the rank number got smaller, i.e. improved.
		if valid[i] < valid[i-1] {
			drops++
		}
	}
	return &drops
}

// median returns the middle value, averaging the two middle values for
// even-length input. The input slice is not modified.
func median(v []float64) float64 {
	sorted := make([]float64, len(v))
	copy(sorted, v)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2.0
}

// clamp limits x to [lo, hi].
func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
