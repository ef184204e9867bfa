package metrics

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/Elhashino/amazon-deals/internal/domain"
)

var anchor = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// daysAgo returns a timestamp the given number of days before the anchor.
func daysAgo(d int) time.Time {
	return anchor.Add(-time.Duration(d) * 24 * time.Hour)
}

// series builds a Series with one sample per entry, oldest first.
func series(samples ...struct {
	v   float64
	age int
}) domain.Series {
	var s domain.Series
	for _, smp := range samples {
		s.Values = append(s.Values, smp.v)
		s.Times = append(s.Times, daysAgo(smp.age))
	}
	return s
}

func sample(v float64, age int) struct {
	v   float64
	age int
} {
	return struct {
		v   float64
		age int
	}{v, age}
}

func TestExtract_NoPriceHistory(t *testing.T) {
	m := Extract(domain.ProductHistory{
		SalesRank: series(sample(100, 1)),
	})

	if !reflect.DeepEqual(m, domain.DealMetrics{}) {
		t.Errorf("expected all-nil metrics without price history, got %+v", m)
	}
}

func TestExtract_DiscountFromMedian(t *testing.T) {
	// Stable at 10.00 for most of the window, then drops to 8.00.
	h := domain.ProductHistory{
		PriceNew: series(
			sample(10.0, 80),
			sample(10.0, 60),
			sample(10.0, 40),
			sample(10.0, 20),
			sample(8.0, 1),
		),
	}

	m := Extract(h)

	if m.PriceCurrent == nil || *m.PriceCurrent != 8.0 {
		t.Fatalf("expected current 8.0, got %v", m.PriceCurrent)
	}
	if m.PriceMedian90d == nil || *m.PriceMedian90d != 10.0 {
		t.Fatalf("expected median 10.0, got %v", m.PriceMedian90d)
	}
	if m.DiscountPct90d == nil || math.Abs(*m.DiscountPct90d-0.20) > 1e-12 {
		t.Fatalf("expected discount 0.20, got %v", m.DiscountPct90d)
	}

	// MAD over [10,10,10,10,8] is 0, so confidence saturates at 100 and
	// score = clamp(0.20)*70 + 30 = 44.
	if m.Confidence == nil || *m.Confidence != 100.0 {
		t.Fatalf("expected confidence 100, got %v", m.Confidence)
	}
	if m.Score == nil || math.Abs(*m.Score-44.0) > 1e-9 {
		t.Errorf("expected score 44, got %v", m.Score)
	}
}

func TestExtract_DiscountRecoverableFromFormula(t *testing.T) {
	h := domain.ProductHistory{
		PriceNew: series(
			sample(22.5, 70),
			sample(19.0, 50),
			sample(24.0, 30),
			sample(21.0, 10),
			sample(15.0, 1),
		),
	}

	m := Extract(h)

	if m.PriceCurrent == nil || m.PriceMedian90d == nil || m.DiscountPct90d == nil {
		t.Fatalf("expected price metrics present, got %+v", m)
	}
	want := (*m.PriceMedian90d - *m.PriceCurrent) / *m.PriceMedian90d
	if *m.DiscountPct90d != want {
		t.Errorf("discount %v not recoverable from formula (want %v)", *m.DiscountPct90d, want)
	}
}

func TestExtract_TooFewSamplesForConfidence(t *testing.T) {
	// Two samples give a discount but no volatility estimate, so
	// confidence and the deal score must be absent (the coordinator then
	// rejects the product regardless of discount size).
	h := domain.ProductHistory{
		PriceNew: series(sample(10.0, 89), sample(8.0, 1)),
	}

	m := Extract(h)

	if m.DiscountPct90d == nil {
		t.Fatal("expected discount present")
	}
	if m.Confidence != nil {
		t.Errorf("expected confidence absent with <5 samples, got %v", *m.Confidence)
	}
	if m.Score != nil {
		t.Errorf("expected score absent with <5 samples, got %v", *m.Score)
	}
}

func TestExtract_NegativeDiscountAboveMedian(t *testing.T) {
	// Current price above recent median: discount is negative, not clamped
	// at extraction time.
	h := domain.ProductHistory{
		PriceNew: series(
			sample(10.0, 50),
			sample(10.0, 40),
			sample(10.0, 30),
			sample(10.0, 20),
			sample(12.0, 1),
		),
	}

	m := Extract(h)

	if m.DiscountPct90d == nil || *m.DiscountPct90d >= 0 {
		t.Errorf("expected negative discount, got %v", m.DiscountPct90d)
	}
	// But the deal score clamps the discount component at 0.
	if m.Score == nil || *m.Score != (*m.Confidence/100.0)*30.0 {
		t.Errorf("expected score from confidence only, got %v", m.Score)
	}
}

func TestExtract_InvalidSentinelsFiltered(t *testing.T) {
	// -1 sentinels and NaN must not count as samples for current value.
	h := domain.ProductHistory{
		PriceNew: series(
			sample(10.0, 40),
			sample(9.5, 30),
			sample(10.5, 20),
			sample(8.0, 10),
			sample(-1.0, 2),
			sample(math.NaN(), 1),
		),
	}

	m := Extract(h)

	if m.PriceCurrent == nil || *m.PriceCurrent != 8.0 {
		t.Errorf("expected current 8.0 skipping sentinels, got %v", m.PriceCurrent)
	}
}

func TestExtract_WindowAnchoredAtSeriesEnd(t *testing.T) {
	// The 90d window is relative to the series' own last timestamp, so a
	// sample 100 days older than the last one falls outside it.
	h := domain.ProductHistory{
		PriceNew: series(
			sample(50.0, 120), // outside
			sample(10.0, 60),
			sample(10.0, 40),
			sample(10.0, 20),
			sample(10.0, 10),
			sample(9.0, 1),
		),
	}

	m := Extract(h)

	if m.PriceMedian90d == nil || *m.PriceMedian90d != 10.0 {
		t.Errorf("expected median 10.0 with stale sample excluded, got %v", m.PriceMedian90d)
	}
}

func TestExtract_AmazonSeriesFallback(t *testing.T) {
	h := domain.ProductHistory{
		PriceAmazon: series(
			sample(20.0, 40),
			sample(20.0, 30),
			sample(20.0, 20),
			sample(20.0, 10),
			sample(16.0, 1),
		),
	}

	m := Extract(h)

	if m.PriceCurrent == nil || *m.PriceCurrent != 16.0 {
		t.Errorf("expected amazon-direct series used, got %v", m.PriceCurrent)
	}
}

func TestExtract_RankDropsStrictlyDecreasingWeek(t *testing.T) {
	// Seven daily samples, strictly decreasing: six decreasing transitions.
	h := domain.ProductHistory{
		PriceNew: series(sample(10.0, 1)),
		SalesRank: series(
			sample(700, 6),
			sample(600, 5),
			sample(500, 4),
			sample(400, 3),
			sample(300, 2),
			sample(200, 1),
			sample(100, 0),
		),
	}

	m := Extract(h)

	if m.RankDrops7d == nil || *m.RankDrops7d != 6 {
		t.Fatalf("expected 6 rank drops, got %v", m.RankDrops7d)
	}
	if got := dropsComponent(m.RankDrops7d); got != 60.0 {
		t.Errorf("expected drops component 60, got %v", got)
	}
}

func TestExtract_RankDropsEdgeCases(t *testing.T) {
	base := domain.ProductHistory{PriceNew: series(sample(10.0, 1))}

	// Empty rank series: nil.
	m := Extract(base)
	if m.RankDrops7d != nil {
		t.Errorf("expected nil drops for empty series, got %v", *m.RankDrops7d)
	}

	// One valid sample in window: 0.
	h := base
	h.SalesRank = series(sample(100, 1))
	m = Extract(h)
	if m.RankDrops7d == nil || *m.RankDrops7d != 0 {
		t.Errorf("expected 0 drops for single sample, got %v", m.RankDrops7d)
	}

	// Invalid samples collapse below 2: still 0, not nil.
	h.SalesRank = series(sample(-1, 2), sample(100, 1))
	m = Extract(h)
	if m.RankDrops7d == nil || *m.RankDrops7d != 0 {
		t.Errorf("expected 0 drops after filtering, got %v", m.RankDrops7d)
	}
}

func TestExtract_RankTrendClamped(t *testing.T) {
	// Current rank collapses far below its median: the raw trend would be
	// a large negative number, clamped to -1.
	h := domain.ProductHistory{
		PriceNew: series(sample(10.0, 1)),
		SalesRank: series(
			sample(100, 20),
			sample(100, 10),
			sample(100000, 0),
		),
	}

	m := Extract(h)

	if m.SalesRankTrend30d == nil || *m.SalesRankTrend30d != -1.0 {
		t.Fatalf("expected trend clamped to -1, got %v", m.SalesRankTrend30d)
	}

	// And an improving rank yields a positive trend within (0, 1].
	h.SalesRank = series(sample(1000, 20), sample(1000, 10), sample(250, 0))
	m = Extract(h)
	if m.SalesRankTrend30d == nil || *m.SalesRankTrend30d <= 0 || *m.SalesRankTrend30d > 1 {
		t.Errorf("expected positive trend in (0,1], got %v", m.SalesRankTrend30d)
	}
}

func TestExtract_RatingTenthsOfStar(t *testing.T) {
	h := domain.ProductHistory{
		PriceNew: series(sample(10.0, 1)),
		Rating:   series(sample(45, 1)),
	}

	m := Extract(h)

	if m.Rating == nil || *m.Rating != 4.5 {
		t.Fatalf("expected 4.5 stars from raw 45, got %v", m.Rating)
	}
	if got := ratingComponent(m.Rating); math.Abs(got-66.666666) > 1e-3 {
		t.Errorf("expected rating component ~66.7, got %v", got)
	}
}

func TestExtract_ReviewSentinelStillScoresDemand(t *testing.T) {
	// Review series carrying only the -1 sentinel: review count absent,
	// its component 0, but demand score still computed from the rank input.
	h := domain.ProductHistory{
		PriceNew:    series(sample(10.0, 1)),
		SalesRank:   series(sample(100, 1)),
		ReviewCount: series(sample(-1, 1)),
	}

	m := Extract(h)

	if m.ReviewCount != nil {
		t.Errorf("expected review count absent, got %v", *m.ReviewCount)
	}
	if m.DemandScore == nil {
		t.Fatal("expected demand score present from rank component")
	}
	want := demandRankWeight * rankComponent(m.SalesRankCurrent)
	if math.Abs(*m.DemandScore-want) > 1e-9 {
		t.Errorf("expected demand %v from rank only, got %v", want, *m.DemandScore)
	}
}

func TestExtract_NoDemandInputsNoDemandScore(t *testing.T) {
	h := domain.ProductHistory{
		PriceNew: series(
			sample(10.0, 40),
			sample(10.0, 30),
			sample(10.0, 20),
			sample(10.0, 10),
			sample(7.0, 1),
		),
	}

	m := Extract(h)

	if m.DemandScore != nil {
		t.Errorf("expected demand score absent, got %v", *m.DemandScore)
	}
	if m.HotScore != nil {
		t.Errorf("expected hot score absent without demand, got %v", *m.HotScore)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	h := domain.ProductHistory{
		PriceNew: series(
			sample(25.0, 60),
			sample(24.0, 45),
			sample(26.0, 30),
			sample(25.5, 15),
			sample(18.0, 1),
		),
		SalesRank:   series(sample(5000, 5), sample(4000, 3), sample(3000, 1)),
		Rating:      series(sample(43, 2)),
		ReviewCount: series(sample(812, 2)),
	}

	first := Extract(h)
	second := Extract(h)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("extractor not idempotent:\n first: %+v\nsecond: %+v", first, second)
	}
}

func TestExtract_ScoresAlwaysInRange(t *testing.T) {
	// Extreme inputs must never push any score outside [0, 100].
	histories := []domain.ProductHistory{
		{
			PriceNew: series(
				sample(1000000, 50),
				sample(1000000, 40),
				sample(1000000, 30),
				sample(1000000, 20),
				sample(0.01, 1),
			),
			SalesRank:   series(sample(1, 3), sample(1, 1)),
			Rating:      series(sample(50, 1)),
			ReviewCount: series(sample(10000000, 1)),
		},
		{
			PriceNew: series(
				sample(1.0, 50),
				sample(1.0, 40),
				sample(1.0, 30),
				sample(1.0, 20),
				sample(1000000, 1),
			),
			SalesRank:   series(sample(99999999, 1)),
			Rating:      series(sample(5, 1)),
			ReviewCount: series(sample(1, 1)),
		},
	}

	for i, h := range histories {
		m := Extract(h)
		for name, s := range map[string]*float64{
			"score":        m.Score,
			"demand_score": m.DemandScore,
			"hot_score":    m.HotScore,
			"confidence":   m.Confidence,
		} {
			if s == nil {
				continue
			}
			if *s < 0 || *s > 100 {
				t.Errorf("history %d: %s out of range: %v", i, name, *s)
			}
		}
	}
}

func TestMedian_EvenAndOdd(t *testing.T) {
	if got := median([]float64{3, 1, 2}); got != 2 {
		t.Errorf("odd median: expected 2, got %v", got)
	}
	if got := median([]float64{10, 8}); got != 9 {
		t.Errorf("even median: expected 9, got %v", got)
	}
}
