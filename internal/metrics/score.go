package metrics

import (
	"math"

	"github.com/Elhashino/amazon-deals/internal/domain"
)

// Score blend weights. The deal score is price-centric; the demand score
// blends sales-rank level, rank-drop frequency, review volume and rating;
// the hot score mixes the two and is dampened by low confidence.
const (
	dealDiscountWeight   = 70.0
	dealConfidenceWeight = 30.0

	demandRankWeight    = 0.45
	demandDropsWeight   = 0.20
	demandReviewsWeight = 0.20
	demandRatingWeight  = 0.15

	hotDealWeight   = 0.60
	hotDemandWeight = 0.40
)

// applyScores fills Score, DemandScore and HotScore on an otherwise
// complete metrics record. Each score is only present when its inputs are.
func applyScores(m *domain.DealMetrics) {
	if m.DiscountPct90d != nil && m.Confidence != nil {
		s := clamp(*m.DiscountPct90d, 0, 1)*dealDiscountWeight +
			(*m.Confidence/100.0)*dealConfidenceWeight
		m.Score = &s
	}

	// Demand score requires at least one raw demand input; absent
	// components contribute 0.
	if m.SalesRankCurrent != nil || m.RankDrops7d != nil || m.Rating != nil || m.ReviewCount != nil {
		d := clamp(
			demandRankWeight*rankComponent(m.SalesRankCurrent)+
				demandDropsWeight*dropsComponent(m.RankDrops7d)+
				demandReviewsWeight*reviewsComponent(m.ReviewCount)+
				demandRatingWeight*ratingComponent(m.Rating),
			0, 100)
		m.DemandScore = &d
	}

	if m.Score != nil && m.Confidence != nil && m.DemandScore != nil {
		blended := hotDealWeight**m.Score + hotDemandWeight**m.DemandScore
		h := clamp(blended*(0.50+0.50*(*m.Confidence/100.0)), 0, 100)
		m.HotScore = &h
	}
}

// rankComponent maps a sales rank (lower is better) onto 0-100 using a
// log scale: 1 -> 100, 100 -> 60, 1k -> 40, 10k -> 20, 100k -> 0.
func rankComponent(rank *float64) float64 {
	if rank == nil || *rank <= 0 {
		return 0
	}
	return clamp(100.0-20.0*math.Log10(*rank+1.0), 0, 100)
}

// dropsComponent scores rank-drop frequency; 10+ drops in 7 days is very
// strong movement.
func dropsComponent(drops *int) float64 {
	if drops == nil || *drops <= 0 {
		return 0
	}
	return clamp(float64(*drops)*10.0, 0, 100)
}

// reviewsComponent scores review volume on a log scale:
// 10 -> ~20, 100 -> 40, 1k -> 60, 10k -> 80, 100k -> 100.
func reviewsComponent(reviews *int) float64 {
	if reviews == nil || *reviews <= 0 {
		return 0
	}
	return clamp(20.0*math.Log10(float64(*reviews)+1.0), 0, 100)
}

// ratingComponent maps stars onto 0-100: 3.5 stars -> 0, 5.0 stars -> 100.
func ratingComponent(stars *float64) float64 {
	if stars == nil || *stars <= 0 {
		return 0
	}
	return clamp(((*stars-3.5)/1.5)*100.0, 0, 100)
}
