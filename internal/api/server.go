// Package api serves the public read side: active deal listings and
// single-deal lookup as JSON.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Elhashino/amazon-deals/internal/domain"
	"github.com/Elhashino/amazon-deals/internal/storage"
)

const storefrontBaseURL = "https://www.amazon.co.uk/dp/"

// Server exposes the deal read API over committed storage.
type Server struct {
	queries  storage.DealQueries
	assocTag string
	logger   *log.Logger
}

// Options for creating Server.
type Options struct {
	// Required
	Queries storage.DealQueries

	// AssocTag is appended to outbound product links when set.
	AssocTag string
	Logger   *log.Logger
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[api] ", log.LstdFlags)
	}
	return &Server{
		queries:  opts.Queries,
		assocTag: opts.AssocTag,
		logger:   logger,
	}
}

// Routes returns the API handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/deals", s.handleListDeals)
	mux.HandleFunc("GET /api/deal/{code}", s.handleGetDeal)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// DealResponse is the JSON projection of one active deal.
type DealResponse struct {
	ASIN         string    `json:"asin"`
	Title        string    `json:"title"`
	Brand        string    `json:"brand,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	Category     string    `json:"category"`
	CategoryName string    `json:"category_name"`
	ProductURL   string    `json:"product_url"`
	PublishedAt  time.Time `json:"published_at"`

	PriceCurrent   *float64 `json:"price_current,omitempty"`
	PriceMedian90d *float64 `json:"price_median_90d,omitempty"`
	DiscountPct90d *float64 `json:"discount_pct_90d,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
	Score          *float64 `json:"score,omitempty"`

	SalesRankCurrent *float64 `json:"sales_rank_current,omitempty"`
	RankDrops7d      *int     `json:"rank_drops_7d,omitempty"`
	Rating           *float64 `json:"rating,omitempty"`
	ReviewCount      *int     `json:"review_count,omitempty"`

	DemandScore *float64 `json:"demand_score,omitempty"`
	HotScore    *float64 `json:"hot_score,omitempty"`
}

// ListDealsResponse is the JSON response for GET /api/deals.
type ListDealsResponse struct {
	Deals []DealResponse `json:"deals"`
	Count int            `json:"count"`
}

func (s *Server) handleListDeals(w http.ResponseWriter, r *http.Request) {
	opts := storage.ListDealsOptions{Sort: storage.SortHot}

	if raw := r.URL.Query().Get("category"); raw != "" {
		slug := domain.CategorySlug(raw)
		if !slug.Valid() {
			httpError(w, http.StatusBadRequest, "unknown category")
			return
		}
		opts.Category = &slug
	}

	switch r.URL.Query().Get("sort") {
	case "", "hot":
	case "deal":
		opts.Sort = storage.SortDeal
	default:
		httpError(w, http.StatusBadRequest, "sort must be hot or deal")
		return
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		opts.Limit = n
	}

	views, err := s.queries.ListActiveDeals(r.Context(), opts)
	if err != nil {
		s.logger.Printf("list deals: %v", err)
		httpError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := ListDealsResponse{Deals: make([]DealResponse, 0, len(views))}
	for _, v := range views {
		resp.Deals = append(resp.Deals, s.toResponse(v))
	}
	resp.Count = len(resp.Deals)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDeal(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if len(code) != domain.ItemCodeLength {
		httpError(w, http.StatusBadRequest, "item code must be 10 characters")
		return
	}

	view, err := s.queries.GetActiveDeal(r.Context(), code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "no active deal for this item")
			return
		}
		s.logger.Printf("get deal %s: %v", code, err)
		httpError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, s.toResponse(view))
}

func (s *Server) toResponse(v *domain.DealView) DealResponse {
	return DealResponse{
		ASIN:         v.ASIN,
		Title:        v.Title,
		Brand:        v.Brand,
		ImageURL:     v.ImageURL,
		Category:     string(v.CategorySlug),
		CategoryName: v.CategorySlug.DisplayName(),
		ProductURL:   s.productURL(v.ASIN),
		PublishedAt:  v.PublishedAt,

		PriceCurrent:   v.PriceCurrent,
		PriceMedian90d: v.PriceMedian90d,
		DiscountPct90d: v.DiscountPct90d,
		Confidence:     v.Confidence,
		Score:          v.Score,

		SalesRankCurrent: v.SalesRankCurrent,
		RankDrops7d:      v.RankDrops7d,
		Rating:           v.Rating,
		ReviewCount:      v.ReviewCount,

		DemandScore: v.DemandScore,
		HotScore:    v.HotScore,
	}
}

func (s *Server) productURL(asin string) string {
	u := storefrontBaseURL + asin
	if s.assocTag != "" {
		u += "?tag=" + url.QueryEscape(s.assocTag)
	}
	return u
}

type errorResponse struct {
	Error string `json:"error"`
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
