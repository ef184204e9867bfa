package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Elhashino/amazon-deals/internal/domain"
	"github.com/Elhashino/amazon-deals/internal/storage"
)

// QueryStore implements storage.DealQueries for the read API. It runs on
// the pool directly: reads only ever see committed runs.
type QueryStore struct {
	pool *Pool
}

// NewQueryStore creates a QueryStore.
func NewQueryStore(pool *Pool) *QueryStore {
	return &QueryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DealQueries = (*QueryStore)(nil)

const dealViewColumns = `
	d.id, d.asin, d.category_slug, d.published_at,
	d.price_current, d.price_median_90d, d.discount_pct_90d, d.confidence, d.score,
	d.sales_rank_current, d.sales_rank_median_30d, d.sales_rank_trend_30d,
	d.rank_drops_7d, d.rating, d.review_count,
	d.demand_score, d.hot_score,
	d.is_active, d.ingested_at,
	p.title, p.brand, p.image_url
`

// ListActiveDeals returns active deals joined with product fields, sorted
// by the requested score with nulls last.
func (q *QueryStore) ListActiveDeals(ctx context.Context, opts storage.ListDealsOptions) ([]*domain.DealView, error) {
	query := `
		SELECT ` + dealViewColumns + `
		FROM deals d
		JOIN products p ON p.asin = d.asin
		WHERE d.is_active
	`
	args := []any{}
	if opts.Category != nil {
		args = append(args, *opts.Category)
		query += fmt.Sprintf(" AND d.category_slug = $%d", len(args))
	}

	if opts.Sort == storage.SortDeal {
		query += " ORDER BY d.score DESC NULLS LAST, d.id ASC"
	} else {
		query += " ORDER BY d.hot_score DESC NULLS LAST, d.score DESC NULLS LAST, d.id ASC"
	}

	args = append(args, storage.ClampLimit(opts.Limit))
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := q.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active deals: %w", err)
	}
	defer rows.Close()

	return scanDealViews(rows)
}

// GetActiveDeal returns the best-scored active deal for an item code.
func (q *QueryStore) GetActiveDeal(ctx context.Context, asin string) (*domain.DealView, error) {
	query := `
		SELECT ` + dealViewColumns + `
		FROM deals d
		JOIN products p ON p.asin = d.asin
		WHERE d.asin = $1 AND d.is_active
		ORDER BY d.score DESC NULLS LAST, d.id ASC
		LIMIT 1
	`

	rows, err := q.pool.Query(ctx, query, asin)
	if err != nil {
		return nil, fmt.Errorf("get active deal: %w", err)
	}
	defer rows.Close()

	views, err := scanDealViews(rows)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, storage.ErrNotFound
	}
	return views[0], nil
}

// scanDealViews scans joined deal+product rows.
func scanDealViews(rows pgx.Rows) ([]*domain.DealView, error) {
	var views []*domain.DealView

	for rows.Next() {
		var v domain.DealView

		err := rows.Scan(
			&v.ID, &v.ASIN, &v.CategorySlug, &v.PublishedAt,
			&v.PriceCurrent, &v.PriceMedian90d, &v.DiscountPct90d, &v.Confidence, &v.Score,
			&v.SalesRankCurrent, &v.SalesRankMedian30d, &v.SalesRankTrend30d,
			&v.RankDrops7d, &v.Rating, &v.ReviewCount,
			&v.DemandScore, &v.HotScore,
			&v.IsActive, &v.IngestedAt,
			&v.Title, &v.Brand, &v.ImageURL,
		)
		if err != nil {
			return nil, fmt.Errorf("scan deal view row: %w", err)
		}

		views = append(views, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deal view rows: %w", err)
	}

	return views, nil
}
