package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Elhashino/amazon-deals/internal/domain"
	"github.com/Elhashino/amazon-deals/internal/storage"
)

// Repository implements storage.DealRepository. Each run writes through a
// single transaction opened by BeginRun; nothing becomes visible until the
// session commits.
type Repository struct {
	pool *Pool
}

// NewRepository creates a Repository.
func NewRepository(pool *Pool) *Repository {
	return &Repository{pool: pool}
}

// Compile-time interface check.
var _ storage.DealRepository = (*Repository)(nil)

// BeginRun opens the run's transaction.
func (r *Repository) BeginRun(ctx context.Context) (storage.RunSession, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin run tx: %w", err)
	}
	return &runSession{tx: tx}, nil
}

// PurgeAllDeals empties the deals table in its own immediately-committed
// statement. Used by the eager purge-on-start mode only.
func (r *Repository) PurgeAllDeals(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM deals`); err != nil {
		return fmt.Errorf("purge all deals: %w", err)
	}
	return nil
}

// runSession implements storage.RunSession over one pgx transaction.
type runSession struct {
	tx     pgx.Tx
	closed bool
}

// UpsertProduct creates or overwrites a product row. The write is durable
// within the transaction immediately, satisfying foreign-key ordering for
// the child rows that follow.
func (s *runSession) UpsertProduct(ctx context.Context, p *domain.Product) error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	if p == nil || len(p.ASIN) != domain.ItemCodeLength {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO products (asin, title, brand, image_url, root_category_id, root_category_name, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (asin) DO UPDATE SET
			title = EXCLUDED.title,
			brand = EXCLUDED.brand,
			image_url = EXCLUDED.image_url,
			root_category_id = EXCLUDED.root_category_id,
			root_category_name = EXCLUDED.root_category_name,
			last_seen_at = EXCLUDED.last_seen_at
	`

	_, err := s.tx.Exec(ctx, query,
		p.ASIN, p.Title, p.Brand, p.ImageURL, p.RootCategoryID, p.RootCategoryName, p.LastSeenAt)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

// InsertSnapshot appends one immutable price snapshot.
func (s *runSession) InsertSnapshot(ctx context.Context, snap *domain.PriceSnapshot) error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	if snap == nil || snap.ASIN == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO price_snapshots (asin, captured_at, price_current, price_median_90d, discount_pct_90d, confidence, score)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.tx.Exec(ctx, query,
		snap.ASIN, snap.CapturedAt,
		snap.PriceCurrent, snap.PriceMedian90d, snap.DiscountPct90d, snap.Confidence, snap.Score)
	if err != nil {
		if isForeignKeyError(err) {
			return storage.ErrInvalidInput
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// UpsertActiveDeal enforces the at-most-one-active-deal-per-(asin, slug)
// invariant: the existing active row is looked up first, then updated in
// place or inserted fresh. ingested_at is stamped with clock_timestamp()
// so it reflects the true write wall-clock time rather than the
// transaction (or run) timestamp.
func (s *runSession) UpsertActiveDeal(ctx context.Context, d *domain.Deal) error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	if d == nil || d.ASIN == "" || !d.CategorySlug.Valid() {
		return storage.ErrInvalidInput
	}

	var existingID int64
	err := s.tx.QueryRow(ctx,
		`SELECT id FROM deals WHERE asin = $1 AND category_slug = $2 AND is_active`,
		d.ASIN, d.CategorySlug,
	).Scan(&existingID)

	switch {
	case err == nil:
		query := `
			UPDATE deals SET
				published_at = $2,
				price_current = $3,
				price_median_90d = $4,
				discount_pct_90d = $5,
				confidence = $6,
				score = $7,
				sales_rank_current = $8,
				sales_rank_median_30d = $9,
				sales_rank_trend_30d = $10,
				rank_drops_7d = $11,
				rating = $12,
				review_count = $13,
				demand_score = $14,
				hot_score = $15,
				is_active = TRUE,
				ingested_at = clock_timestamp()
			WHERE id = $1
		`
		if _, err := s.tx.Exec(ctx, query, existingID,
			d.PublishedAt,
			d.PriceCurrent, d.PriceMedian90d, d.DiscountPct90d, d.Confidence, d.Score,
			d.SalesRankCurrent, d.SalesRankMedian30d, d.SalesRankTrend30d,
			d.RankDrops7d, d.Rating, d.ReviewCount,
			d.DemandScore, d.HotScore,
		); err != nil {
			return fmt.Errorf("update active deal: %w", err)
		}
		return nil

	case isNotFoundError(err):
		query := `
			INSERT INTO deals (
				asin, category_slug, published_at,
				price_current, price_median_90d, discount_pct_90d, confidence, score,
				sales_rank_current, sales_rank_median_30d, sales_rank_trend_30d,
				rank_drops_7d, rating, review_count,
				demand_score, hot_score,
				is_active, ingested_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, TRUE, clock_timestamp())
		`
		if _, err := s.tx.Exec(ctx, query,
			d.ASIN, d.CategorySlug, d.PublishedAt,
			d.PriceCurrent, d.PriceMedian90d, d.DiscountPct90d, d.Confidence, d.Score,
			d.SalesRankCurrent, d.SalesRankMedian30d, d.SalesRankTrend30d,
			d.RankDrops7d, d.Rating, d.ReviewCount,
			d.DemandScore, d.HotScore,
		); err != nil {
			if isForeignKeyError(err) {
				return storage.ErrInvalidInput
			}
			return fmt.Errorf("insert active deal: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("lookup active deal: %w", err)
	}
}

// PurgeDealsBefore removes every deal not touched by the current run.
func (s *runSession) PurgeDealsBefore(ctx context.Context, runTS time.Time) (int64, error) {
	if s.closed {
		return 0, storage.ErrSessionClosed
	}

	tag, err := s.tx.Exec(ctx,
		`DELETE FROM deals WHERE published_at IS NULL OR published_at < $1`, runTS)
	if err != nil {
		return 0, fmt.Errorf("purge deals before %s: %w", runTS.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

// Commit finalizes the run.
func (s *runSession) Commit(ctx context.Context) error {
	if s.closed {
		return storage.ErrSessionClosed
	}
	s.closed = true
	if err := s.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run tx: %w", err)
	}
	return nil
}

// Rollback abandons the run. Safe to defer alongside Commit.
func (s *runSession) Rollback(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.tx.Rollback(ctx); err != nil {
		return fmt.Errorf("rollback run tx: %w", err)
	}
	return nil
}
