package storage

import (
	"context"
	"time"

	"github.com/Elhashino/amazon-deals/internal/domain"
)

// RunSession is the write surface of one ingestion run. All writes stay
// invisible to readers until Commit; an aborted run rolls back leaving the
// database exactly as before. Implementations stamp Deal.IngestedAt with
// the true write wall-clock time themselves; callers never supply it.
//
// Session methods must be called product-parent-first: a snapshot or deal
// write for a code whose product has not been upserted in this session (or
// an earlier run) violates referential integrity.
type RunSession interface {
	// UpsertProduct creates the product on first sighting or overwrites
	// all descriptive fields in place. The row is durable within the
	// session immediately, so child writes may follow.
	UpsertProduct(ctx context.Context, p *domain.Product) error

	// InsertSnapshot appends one immutable price snapshot.
	InsertSnapshot(ctx context.Context, s *domain.PriceSnapshot) error

	// UpsertActiveDeal locates the active deal for (ASIN, CategorySlug)
	// and overwrites its metrics and PublishedAt, or inserts a new active
	// deal when none exists. At most one active deal per pair survives.
	UpsertActiveDeal(ctx context.Context, d *domain.Deal) error

	// PurgeDealsBefore deletes every deal whose published_at is null or
	// strictly before runTS, returning the number deleted.
	PurgeDealsBefore(ctx context.Context, runTS time.Time) (int64, error)

	// Commit makes the run's writes visible atomically.
	Commit(ctx context.Context) error

	// Rollback discards the run's writes. Safe to call after Commit.
	Rollback(ctx context.Context) error
}

// DealRepository is the persistence boundary the run coordinator writes
// through.
type DealRepository interface {
	// BeginRun opens the transactional session for one run. The session
	// is not safe for concurrent writers; at most one run executes at a
	// time.
	BeginRun(ctx context.Context) (RunSession, error)

	// PurgeAllDeals eagerly empties the deals table outside any run
	// session. Destructive and immediately visible (purge-on-start mode).
	PurgeAllDeals(ctx context.Context) error
}

// SortOrder selects the listing sort key.
type SortOrder string

const (
	// SortHot orders by hot score, then deal score, nulls last.
	SortHot SortOrder = "hot"
	// SortDeal orders by deal score, nulls last.
	SortDeal SortOrder = "deal"
)

// ListDealsOptions filters and sorts an active-deal listing.
type ListDealsOptions struct {
	Category *domain.CategorySlug
	Sort     SortOrder
	Limit    int // clamped to [1, 200], default 50
}

// DealQueries is the read surface behind the listing pages.
type DealQueries interface {
	// ListActiveDeals returns active deals joined with product fields.
	ListActiveDeals(ctx context.Context, opts ListDealsOptions) ([]*domain.DealView, error)

	// GetActiveDeal returns the best-scored active deal for an item code.
	// Returns ErrNotFound when the code has no active deal.
	GetActiveDeal(ctx context.Context, asin string) (*domain.DealView, error)
}

// DefaultListLimit applies when ListDealsOptions.Limit is unset.
const DefaultListLimit = 50

// MaxListLimit caps ListDealsOptions.Limit.
const MaxListLimit = 200

// ClampLimit normalizes a requested listing limit.
func ClampLimit(n int) int {
	if n <= 0 {
		return DefaultListLimit
	}
	if n > MaxListLimit {
		return MaxListLimit
	}
	return n
}
