// Package memory provides an in-memory storage implementation mirroring
// the PostgreSQL one, used by unit tests and the -use-memory mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Elhashino/amazon-deals/internal/domain"
	"github.com/Elhashino/amazon-deals/internal/storage"
)

// Store holds the committed state. Run sessions operate on a deep copy
// and swap it in atomically at Commit, matching the all-or-nothing
// visibility of the transactional Postgres implementation.
type Store struct {
	mu sync.RWMutex

	products  map[string]*domain.Product
	snapshots []*domain.PriceSnapshot
	deals     map[int64]*domain.Deal

	nextSnapshotID int64
	nextDealID     int64

	// now is the write clock for IngestedAt; overridable in tests.
	now func() time.Time
}

// Compile-time interface checks.
var (
	_ storage.DealRepository = (*Store)(nil)
	_ storage.DealQueries    = (*Store)(nil)
)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		products:       make(map[string]*domain.Product),
		deals:          make(map[int64]*domain.Deal),
		nextSnapshotID: 1,
		nextDealID:     1,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the write clock. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// BeginRun opens a session over a deep copy of the committed state.
func (s *Store) BeginRun(_ context.Context) (storage.RunSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := &runSession{
		store:          s,
		products:       make(map[string]*domain.Product, len(s.products)),
		snapshots:      make([]*domain.PriceSnapshot, 0, len(s.snapshots)),
		deals:          make(map[int64]*domain.Deal, len(s.deals)),
		nextSnapshotID: s.nextSnapshotID,
		nextDealID:     s.nextDealID,
		touchedDeals:   make(map[int64]struct{}),
	}
	for k, v := range s.products {
		p := *v
		sess.products[k] = &p
	}
	for _, v := range s.snapshots {
		snap := *v
		sess.snapshots = append(sess.snapshots, &snap)
	}
	for k, v := range s.deals {
		d := *v
		sess.deals[k] = &d
	}
	return sess, nil
}

// PurgeAllDeals empties the deals table immediately, outside any session.
func (s *Store) PurgeAllDeals(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deals = make(map[int64]*domain.Deal)
	return nil
}

// runSession implements storage.RunSession over copied state.
type runSession struct {
	store *Store

	products  map[string]*domain.Product
	snapshots []*domain.PriceSnapshot
	deals     map[int64]*domain.Deal

	nextSnapshotID int64
	nextDealID     int64

	touchedDeals map[int64]struct{}
	closed       bool
}

func (r *runSession) UpsertProduct(_ context.Context, p *domain.Product) error {
	if r.closed {
		return storage.ErrSessionClosed
	}
	if p == nil || len(p.ASIN) != domain.ItemCodeLength {
		return storage.ErrInvalidInput
	}
	cp := *p
	r.products[p.ASIN] = &cp
	return nil
}

func (r *runSession) InsertSnapshot(_ context.Context, snap *domain.PriceSnapshot) error {
	if r.closed {
		return storage.ErrSessionClosed
	}
	if snap == nil || snap.ASIN == "" {
		return storage.ErrInvalidInput
	}
	if _, ok := r.products[snap.ASIN]; !ok {
		// Mirrors the FK constraint: parent must exist first.
		return storage.ErrInvalidInput
	}
	cp := *snap
	cp.ID = r.nextSnapshotID
	r.nextSnapshotID++
	r.snapshots = append(r.snapshots, &cp)
	return nil
}

func (r *runSession) UpsertActiveDeal(_ context.Context, d *domain.Deal) error {
	if r.closed {
		return storage.ErrSessionClosed
	}
	if d == nil || d.ASIN == "" || !d.CategorySlug.Valid() {
		return storage.ErrInvalidInput
	}
	if _, ok := r.products[d.ASIN]; !ok {
		return storage.ErrInvalidInput
	}

	// Look up the existing active row before deciding insert vs update.
	for id, existing := range r.deals {
		if existing.IsActive && existing.ASIN == d.ASIN && existing.CategorySlug == d.CategorySlug {
			cp := *d
			cp.ID = existing.ID
			cp.IsActive = true
			cp.IngestedAt = existing.IngestedAt // restamped at commit
			r.deals[id] = &cp
			r.touchedDeals[id] = struct{}{}
			return nil
		}
	}

	cp := *d
	cp.ID = r.nextDealID
	cp.IsActive = true
	cp.IngestedAt = nil
	r.nextDealID++
	r.deals[cp.ID] = &cp
	r.touchedDeals[cp.ID] = struct{}{}
	return nil
}

func (r *runSession) PurgeDealsBefore(_ context.Context, runTS time.Time) (int64, error) {
	if r.closed {
		return 0, storage.ErrSessionClosed
	}
	var deleted int64
	for id, d := range r.deals {
		if d.PublishedAt.IsZero() || d.PublishedAt.Before(runTS) {
			delete(r.deals, id)
			delete(r.touchedDeals, id)
			deleted++
		}
	}
	return deleted, nil
}

// Commit swaps the session's state into the store and stamps IngestedAt
// on every deal touched during the run with the write clock.
func (r *runSession) Commit(_ context.Context) error {
	if r.closed {
		return storage.ErrSessionClosed
	}
	r.closed = true

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	wrote := r.store.now()
	for id := range r.touchedDeals {
		if d, ok := r.deals[id]; ok {
			ts := wrote
			d.IngestedAt = &ts
		}
	}

	r.store.products = r.products
	r.store.snapshots = r.snapshots
	r.store.deals = r.deals
	r.store.nextSnapshotID = r.nextSnapshotID
	r.store.nextDealID = r.nextDealID
	return nil
}

// Rollback discards the session's state.
func (r *runSession) Rollback(_ context.Context) error {
	r.closed = true
	return nil
}

// ListActiveDeals returns active deals joined with product fields.
func (s *Store) ListActiveDeals(_ context.Context, opts storage.ListDealsOptions) ([]*domain.DealView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var views []*domain.DealView
	for _, d := range s.deals {
		if !d.IsActive {
			continue
		}
		if opts.Category != nil && d.CategorySlug != *opts.Category {
			continue
		}
		views = append(views, s.view(d))
	}

	sortViews(views, opts.Sort)

	limit := storage.ClampLimit(opts.Limit)
	if len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

// GetActiveDeal returns the best-scored active deal for an item code.
func (s *Store) GetActiveDeal(_ context.Context, asin string) (*domain.DealView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.DealView
	for _, d := range s.deals {
		if !d.IsActive || d.ASIN != asin {
			continue
		}
		v := s.view(d)
		if best == nil || scoreLess(best.Score, v.Score) {
			best = v
		}
	}
	if best == nil {
		return nil, storage.ErrNotFound
	}
	return best, nil
}

// SnapshotCount reports the number of stored snapshots. Test hook.
func (s *Store) SnapshotCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

// SnapshotsFor returns the stored snapshots for a code in insert order.
// Test hook.
func (s *Store) SnapshotsFor(asin string) []*domain.PriceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.PriceSnapshot
	for _, snap := range s.snapshots {
		if snap.ASIN == asin {
			cp := *snap
			out = append(out, &cp)
		}
	}
	return out
}

// GetProduct returns a committed product. Test hook.
func (s *Store) GetProduct(asin string) (*domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[asin]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

func (s *Store) view(d *domain.Deal) *domain.DealView {
	v := &domain.DealView{Deal: *d}
	if p, ok := s.products[d.ASIN]; ok {
		v.Title = p.Title
		v.Brand = p.Brand
		v.ImageURL = p.ImageURL
	}
	return v
}

// sortViews orders by the requested sort key with nil scores last, then
// by id for determinism.
func sortViews(views []*domain.DealView, order storage.SortOrder) {
	sort.Slice(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if order == storage.SortDeal {
			if c := compareDesc(a.Score, b.Score); c != 0 {
				return c < 0
			}
		} else {
			if c := compareDesc(a.HotScore, b.HotScore); c != 0 {
				return c < 0
			}
			if c := compareDesc(a.Score, b.Score); c != 0 {
				return c < 0
			}
		}
		return a.ID < b.ID
	})
}

// compareDesc orders two nullable scores descending, nils last.
func compareDesc(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a > *b:
		return -1
	case *a < *b:
		return 1
	default:
		return 0
	}
}

// scoreLess reports whether a is worse than b (nil is worst).
func scoreLess(a, b *float64) bool {
	return compareDesc(a, b) > 0
}
