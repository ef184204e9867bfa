// Package ingestion coordinates one end-to-end deals run:
// listing → detail fetch → metric extraction → categorized admission →
// transactional persistence → stale-deal purge.
package ingestion

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/Elhashino/amazon-deals/internal/category"
	"github.com/Elhashino/amazon-deals/internal/config"
	"github.com/Elhashino/amazon-deals/internal/domain"
	"github.com/Elhashino/amazon-deals/internal/marketplace"
	"github.com/Elhashino/amazon-deals/internal/metrics"
	"github.com/Elhashino/amazon-deals/internal/observability"
	"github.com/Elhashino/amazon-deals/internal/storage"
)

// Runner executes ingestion runs. All writes of one run go through a
// single storage session: a failed run commits nothing.
type Runner struct {
	client  marketplace.Client
	repo    storage.DealRepository
	cfg     config.Ingestion
	metrics *observability.Metrics
	verbose bool
}

// Options for creating Runner.
type Options struct {
	// Required
	Client     marketplace.Client
	Repository storage.DealRepository
	Ingestion  config.Ingestion

	// Optional
	Metrics *observability.Metrics
	Verbose bool
}

// New creates a new Runner.
func New(opts Options) *Runner {
	return &Runner{
		client:  opts.Client,
		repo:    opts.Repository,
		cfg:     opts.Ingestion,
		metrics: opts.Metrics,
		verbose: opts.Verbose,
	}
}

// RunResult summarizes one completed run.
type RunResult struct {
	StartedAt              time.Time
	Duration               time.Duration
	PagesFetched           int
	ProductsProcessed      int
	DealsAdmitted          int
	RejectedIncomplete     int
	RejectedBelowThreshold int
	DealsPurged            int64
}

// Run executes one full ingestion pass.
//
// The run timestamp is captured before any network or database I/O; every
// row written by the run carries it, and the end-of-run purge removes any
// deal whose published_at predates it. Any fetch error that survives the
// client's retry budget aborts the run and nothing is committed: a partial
// view of the listings must never feed the purge.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	runStartedAt := time.Now().UTC()
	result := &RunResult{StartedAt: runStartedAt}

	roots, err := r.client.RootCategories(ctx)
	if err != nil {
		r.countRun("error")
		return nil, fmt.Errorf("fetch root categories: %w", err)
	}

	categoryIDs := r.resolveCategoryIDs(roots)
	if len(categoryIDs) == 0 {
		r.countRun("error")
		return nil, fmt.Errorf("no usable root categories among %d roots", len(roots))
	}
	r.log("Run started: %d root categories, %d pages each", len(categoryIDs), r.cfg.PagesPerRootCategory)

	if r.cfg.PurgeStart {
		if err := r.repo.PurgeAllDeals(ctx); err != nil {
			r.countRun("error")
			return nil, fmt.Errorf("purge deals on start: %w", err)
		}
		r.log("Purged all deals before run")
	}

	sess, err := r.repo.BeginRun(ctx)
	if err != nil {
		r.countRun("error")
		return nil, fmt.Errorf("begin run: %w", err)
	}
	defer sess.Rollback(ctx)

	codes, err := r.collectItemCodes(ctx, categoryIDs, result)
	if err != nil {
		r.countRun("error")
		return nil, err
	}
	r.log("Collected %d unique item codes from %d pages", len(codes), result.PagesFetched)

	if len(codes) > 0 {
		if r.metrics != nil {
			r.metrics.ProductsRequested.Add(float64(len(codes)))
		}
		details, err := r.client.ProductDetail(ctx, codes)
		if err != nil {
			r.countRun("error")
			return nil, fmt.Errorf("fetch product detail: %w", err)
		}

		byCode := make(map[string]marketplace.ProductDetail, len(details))
		for _, d := range details {
			if d.ItemCode != "" {
				byCode[d.ItemCode] = d
			}
		}

		for _, code := range codes {
			detail, ok := byCode[code]
			if !ok {
				continue
			}
			if err := r.processProduct(ctx, sess, roots, detail, runStartedAt, result); err != nil {
				r.countRun("error")
				return nil, err
			}
		}
	}

	if r.cfg.PurgeEnd {
		purged, err := sess.PurgeDealsBefore(ctx, runStartedAt)
		if err != nil {
			r.countRun("error")
			return nil, fmt.Errorf("purge stale deals: %w", err)
		}
		result.DealsPurged = purged
		if r.metrics != nil {
			r.metrics.DealsPurged.Add(float64(purged))
		}
	}

	if err := sess.Commit(ctx); err != nil {
		r.countRun("error")
		return nil, fmt.Errorf("commit run: %w", err)
	}

	result.Duration = time.Since(runStartedAt)
	r.countRun("success")
	if r.metrics != nil {
		r.metrics.IngestionRunDuration.Observe(result.Duration.Seconds())
		r.metrics.LastSuccessfulRun.SetToCurrentTime()
		if r.cfg.PurgeEnd {
			// With the end-of-run purge the catalog is exactly this
			// run's admitted set.
			r.metrics.ActiveDealsCount.Set(float64(result.DealsAdmitted))
		}
	}
	r.log("Run completed in %s: %d processed, %d admitted, %d incomplete, %d below threshold, %d purged",
		result.Duration.Round(time.Millisecond), result.ProductsProcessed, result.DealsAdmitted,
		result.RejectedIncomplete, result.RejectedBelowThreshold, result.DealsPurged)

	return result, nil
}

// resolveCategoryIDs prefers the curated root set, falling back to the
// full raw taxonomy when no curated root could be matched.
func (r *Runner) resolveCategoryIDs(roots map[string]marketplace.RootCategory) []int64 {
	curated := marketplace.ResolveCuratedRootIDs(roots)
	if len(curated) > 0 {
		return marketplace.UniqueSortedIDs(curated)
	}

	r.log("No curated roots matched, falling back to %d raw categories", len(roots))
	seen := make(map[string]int64, len(roots))
	for key, root := range roots {
		if root.ID != 0 {
			seen[key] = root.ID
		}
	}
	return marketplace.UniqueSortedIDs(seen)
}

// collectItemCodes pages through the deal listings and returns unique
// well-formed item codes in first-seen order. A listing error that
// survived the client's retries is fatal: committing a run that saw only
// part of the catalog would purge the unseen categories' deals.
func (r *Runner) collectItemCodes(ctx context.Context, categoryIDs []int64, result *RunResult) ([]string, error) {
	var codes []string
	seen := make(map[string]bool)

	for _, id := range categoryIDs {
		for page := 0; page < r.cfg.PagesPerRootCategory; page++ {
			items, err := r.client.DealListing(ctx, []int64{id}, page)
			if err != nil {
				return nil, fmt.Errorf("listing category %d page %d: %w", id, page, err)
			}
			result.PagesFetched++
			if r.metrics != nil {
				r.metrics.DealPagesFetched.Inc()
			}
			if len(items) == 0 {
				continue
			}

			for _, item := range items {
				if len(item.ItemCode) != domain.ItemCodeLength {
					r.countRejected(observability.RejectBadItemCode)
					continue
				}
				if !seen[item.ItemCode] {
					seen[item.ItemCode] = true
					codes = append(codes, item.ItemCode)
				}
			}
		}
	}

	return codes, nil
}

// processProduct scores one product payload and, when it qualifies,
// writes the product row, its snapshot and its active deal.
func (r *Runner) processProduct(
	ctx context.Context,
	sess storage.RunSession,
	roots map[string]marketplace.RootCategory,
	detail marketplace.ProductDetail,
	runTS time.Time,
	result *RunResult,
) error {
	result.ProductsProcessed++
	if r.metrics != nil {
		r.metrics.ProductsProcessed.Inc()
	}

	rootName := detail.RootCategoryName
	if detail.RootCategoryID != nil {
		if root, ok := roots[strconv.FormatInt(*detail.RootCategoryID, 10)]; ok && root.Name != "" {
			rootName = root.Name
		}
	}
	slug := category.Categorize(detail.CategoryTree, rootName)

	m := metrics.Extract(detail.History)
	if m.DiscountPct90d == nil || m.Score == nil {
		result.RejectedIncomplete++
		r.countRejected(observability.RejectIncomplete)
		return nil
	}
	if *m.DiscountPct90d < r.cfg.Thresholds.MinDiscount(slug) {
		result.RejectedBelowThreshold++
		r.countRejected(observability.RejectBelowThreshold)
		return nil
	}

	product := &domain.Product{
		ASIN:             detail.ItemCode,
		Title:            detail.Title,
		Brand:            detail.Brand,
		ImageURL:         detail.ImageURL,
		RootCategoryID:   detail.RootCategoryID,
		RootCategoryName: rootName,
		LastSeenAt:       runTS,
	}
	if err := sess.UpsertProduct(ctx, product); err != nil {
		return fmt.Errorf("upsert product %s: %w", detail.ItemCode, err)
	}

	snapshot := &domain.PriceSnapshot{
		ASIN:           detail.ItemCode,
		CapturedAt:     runTS,
		PriceCurrent:   m.PriceCurrent,
		PriceMedian90d: m.PriceMedian90d,
		DiscountPct90d: m.DiscountPct90d,
		Confidence:     m.Confidence,
		Score:          m.Score,
	}
	if err := sess.InsertSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("insert snapshot %s: %w", detail.ItemCode, err)
	}
	if r.metrics != nil {
		r.metrics.SnapshotsWritten.Inc()
	}

	deal := &domain.Deal{
		ASIN:         detail.ItemCode,
		CategorySlug: slug,
		PublishedAt:  runTS,

		PriceCurrent:   m.PriceCurrent,
		PriceMedian90d: m.PriceMedian90d,
		DiscountPct90d: m.DiscountPct90d,
		Confidence:     m.Confidence,
		Score:          m.Score,

		SalesRankCurrent:   m.SalesRankCurrent,
		SalesRankMedian30d: m.SalesRankMedian30d,
		SalesRankTrend30d:  m.SalesRankTrend30d,
		RankDrops7d:        m.RankDrops7d,
		Rating:             m.Rating,
		ReviewCount:        m.ReviewCount,

		DemandScore: m.DemandScore,
		HotScore:    m.HotScore,
	}
	if err := sess.UpsertActiveDeal(ctx, deal); err != nil {
		return fmt.Errorf("upsert deal %s: %w", detail.ItemCode, err)
	}

	result.DealsAdmitted++
	if r.metrics != nil {
		r.metrics.DealsAdmitted.WithLabelValues(string(slug)).Inc()
	}
	return nil
}

func (r *Runner) countRejected(reason string) {
	if r.metrics != nil {
		r.metrics.DealsRejected.WithLabelValues(reason).Inc()
	}
}

func (r *Runner) countRun(status string) {
	if r.metrics != nil {
		r.metrics.IngestionRunsTotal.WithLabelValues(status).Inc()
	}
}

func (r *Runner) log(format string, args ...interface{}) {
	if r.verbose {
		log.Printf("[ingestion] "+format, args...)
	}
}
