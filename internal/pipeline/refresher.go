// Package pipeline runs the catalog refresh: it rebuilds both snapshots from
// the upstream API and replaces them in the cache.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tourcatalog/internal/cache"
	"tourcatalog/internal/calendar"
	"tourcatalog/internal/crawler"
	"tourcatalog/internal/currency"
	"tourcatalog/internal/logging"
	"tourcatalog/internal/model"
	"tourcatalog/internal/observability"
)

var (
	ErrRefreshInProgress = errors.New("refresh already in progress")
	ErrRootUnavailable   = errors.New("catalog root unavailable")
	ErrRatesUnavailable  = errors.New("currency rates unavailable")
)

const sideEffectTimeout = 10 * time.Second

// AvailabilityInterrupted is appended to the failed paths of a snapshot whose
// calendar stopped short because the run ran out of time.
const AvailabilityInterrupted = "(availability interrupted)"

// ProductArchive stores the products of each run.
type ProductArchive interface {
	ListActiveIDs(ctx context.Context) ([]string, error)
	SaveAll(ctx context.Context, runID string, products []model.ProductSummary) error
	MarkMissing(ctx context.Context, runID string) (int64, error)
}

type RunRecorder interface {
	Record(ctx context.Context, run model.RefreshRun) error
}

type Publisher interface {
	PublishRefreshed(ctx context.Context, run model.RefreshRun) error
}

type Options struct {
	Lang            string
	BaseCurrency    string
	PriceCurrencies []string
	Skip            crawler.SkipFunc

	HydrateConcurrency int
	Availability       crawler.AvailabilityOptions
	WindowDays         int
	// Reviews enables the reviews snapshot; it reuses the availability
	// chunking and retry settings.
	Reviews            bool

	KeyPrefix string
	Now       func() time.Time
}

// Deps are the collaborators of a Refresher. Archive, Runs and Publisher
// are optional.
type Deps struct {
	Client    crawler.CatalogClient
	Store     cache.Store
	Archive   ProductArchive
	Runs      RunRecorder
	Publisher Publisher
}

type Result struct {
	RunID       string    `json:"runId"`
	GeneratedAt time.Time `json:"timestamp"`
	Products    int       `json:"products"`
	Entries     int       `json:"entries"`
	Reviews     int       `json:"reviews"`
	Partial     bool      `json:"partial"`
	FailedPaths []string  `json:"failedPaths,omitempty"`
}

type Refresher struct {
	client       crawler.CatalogClient
	store        cache.Store
	archive      ProductArchive
	runs         RunRecorder
	publisher    Publisher
	opts         Options
	hydrator     *crawler.Hydrator
	availability *crawler.AvailabilityFetcher
	details      *crawler.DetailFetcher
	reviews      *crawler.ReviewFetcher

	mu sync.Mutex
}

func NewRefresher(deps Deps, opts Options) *Refresher {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = 365
	}
	return &Refresher{
		client:       deps.Client,
		store:        deps.Store,
		archive:      deps.Archive,
		runs:         deps.Runs,
		publisher:    deps.Publisher,
		opts:         opts,
		hydrator:     crawler.NewHydrator(deps.Client, opts.HydrateConcurrency),
		availability: crawler.NewAvailabilityFetcher(deps.Client),
		details:      crawler.NewDetailFetcher(deps.Client),
		reviews:      crawler.NewReviewFetcher(deps.Client),
	}
}

// Run performs one refresh. Only one run executes at a time; a concurrent
// call returns ErrRefreshInProgress immediately.
func (r *Refresher) Run(ctx context.Context) (Result, error) {
	if !r.mu.TryLock() {
		return Result{}, ErrRefreshInProgress
	}
	defer r.mu.Unlock()

	run := model.RefreshRun{ID: uuid.NewString(), StartedAt: r.opts.Now()}
	log := logging.L().With(zap.String("run_id", run.ID))
	log.Info("refresh started")

	res, err := r.refresh(ctx, &run, log)
	run.FinishedAt = r.opts.Now()
	observability.RefreshDuration.Observe(run.Duration().Seconds())

	sideCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err != nil {
		run.Error = err.Error()
		observability.RefreshRunsTotal.WithLabelValues("failed").Inc()
		log.Error("refresh failed", zap.Error(err), zap.Duration("took", run.Duration()))
		r.recordRun(sideCtx, run, log)
		return Result{}, err
	}

	outcome := "success"
	if run.Partial {
		outcome = "partial"
	}
	observability.RefreshRunsTotal.WithLabelValues(outcome).Inc()
	observability.ProductsCollected.Set(float64(run.Products))
	observability.CalendarEntries.Set(float64(run.Entries))
	log.Info("refresh finished",
		zap.Int("products", run.Products),
		zap.Int("entries", run.Entries),
		zap.Bool("partial", run.Partial),
		zap.Duration("took", run.Duration()))

	r.recordRun(sideCtx, run, log)
	if r.publisher != nil {
		if err := r.publisher.PublishRefreshed(sideCtx, run); err != nil {
			log.Warn("refresh event not published", zap.Error(err))
		}
	}
	return res, nil
}

func (r *Refresher) refresh(ctx context.Context, run *model.RefreshRun, log *zap.Logger) (Result, error) {
	root, err := r.hydrator.FetchRoot(ctx)
	if err != nil {
		return Result{}, errors.Errorf("%w: %w", ErrRootUnavailable, err)
	}

	tree, err := r.hydrator.Hydrate(ctx, root, r.opts.Skip)
	var partial *crawler.PartialHydrationError
	switch {
	case errors.As(err, &partial):
		run.Partial = true
		run.FailedPaths = partial.Paths()
		observability.HydrationFailuresTotal.Add(float64(len(partial.Failures)))
		log.Warn("catalog hydrated partially", zap.Strings("failed_paths", run.FailedPaths))
	case err != nil:
		return Result{}, errors.Wrap(err, "hydrate catalog")
	}

	products := crawler.Collect(tree)
	log.Info("catalog collected", zap.Int("products", len(products)))

	r.enrich(ctx, products, log)

	var table *model.RateTable
	if len(r.opts.PriceCurrencies) > 0 {
		t, err := crawler.FetchRates(ctx, r.client, r.opts.BaseCurrency)
		if err != nil {
			return Result{}, errors.Errorf("%w: %w", ErrRatesUnavailable, err)
		}
		table = &t
	}
	for id, p := range products {
		p = crawler.Annotate(p)
		if table != nil && p.BasePrice.Valid {
			from := p.BaseCurrency
			if from == "" {
				from = r.opts.BaseCurrency
			}
			p.AllPrices = currency.AllPrices(p.BasePrice.Decimal, from, r.opts.PriceCurrencies, *table)
		}
		products[id] = p
	}
	tree = crawler.MapProducts(tree, func(p model.ProductSummary) model.ProductSummary {
		if enriched, ok := products[p.ID]; ok {
			return enriched
		}
		return p
	})

	now := r.opts.Now()
	run.Products = len(products)
	hydrationPartial := run.Partial

	standard := model.Snapshot{
		Mode:        model.ModeStandard,
		RunID:       run.ID,
		GeneratedAt: now,
		Tree:        tree.Children,
		Partial:     run.Partial,
		FailedPaths: run.FailedPaths,
	}
	if err := r.put(ctx, standard); err != nil {
		return Result{}, err
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	ordered := sortedProducts(products)
	availability := r.availability.FetchAvailability(ctx, ordered,
		crawler.NewDateRange(today, r.opts.WindowDays), r.opts.Availability)
	entries := calendar.Flatten(calendar.Join(products, availability), calendar.DefaultCutoff(now))
	run.Entries = len(entries)

	upcoming := model.Snapshot{
		Mode:        model.ModeUpcoming,
		RunID:       run.ID,
		GeneratedAt: now,
		Entries:     entries,
		Partial:     run.Partial,
		FailedPaths: run.FailedPaths,
	}
	if err := ctx.Err(); err != nil {
		run.Partial = true
		run.FailedPaths = append(run.FailedPaths, AvailabilityInterrupted)
		upcoming.Partial, upcoming.FailedPaths = true, run.FailedPaths
		log.Warn("availability interrupted, calendar is incomplete", zap.Error(err), zap.Int("entries", len(entries)))
	}
	if err := r.put(ctx, upcoming); err != nil {
		return Result{}, err
	}

	reviews := r.refreshReviews(ctx, run, ordered, now, log)

	r.archiveProducts(ctx, run, products, hydrationPartial, log)

	return Result{
		RunID:       run.ID,
		GeneratedAt: now,
		Products:    run.Products,
		Entries:     run.Entries,
		Reviews:     reviews,
		Partial:     run.Partial,
		FailedPaths: run.FailedPaths,
	}, nil
}

// put is bounded by its own deadline rather than the run budget.
func (r *Refresher) put(ctx context.Context, snap model.Snapshot) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := r.store.Put(ctx, cache.Key(r.opts.KeyPrefix, snap.Mode), snap); err != nil {
		return errors.Wrapf(err, "store %s snapshot", snap.Mode)
	}
	return nil
}

// refreshReviews replaces the reviews snapshot and returns the number of
// reviews written. An interrupted fetch keeps the previous snapshot.
func (r *Refresher) refreshReviews(ctx context.Context, run *model.RefreshRun, products []model.ProductSummary, now time.Time, log *zap.Logger) int {
	if !r.opts.Reviews || ctx.Err() != nil {
		return 0
	}
	reviews, complete := r.reviews.FetchReviews(ctx, products, crawler.ReviewOptions{
		ChunkSize:  r.opts.Availability.ChunkSize,
		MaxRetries: r.opts.Availability.MaxRetries,
		Backoff:    r.opts.Availability.Backoff,
		Sleep:      r.opts.Availability.Sleep,
	})
	if !complete {
		log.Warn("reviews fetch interrupted, keeping previous reviews")
		return 0
	}
	snap := model.Snapshot{
		Mode:        model.ModeReviews,
		RunID:       run.ID,
		GeneratedAt: now,
		Reviews:     reviews,
	}
	if err := r.put(ctx, snap); err != nil {
		log.Warn("reviews snapshot not stored", zap.Error(err))
		return 0
	}
	log.Info("reviews refreshed", zap.Int("reviews", len(reviews)))
	return len(reviews)
}

// enrich fills products listed without a price from the product endpoint.
func (r *Refresher) enrich(ctx context.Context, products map[string]model.ProductSummary, log *zap.Logger) {
	var ids []string
	for id, p := range products {
		if !p.BasePrice.Valid {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return
	}
	sort.Strings(ids)

	detailed := r.details.FetchDetails(ctx, ids, crawler.DetailOptions{
		Currency:   r.opts.BaseCurrency,
		Lang:       r.opts.Lang,
		ChunkSize:  r.opts.Availability.ChunkSize,
		MaxRetries: r.opts.Availability.MaxRetries,
		Backoff:    r.opts.Availability.Backoff,
		Sleep:      r.opts.Availability.Sleep,
	})
	for id, d := range detailed {
		products[id] = crawler.MergeDetails(products[id], d)
	}
	log.Info("product details fetched", zap.Int("requested", len(ids)), zap.Int("fetched", len(detailed)))
}

// archiveProducts saves the run's products and, after a complete hydration,
// deactivates the ones it did not see and records their ids on the run.
func (r *Refresher) archiveProducts(ctx context.Context, run *model.RefreshRun, products map[string]model.ProductSummary, hydrationPartial bool, log *zap.Logger) {
	if r.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	previous, err := r.archive.ListActiveIDs(ctx)
	if err != nil {
		log.Warn("active products not listed", zap.Error(err))
	}
	if err := r.archive.SaveAll(ctx, run.ID, sortedProducts(products)); err != nil {
		log.Warn("product archive not updated", zap.Error(err))
		return
	}
	if hydrationPartial {
		return
	}
	n, err := r.archive.MarkMissing(ctx, run.ID)
	if err != nil {
		log.Warn("stale products not deactivated", zap.Error(err))
		return
	}
	for _, id := range previous {
		if _, ok := products[id]; !ok {
			run.Removed = append(run.Removed, id)
		}
	}
	if n > 0 {
		log.Info("products deactivated", zap.Int64("count", n), zap.Strings("product_ids", run.Removed))
	}
}

func (r *Refresher) recordRun(ctx context.Context, run model.RefreshRun, log *zap.Logger) {
	if r.runs == nil {
		return
	}
	if err := r.runs.Record(ctx, run); err != nil {
		log.Warn("refresh run not recorded", zap.Error(err))
	}
}

func sortedProducts(products map[string]model.ProductSummary) []model.ProductSummary {
	out := make([]model.ProductSummary, 0, len(products))
	for _, p := range products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
