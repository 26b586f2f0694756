package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"tourcatalog/internal/cache"
	"tourcatalog/internal/crawler"
	"tourcatalog/internal/logging"
	"tourcatalog/internal/model"
	"tourcatalog/internal/observability"
	"tourcatalog/internal/pipeline"
)

type Refresher interface {
	Run(ctx context.Context) (pipeline.Result, error)
}

type RunLister interface {
	Recent(ctx context.Context, limit int) ([]model.RefreshRun, error)
}

// Handler serves the cached catalog. It never calls the upstream API; only
// POST /refresh triggers a pipeline run.
type Handler struct {
	store          cache.Store
	refresher      Refresher
	runs           RunLister
	keyPrefix      string
	refreshTimeout time.Duration
}

type Options struct {
	KeyPrefix      string
	RefreshTimeout time.Duration
	// Runs is optional; without it GET /refresh/runs is not served.
	Runs RunLister
}

func NewHandler(store cache.Store, refresher Refresher, opts Options) *Handler {
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 4 * time.Minute
	}
	return &Handler{
		store:          store,
		refresher:      refresher,
		runs:           opts.Runs,
		keyPrefix:      opts.KeyPrefix,
		refreshTimeout: opts.RefreshTimeout,
	}
}

func (h *Handler) Routes() http.Handler {
	router := httprouter.New()
	router.GET("/health", h.Health)
	router.GET("/catalog", h.GetCatalog)
	router.GET("/catalog/products/:slug", h.GetProduct)
	router.POST("/refresh", h.Refresh)
	if h.runs != nil {
		router.GET("/refresh/runs", h.ListRuns)
	}
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		logging.Error("handler panic", zap.Any("panic", v), zap.String("path", r.URL.Path))
		WriteError(w, Internal(errors.Errorf("panic: %v", v)))
	}
	return logging.Middleware(router)
}

// Health reports whether the catalog has been primed. A cache backend error
// is reported as degraded, never as an empty cache.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	_, err := h.store.Get(r.Context(), cache.Key(h.keyPrefix, model.ModeStandard))
	if err != nil && !errors.Is(err, cache.ErrNotPrimed) {
		logging.Warn("health check: cache unavailable", zap.Error(err))
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "degraded",
			"primed": false,
			"cache":  "unavailable",
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"primed": err == nil,
		"cache":  "ok",
	})
}

// GetCatalog returns the folder tree, with ?mode=upcoming the date-ordered
// calendar, or with ?mode=reviews the product reviews. Snapshot metadata
// travels in X-Catalog-* headers.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var mode model.SnapshotMode
	switch m := r.URL.Query().Get("mode"); m {
	case "", string(model.ModeStandard):
		mode = model.ModeStandard
	case string(model.ModeUpcoming):
		mode = model.ModeUpcoming
	case string(model.ModeReviews):
		mode = model.ModeReviews
	default:
		WriteError(w, InvalidInput("unknown mode: "+m))
		return
	}

	snap, err := h.snapshot(r.Context(), mode)
	if err != nil {
		WriteError(w, err)
		return
	}
	setSnapshotHeaders(w, snap)

	switch mode {
	case model.ModeUpcoming:
		entries := snap.Entries
		if entries == nil {
			entries = []model.CalendarEntry{}
		}
		WriteJSON(w, http.StatusOK, entries)
	case model.ModeReviews:
		reviews := snap.Reviews
		if reviews == nil {
			reviews = []model.Review{}
		}
		WriteJSON(w, http.StatusOK, reviews)
	default:
		tree := snap.Tree
		if tree == nil {
			tree = []model.Node{}
		}
		WriteJSON(w, http.StatusOK, tree)
	}
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slug := ps.ByName("slug")
	snap, err := h.snapshot(r.Context(), model.ModeStandard)
	if err != nil {
		WriteError(w, err)
		return
	}
	for _, p := range crawler.Collect(model.FolderNode{Children: snap.Tree}) {
		if p.Slug != "" && p.Slug == slug {
			setSnapshotHeaders(w, snap)
			WriteJSON(w, http.StatusOK, p)
			return
		}
	}
	WriteError(w, NotFound("product"))
}

type refreshResponse struct {
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"runId"`
	Products  int       `json:"products"`
	Entries   int       `json:"entries"`
	Reviews   int       `json:"reviews"`
	Partial   bool      `json:"partial"`
}

// Refresh runs the pipeline synchronously. The run is detached from the
// client connection and bounded by the refresh timeout instead.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.refreshTimeout)
	defer cancel()

	res, err := h.refresher.Run(ctx)
	if errors.Is(err, pipeline.ErrRefreshInProgress) {
		WriteError(w, Conflict("a refresh is already running", err))
		return
	}
	if err != nil {
		WriteError(w, Internal(err))
		return
	}
	WriteJSON(w, http.StatusOK, refreshResponse{
		Success:   true,
		Timestamp: res.GeneratedAt,
		RunID:     res.RunID,
		Products:  res.Products,
		Entries:   res.Entries,
		Reviews:   res.Reviews,
		Partial:   res.Partial,
	})
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > 200 {
			WriteError(w, InvalidInput("invalid limit parameter: "+s))
			return
		}
		limit = v
	}
	runs, err := h.runs.Recent(r.Context(), limit)
	if err != nil {
		WriteError(w, Internal(err))
		return
	}
	if runs == nil {
		runs = []model.RefreshRun{}
	}
	WriteJSON(w, http.StatusOK, runs)
}

func (h *Handler) snapshot(ctx context.Context, mode model.SnapshotMode) (model.Snapshot, error) {
	snap, err := h.store.Get(ctx, cache.Key(h.keyPrefix, mode))
	switch {
	case errors.Is(err, cache.ErrNotPrimed):
		observability.CacheReadsTotal.WithLabelValues(string(mode), "not_primed").Inc()
		return model.Snapshot{}, NotPrimed()
	case err != nil:
		observability.CacheReadsTotal.WithLabelValues(string(mode), "error").Inc()
		return model.Snapshot{}, Internal(err)
	}
	observability.CacheReadsTotal.WithLabelValues(string(mode), "hit").Inc()
	return snap, nil
}

func setSnapshotHeaders(w http.ResponseWriter, snap model.Snapshot) {
	w.Header().Set("X-Catalog-Run-ID", snap.RunID)
	w.Header().Set("X-Catalog-Generated-At", snap.GeneratedAt.UTC().Format(time.RFC3339))
	w.Header().Set("X-Catalog-Partial", strconv.FormatBool(snap.Partial))
}
