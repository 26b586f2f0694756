package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"

	"tourcatalog/internal/cache"
	"tourcatalog/internal/model"
	"tourcatalog/internal/pipeline"
)

type mockRefresher struct {
	runFunc func(ctx context.Context) (pipeline.Result, error)
}

func (m *mockRefresher) Run(ctx context.Context) (pipeline.Result, error) {
	if m.runFunc != nil {
		return m.runFunc(ctx)
	}
	return pipeline.Result{}, nil
}

type mockRuns struct {
	limit int
}

func (m *mockRuns) Recent(_ context.Context, limit int) ([]model.RefreshRun, error) {
	m.limit = limit
	return nil, nil
}

type failingStore struct{}

func (failingStore) Put(context.Context, string, model.Snapshot) error {
	return errors.New("connection refused")
}

func (failingStore) Get(context.Context, string) (model.Snapshot, error) {
	return model.Snapshot{}, errors.New("connection refused")
}

func primedStore(t *testing.T) *cache.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := cache.NewMemoryStore()
	generated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	dune := model.ProductSummary{ID: "10", Title: "Dune Bash", Slug: "dune-bash"}

	err := store.Put(ctx, cache.Key("", model.ModeStandard), model.Snapshot{
		Mode: model.ModeStandard, RunID: "run-1", GeneratedAt: generated, Partial: true,
		Tree: []model.Node{
			model.FolderEntry(model.FolderNode{ID: "1", Title: "Desert", Children: []model.Node{model.ProductEntry(dune)}}),
		},
	})
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	err = store.Put(ctx, cache.Key("", model.ModeUpcoming), model.Snapshot{
		Mode: model.ModeUpcoming, RunID: "run-1", GeneratedAt: generated,
		Entries: []model.CalendarEntry{
			{ProductSummary: dune, StartDate: "2026-03-02", EndDate: "2026-03-02", SpotsLeft: 3},
			{ProductSummary: dune, StartDate: "2026-03-04", EndDate: "2026-03-04", SpotsLeft: 1},
		},
	})
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	return store
}

func serve(h *Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestGetCatalog_NotPrimed(t *testing.T) {
	h := NewHandler(cache.NewMemoryStore(), &mockRefresher{}, Options{})

	for _, target := range []string{"/catalog", "/catalog?mode=upcoming", "/catalog/products/x"} {
		rec := serve(h, http.MethodGet, target)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected 503, got %d", target, rec.Code)
		}
		var body ErrorResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Code != CodeNotPrimed {
			t.Errorf("%s: expected NOT_PRIMED body, got %+v (%v)", target, body, err)
		}
	}
}

func TestGetCatalog_Standard(t *testing.T) {
	h := NewHandler(primedStore(t), &mockRefresher{}, Options{})

	rec := serve(h, http.MethodGet, "/catalog")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Catalog-Run-ID") != "run-1" || rec.Header().Get("X-Catalog-Partial") != "true" {
		t.Errorf("Unexpected headers: %v", rec.Header())
	}
	var tree []model.Node
	if err := json.NewDecoder(rec.Body).Decode(&tree); err != nil {
		t.Fatalf("Invalid body: %v", err)
	}
	if len(tree) != 1 || tree[0].Kind != model.KindFolder || tree[0].Folder.Children[0].Product.Slug != "dune-bash" {
		t.Errorf("Unexpected tree: %+v", tree)
	}
}

func TestGetCatalog_Upcoming(t *testing.T) {
	h := NewHandler(primedStore(t), &mockRefresher{}, Options{})

	rec := serve(h, http.MethodGet, "/catalog?mode=upcoming")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var entries []model.CalendarEntry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("Invalid body: %v", err)
	}
	if len(entries) != 2 || entries[0].StartDate != "2026-03-02" || entries[0].Slug != "dune-bash" {
		t.Errorf("Unexpected entries: %+v", entries)
	}
}

func TestGetCatalog_EmptyUpcomingIsArray(t *testing.T) {
	store := cache.NewMemoryStore()
	_ = store.Put(context.Background(), cache.Key("", model.ModeUpcoming), model.Snapshot{Mode: model.ModeUpcoming})
	h := NewHandler(store, &mockRefresher{}, Options{})

	rec := serve(h, http.MethodGet, "/catalog?mode=upcoming")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("Expected 200 with [], got %d %q", rec.Code, rec.Body.String())
	}
}

func TestGetCatalog_UnknownMode(t *testing.T) {
	h := NewHandler(primedStore(t), &mockRefresher{}, Options{})
	if rec := serve(h, http.MethodGet, "/catalog?mode=weekly"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestGetProduct(t *testing.T) {
	h := NewHandler(primedStore(t), &mockRefresher{}, Options{})

	rec := serve(h, http.MethodGet, "/catalog/products/dune-bash")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var p model.ProductSummary
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil || p.ID != "10" {
		t.Errorf("Unexpected product: %+v (%v)", p, err)
	}

	if rec := serve(h, http.MethodGet, "/catalog/products/unknown"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestRefresh(t *testing.T) {
	generated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		result     pipeline.Result
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "success",
			result:     pipeline.Result{RunID: "run-2", GeneratedAt: generated, Products: 5, Entries: 9, Partial: true},
			wantStatus: http.StatusOK,
		},
		{
			name:       "in progress",
			err:        pipeline.ErrRefreshInProgress,
			wantStatus: http.StatusConflict,
			wantCode:   CodeConflict,
		},
		{
			name:       "failure",
			err:        errors.Wrap(pipeline.ErrRootUnavailable, "refresh"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeInternal,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var hasDeadline bool
			refresher := &mockRefresher{runFunc: func(ctx context.Context) (pipeline.Result, error) {
				_, hasDeadline = ctx.Deadline()
				return tc.result, tc.err
			}}
			h := NewHandler(cache.NewMemoryStore(), refresher, Options{RefreshTimeout: time.Minute})

			rec := serve(h, http.MethodPost, "/refresh")
			if rec.Code != tc.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body)
			}
			if !hasDeadline {
				t.Error("Expected refresh to run with a deadline")
			}
			if tc.wantCode != "" {
				var body ErrorResponse
				_ = json.NewDecoder(rec.Body).Decode(&body)
				if body.Code != tc.wantCode || body.Message == "" {
					t.Errorf("Unexpected error body: %+v", body)
				}
				return
			}
			var body refreshResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("Invalid body: %v", err)
			}
			if !body.Success || body.RunID != "run-2" || body.Products != 5 || body.Entries != 9 || !body.Partial || !body.Timestamp.Equal(generated) {
				t.Errorf("Unexpected body: %+v", body)
			}
		})
	}
}

func TestRefresh_MethodNotAllowed(t *testing.T) {
	h := NewHandler(cache.NewMemoryStore(), &mockRefresher{}, Options{})
	if rec := serve(h, http.MethodGet, "/refresh"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		store      cache.Store
		wantStatus int
		wantBody   []string
	}{
		{"not primed", cache.NewMemoryStore(), http.StatusOK, []string{`"primed":false`, `"status":"ok"`}},
		{"primed", primedStore(t), http.StatusOK, []string{`"primed":true`}},
		{"cache down", failingStore{}, http.StatusServiceUnavailable, []string{`"status":"degraded"`, `"cache":"unavailable"`}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(NewHandler(tc.store, &mockRefresher{}, Options{}), http.MethodGet, "/health")
			if rec.Code != tc.wantStatus {
				t.Errorf("Expected %d, got %d", tc.wantStatus, rec.Code)
			}
			for _, want := range tc.wantBody {
				if !strings.Contains(rec.Body.String(), want) {
					t.Errorf("Expected %s in %s", want, rec.Body)
				}
			}
		})
	}
}

func TestGetCatalog_Reviews(t *testing.T) {
	store := cache.NewMemoryStore()
	h := NewHandler(store, &mockRefresher{}, Options{})
	if rec := serve(h, http.MethodGet, "/catalog?mode=reviews"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 before reviews are stored, got %d", rec.Code)
	}

	err := store.Put(context.Background(), cache.Key("", model.ModeReviews), model.Snapshot{
		Mode: model.ModeReviews, RunID: "run-3",
		Reviews: []model.Review{{ID: "1", ProductID: "10", ProductTitle: "Dune Bash", Slug: "fun", Rating: 5}},
	})
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	rec := serve(h, http.MethodGet, "/catalog?mode=reviews")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Catalog-Run-ID") != "run-3" {
		t.Fatalf("Unexpected response: %d %v", rec.Code, rec.Header())
	}
	var reviews []model.Review
	if err := json.NewDecoder(rec.Body).Decode(&reviews); err != nil || len(reviews) != 1 || reviews[0].ProductTitle != "Dune Bash" {
		t.Errorf("Unexpected reviews: %+v (%v)", reviews, err)
	}
}

func TestListRuns(t *testing.T) {
	h := NewHandler(cache.NewMemoryStore(), &mockRefresher{}, Options{})
	if rec := serve(h, http.MethodGet, "/refresh/runs"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without run history, got %d", rec.Code)
	}

	runs := &mockRuns{}
	h = NewHandler(cache.NewMemoryStore(), &mockRefresher{}, Options{Runs: runs})
	rec := serve(h, http.MethodGet, "/refresh/runs?limit=5")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" || runs.limit != 5 {
		t.Errorf("Unexpected response: %d %s limit=%d", rec.Code, rec.Body, runs.limit)
	}
	if rec := serve(h, http.MethodGet, "/refresh/runs?limit=abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}
