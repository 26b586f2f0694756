package cache

import (
	"context"
	"testing"

	"github.com/go-faster/errors"

	"tourcatalog/internal/model"
)

func TestKey(t *testing.T) {
	if got := Key("", model.ModeStandard); got != "catalog:standard" {
		t.Errorf("Key() = %s", got)
	}
	if got := Key("staging", model.ModeUpcoming); got != "staging:upcoming" {
		t.Errorf("Key() = %s", got)
	}
}

func TestMemoryStore_NotPrimed(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), Key("", model.ModeStandard))
	if !errors.Is(err, ErrNotPrimed) {
		t.Fatalf("Expected ErrNotPrimed, got %v", err)
	}
}

func TestMemoryStore_ModesAreDistinct(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	standard := model.Snapshot{Mode: model.ModeStandard, RunID: "r1", Tree: []model.Node{
		model.ProductEntry(model.ProductSummary{ID: "1", Title: "A"}),
	}}
	upcoming := model.Snapshot{Mode: model.ModeUpcoming, RunID: "r1", Entries: []model.CalendarEntry{
		{ProductSummary: model.ProductSummary{ID: "1", Title: "A"}, StartDate: "2026-01-01", EndDate: "2026-01-01"},
	}}
	if err := s.Put(ctx, Key("", model.ModeStandard), standard); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if err := s.Put(ctx, Key("", model.ModeUpcoming), upcoming); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, err := s.Get(ctx, Key("", model.ModeStandard))
	if err != nil || got.Mode != model.ModeStandard || len(got.Tree) != 1 || len(got.Entries) != 0 {
		t.Errorf("Unexpected standard snapshot: %+v, %v", got, err)
	}
	got, err = s.Get(ctx, Key("", model.ModeUpcoming))
	if err != nil || got.Mode != model.ModeUpcoming || len(got.Entries) != 1 || len(got.Tree) != 0 {
		t.Errorf("Unexpected upcoming snapshot: %+v, %v", got, err)
	}
}

func TestMemoryStore_PutReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := Key("", model.ModeStandard)

	_ = s.Put(ctx, key, model.Snapshot{RunID: "old", Partial: true})
	_ = s.Put(ctx, key, model.Snapshot{RunID: "new"})

	got, _ := s.Get(ctx, key)
	if got.RunID != "new" || got.Partial {
		t.Errorf("Expected snapshot fully replaced, got %+v", got)
	}
}
