// Package cache holds the materialized catalog snapshots served by the read
// path.
package cache

import (
	"context"

	"github.com/go-faster/errors"

	"tourcatalog/internal/model"
)

// ErrNotPrimed means no refresh has completed yet for the requested key.
var ErrNotPrimed = errors.New("catalog cache not primed")

// Store keeps the latest snapshot per key. Put replaces the whole value; a
// reader sees either the previous snapshot or the new one.
type Store interface {
	Put(ctx context.Context, key string, snap model.Snapshot) error
	Get(ctx context.Context, key string) (model.Snapshot, error)
}

// Key names the snapshot of a mode, e.g. "catalog:standard".
func Key(prefix string, mode model.SnapshotMode) string {
	if prefix == "" {
		prefix = "catalog"
	}
	return prefix + ":" + string(mode)
}
