package cache

import (
	"context"
	"sync"

	"tourcatalog/internal/model"
)

// MemoryStore keeps snapshots in process. It is used when no Redis URL is
// configured.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]model.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]model.Snapshot)}
}

func (s *MemoryStore) Put(ctx context.Context, key string, snap model.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.snaps[key] = snap
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}
	s.mu.RLock()
	snap, ok := s.snaps[key]
	s.mu.RUnlock()
	if !ok {
		return model.Snapshot{}, ErrNotPrimed
	}
	return snap, nil
}
