package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"tourcatalog/internal/model"
)

type RedisStore struct {
	Client *redis.Client
	// TTL of zero keeps snapshots until they are overwritten.
	TTL time.Duration
}

// NewRedisStore accepts either a redis:// URL or a bare host:port address.
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts := &redis.Options{Addr: url}
	if strings.Contains(url, "://") {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, errors.Wrap(err, "parse redis url")
		}
		opts = parsed
	}
	return &RedisStore{Client: redis.NewClient(opts), TTL: ttl}, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.Client.Close()
}

func (s *RedisStore) Put(ctx context.Context, key string, snap model.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	if err := s.Client.Set(ctx, key, b, s.TTL).Err(); err != nil {
		return errors.Wrapf(err, "store snapshot %s", key)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (model.Snapshot, error) {
	val, err := s.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Snapshot{}, ErrNotPrimed
	}
	if err != nil {
		return model.Snapshot{}, errors.Wrapf(err, "load snapshot %s", key)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return model.Snapshot{}, errors.Wrapf(err, "decode snapshot %s", key)
	}
	return snap, nil
}
