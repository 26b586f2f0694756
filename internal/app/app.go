// Package app wires configuration into the refresh pipeline and its optional
// backends.
package app

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"tourcatalog/internal/cache"
	"tourcatalog/internal/config"
	"tourcatalog/internal/crawler"
	"tourcatalog/internal/db"
	"tourcatalog/internal/events"
	"tourcatalog/internal/logging"
	"tourcatalog/internal/pipeline"
	"tourcatalog/internal/repository"
	"tourcatalog/internal/retry"
)

type Application struct {
	Config    *config.Config
	Store     cache.Store
	Refresher *pipeline.Refresher
	// Runs is nil when no database is configured.
	Runs *repository.RunRepository

	closers []func() error
}

// New connects the configured backends. Redis, Postgres and Kafka are each
// optional; without Redis snapshots live in process memory.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	a := &Application{Config: cfg}
	deps := pipeline.Deps{
		Client: crawler.NewHTTPClient(crawler.HTTPClientOptions{
			BaseURL:     cfg.UpstreamBaseURL,
			Signer:      crawler.HMACSigner{AccessKey: cfg.UpstreamAccessKey, SecretKey: cfg.UpstreamSecretKey},
			CallTimeout: cfg.UpstreamTimeout,
			RPS:         cfg.UpstreamRPS,
		}),
	}

	if cfg.RedisURL != "" {
		store, err := cache.NewRedisStore(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, errors.Wrap(err, "connect redis")
		}
		a.closers = append(a.closers, store.Close)
		deps.Store = store
	} else {
		logging.Warn("REDIS_URL not set, snapshots are kept in memory")
		deps.Store = cache.NewMemoryStore()
	}
	a.Store = deps.Store

	if cfg.DatabaseURL != "" {
		if err := a.connectDatabase(ctx, &deps); err != nil {
			a.Close()
			return nil, err
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, publisher.Close)
		deps.Publisher = publisher
	}

	a.Refresher = pipeline.NewRefresher(deps, pipeline.Options{
		Lang:               cfg.Lang,
		BaseCurrency:       cfg.BaseCurrency,
		PriceCurrencies:    cfg.PriceCurrencies,
		Skip:               crawler.SkipTitles(cfg.SkipFolders...),
		HydrateConcurrency: cfg.HydrateConcurrency,
		Availability: crawler.AvailabilityOptions{
			ChunkSize:  cfg.AvailabilityChunkSize,
			MaxRetries: cfg.AvailabilityMaxRetries,
			Backoff:    retry.Exponential(cfg.AvailabilityRetryDelay, 8*cfg.AvailabilityRetryDelay),
		},
		WindowDays: cfg.AvailabilityWindowDays,
		Reviews:    cfg.FetchReviews,
		KeyPrefix:  cfg.CacheKeyPrefix,
	})
	return a, nil
}

func (a *Application) connectDatabase(ctx context.Context, deps *pipeline.Deps) error {
	sqlDB, err := db.New(a.Config.DatabaseURL)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, sqlDB.Close)

	pool, err := db.NewPool(ctx, a.Config.DatabaseURL)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() error { pool.Close(); return nil })

	products := &repository.ProductRepository{DB: sqlDB}
	runs := &repository.RunRepository{DB: pool}
	if err := products.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := runs.EnsureSchema(ctx); err != nil {
		return err
	}
	deps.Archive = products
	deps.Runs = runs
	a.Runs = runs
	return nil
}

// Close releases backends in reverse order of connection.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logging.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
