package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

type Config struct {
	UpstreamBaseURL   string
	UpstreamAccessKey string
	UpstreamSecretKey string
	UpstreamTimeout   time.Duration
	UpstreamRPS       float64

	Lang            string
	BaseCurrency    string
	PriceCurrencies []string
	SkipFolders     []string

	HydrateConcurrency     int
	AvailabilityChunkSize  int
	AvailabilityMaxRetries int
	AvailabilityRetryDelay time.Duration
	AvailabilityWindowDays int
	FetchReviews           bool

	RefreshTimeout  time.Duration
	RefreshInterval time.Duration

	RedisURL       string
	CacheKeyPrefix string
	CacheTTL       time.Duration

	DatabaseURL string

	KafkaBrokers []string
	KafkaTopic   string

	Port        string
	MetricsPort string
	LogLevel    string
	LogFormat   string
}

func Load() (*Config, error) {
	// .env from the project root first, then the current directory
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load()

	cfg := &Config{
		UpstreamBaseURL:   getEnv("UPSTREAM_BASE_URL", "https://api.bokun.io"),
		UpstreamAccessKey: os.Getenv("UPSTREAM_ACCESS_KEY"),
		UpstreamSecretKey: os.Getenv("UPSTREAM_SECRET_KEY"),

		Lang:            getEnv("CATALOG_LANG", "EN"),
		BaseCurrency:    strings.ToUpper(getEnv("BASE_CURRENCY", "AED")),
		PriceCurrencies: SplitList(getEnv("PRICE_CURRENCIES", "USD,EUR,GBP,SAR,QAR"), strings.ToUpper),
		SkipFolders:     SplitList(os.Getenv("SKIP_FOLDERS"), nil),

		RedisURL:       os.Getenv("REDIS_URL"),
		CacheKeyPrefix: getEnv("CACHE_KEY_PREFIX", "catalog"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		KafkaBrokers:   SplitList(os.Getenv("KAFKA_BROKERS"), nil),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "catalog.refreshed"),

		Port:        getEnv("PORT", "8080"),
		MetricsPort: getEnv("METRICS_PORT", "9090"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.UpstreamTimeout, err = getDuration("UPSTREAM_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.UpstreamRPS, err = getFloat("UPSTREAM_RPS", 10); err != nil {
		return nil, err
	}
	if cfg.HydrateConcurrency, err = getInt("HYDRATE_CONCURRENCY", 8); err != nil {
		return nil, err
	}
	if cfg.AvailabilityChunkSize, err = getInt("AVAILABILITY_CHUNK_SIZE", 8); err != nil {
		return nil, err
	}
	if cfg.AvailabilityMaxRetries, err = getInt("AVAILABILITY_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.AvailabilityRetryDelay, err = getDuration("AVAILABILITY_RETRY_DELAY", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.AvailabilityWindowDays, err = getInt("AVAILABILITY_WINDOW_DAYS", 365); err != nil {
		return nil, err
	}
	if cfg.RefreshTimeout, err = getDuration("REFRESH_TIMEOUT", 4*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getDuration("REFRESH_INTERVAL", 0); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.FetchReviews, err = getBool("FETCH_REVIEWS", true); err != nil {
		return nil, err
	}

	if cfg.UpstreamTimeout >= cfg.RefreshTimeout {
		return nil, errors.Errorf("UPSTREAM_TIMEOUT (%s) must be shorter than REFRESH_TIMEOUT (%s)", cfg.UpstreamTimeout, cfg.RefreshTimeout)
	}
	if cfg.HydrateConcurrency < 1 || cfg.AvailabilityChunkSize < 1 {
		return nil, errors.New("HYDRATE_CONCURRENCY and AVAILABILITY_CHUNK_SIZE must be at least 1")
	}
	if cfg.AvailabilityMaxRetries < 0 {
		return nil, errors.New("AVAILABILITY_MAX_RETRIES must not be negative")
	}

	return cfg, nil
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getInt(k string, d int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s %q", k, v)
	}
	return n, nil
}

func getFloat(k string, d float64) (float64, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s %q", k, v)
	}
	return f, nil
}

func getBool(k string, d bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, "invalid %s %q", k, v)
	}
	return b, nil
}

func getDuration(k string, d time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	dur, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s %q", k, v)
	}
	return dur, nil
}

func SplitList(v string, norm func(string) string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if norm != nil {
			part = norm(part)
		}
		out = append(out, part)
	}
	return out
}
