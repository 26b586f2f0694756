package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/time/rate"

	"tourcatalog/internal/observability"
)

// ErrUpstreamUnavailable marks a single upstream call that failed or
// returned a non-success status.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// CatalogClient executes authenticated requests against the upstream catalog
// API and returns the raw JSON body. It does not retry or cache.
type CatalogClient interface {
	Get(ctx context.Context, path string) ([]byte, error)
}

// Signer adds authentication headers to an outgoing request. path includes
// the query string.
type Signer interface {
	Sign(req *http.Request, method, path string) error
}

type HTTPClient struct {
	baseURL     string
	httpClient  *http.Client
	signer      Signer
	rateLimiter *rate.Limiter
	callTimeout time.Duration
}

type HTTPClientOptions struct {
	BaseURL string
	Signer  Signer
	// CallTimeout bounds every single request; it should be shorter than the
	// budget of the whole refresh run.
	CallTimeout time.Duration
	// RPS throttles outgoing requests; zero disables throttling.
	RPS float64
}

func NewHTTPClient(opts HTTPClientOptions) *HTTPClient {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), int(opts.RPS)+1)
	}
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		signer:      opts.Signer,
		rateLimiter: limiter,
		callTimeout: timeout,
	}
}

func (c *HTTPClient) Get(ctx context.Context, path string) ([]byte, error) {
	const method = http.MethodGet
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter")
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "create request for %s", path)
	}
	req.Header.Set("Accept", "application/json")
	if c.signer != nil {
		if err := c.signer.Sign(req, method, path); err != nil {
			return nil, errors.Wrap(err, "sign request")
		}
	}

	endpoint := endpointLabel(path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.UpstreamRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, errors.Wrapf(ErrUpstreamUnavailable, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	observability.UpstreamRequestsTotal.WithLabelValues(endpoint, fmt.Sprint(resp.StatusCode)).Inc()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(ErrUpstreamUnavailable, "read %s: %v", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(ErrUpstreamUnavailable, "status %d for %s %s: %s", resp.StatusCode, method, path, truncate(string(b), 200))
	}
	return b, nil
}

// endpointLabel collapses ids out of a path so metrics keep a bounded label set.
func endpointLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if i > 0 && p != "availability" && p != "reviews" {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
