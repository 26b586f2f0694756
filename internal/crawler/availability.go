package crawler

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"tourcatalog/internal/logging"
	"tourcatalog/internal/model"
	"tourcatalog/internal/observability"
	"tourcatalog/internal/retry"
)

const dateLayout = "2006-01-02"

type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange covers today and the following days.
func NewDateRange(today time.Time, days int) DateRange {
	return DateRange{Start: today, End: today.AddDate(0, 0, days)}
}

type AvailabilityOptions struct {
	ChunkSize  int
	MaxRetries int
	Backoff    retry.Backoff
	// Sleep defaults to a real timer; tests inject a no-op.
	Sleep retry.Sleeper
}

func (o AvailabilityOptions) policy() retry.Policy {
	return retry.Policy{MaxRetries: o.MaxRetries, Backoff: o.Backoff, Sleep: o.Sleep}
}

type AvailabilityFetcher struct {
	client CatalogClient
}

func NewAvailabilityFetcher(client CatalogClient) *AvailabilityFetcher {
	return &AvailabilityFetcher{client: client}
}

// FetchAvailability fetches the calendar of every product in r. Products whose
// fetch keeps failing after the retries, or that have no dates, are left out
// of the result; they never abort the call.
func (a *AvailabilityFetcher) FetchAvailability(ctx context.Context, products []model.ProductSummary, r DateRange, opts AvailabilityOptions) map[string][]model.AvailabilityEntry {
	results := make([][]model.AvailabilityEntry, len(products))
	policy := opts.policy()

	processed := runChunked(ctx, len(products), opts.ChunkSize, func(ctx context.Context, i int) {
		id := products[i].ID
		dates, err := retry.DoWithResult(ctx, policy, func(attempt int) ([]model.AvailabilityEntry, error) {
			if attempt > 0 {
				logging.Debug("retrying availability", zap.String("product_id", id), zap.Int("attempt", attempt))
			}
			return a.fetchOne(ctx, id, r)
		})
		if err != nil {
			observability.AvailabilityDroppedTotal.Inc()
			logging.Warn("dropping product availability", zap.String("product_id", id), zap.Error(err))
			return
		}
		results[i] = dates
	})
	if processed < len(products) {
		logging.Warn("availability fetch interrupted",
			zap.Int("processed", processed), zap.Int("total", len(products)), zap.Error(ctx.Err()))
	}

	out := make(map[string][]model.AvailabilityEntry, len(products))
	for i, dates := range results {
		if len(dates) == 0 {
			continue
		}
		out[products[i].ID] = dates
	}
	return out
}

func (a *AvailabilityFetcher) fetchOne(ctx context.Context, id string, r DateRange) ([]model.AvailabilityEntry, error) {
	q := url.Values{}
	q.Set("start", r.Start.Format(dateLayout))
	q.Set("end", r.End.Format(dateLayout))
	q.Set("includeSoldOut", "false")
	path := fmt.Sprintf("/product/%s/availability?%s", url.PathEscape(id), q.Encode())

	b, err := a.client.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return parseAvailability(b)
}
