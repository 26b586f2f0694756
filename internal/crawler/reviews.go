package crawler

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"tourcatalog/internal/logging"
	"tourcatalog/internal/model"
	"tourcatalog/internal/observability"
	"tourcatalog/internal/retry"
)

type ReviewOptions struct {
	ChunkSize  int
	MaxRetries int
	Backoff    retry.Backoff
	Sleep      retry.Sleeper
}

type ReviewFetcher struct {
	client CatalogClient
}

func NewReviewFetcher(client CatalogClient) *ReviewFetcher {
	return &ReviewFetcher{client: client}
}

// FetchReviews gathers the reviews of every product, in product order. A
// product whose reviews cannot be fetched contributes none. complete is false
// when ctx ended before every product was visited.
func (f *ReviewFetcher) FetchReviews(ctx context.Context, products []model.ProductSummary, opts ReviewOptions) (reviews []model.Review, complete bool) {
	results := make([][]model.Review, len(products))
	policy := retry.Policy{MaxRetries: opts.MaxRetries, Backoff: opts.Backoff, Sleep: opts.Sleep}

	processed := runChunked(ctx, len(products), opts.ChunkSize, func(ctx context.Context, i int) {
		p := products[i]
		got, err := retry.DoWithResult(ctx, policy, func(int) ([]model.Review, error) {
			return f.fetchOne(ctx, p)
		})
		if err != nil {
			observability.ReviewFetchFailuresTotal.Inc()
			logging.Warn("skipping product reviews", zap.String("product_id", p.ID), zap.Error(err))
			return
		}
		results[i] = got
	})

	reviews = []model.Review{}
	for _, r := range results {
		reviews = append(reviews, r...)
	}
	return reviews, processed == len(products) && ctx.Err() == nil
}

func (f *ReviewFetcher) fetchOne(ctx context.Context, p model.ProductSummary) ([]model.Review, error) {
	b, err := f.client.Get(ctx, fmt.Sprintf("/activity.json/%s/reviews", url.PathEscape(p.ID)))
	if err != nil {
		return nil, err
	}
	return parseReviews(b, p)
}
