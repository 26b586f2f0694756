package crawler

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"tourcatalog/internal/logging"
	"tourcatalog/internal/model"
	"tourcatalog/internal/retry"
)

type DetailOptions struct {
	Currency   string
	Lang       string
	ChunkSize  int
	MaxRetries int
	Backoff    retry.Backoff
	Sleep      retry.Sleeper
}

type DetailFetcher struct {
	client CatalogClient
}

func NewDetailFetcher(client CatalogClient) *DetailFetcher {
	return &DetailFetcher{client: client}
}

// FetchDetails loads the full record of each product and returns the ones
// that could be fetched, keyed by id.
func (d *DetailFetcher) FetchDetails(ctx context.Context, ids []string, opts DetailOptions) map[string]model.ProductSummary {
	results := make([]*model.ProductSummary, len(ids))
	policy := retry.Policy{MaxRetries: opts.MaxRetries, Backoff: opts.Backoff, Sleep: opts.Sleep}

	runChunked(ctx, len(ids), opts.ChunkSize, func(ctx context.Context, i int) {
		p, err := retry.DoWithResult(ctx, policy, func(int) (model.ProductSummary, error) {
			return d.FetchProduct(ctx, ids[i], opts.Currency, opts.Lang)
		})
		if err != nil {
			logging.Warn("product details unavailable", zap.String("product_id", ids[i]), zap.Error(err))
			return
		}
		results[i] = &p
	})

	out := make(map[string]model.ProductSummary, len(ids))
	for _, p := range results {
		if p != nil {
			out[p.ID] = *p
		}
	}
	return out
}

func (d *DetailFetcher) FetchProduct(ctx context.Context, id, currency, lang string) (model.ProductSummary, error) {
	q := url.Values{}
	if currency != "" {
		q.Set("currency", currency)
	}
	if lang != "" {
		q.Set("lang", lang)
	}
	path := fmt.Sprintf("/product/%s", url.PathEscape(id))
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	b, err := d.client.Get(ctx, path)
	if err != nil {
		return model.ProductSummary{}, err
	}
	return parseProduct(b)
}

// MergeDetails prefers the detailed record but keeps listing fields the
// detail endpoint left empty.
func MergeDetails(listed, detailed model.ProductSummary) model.ProductSummary {
	out := detailed
	out.ID = listed.ID
	if out.Title == "" {
		out.Title, out.Slug = listed.Title, listed.Slug
	}
	if out.Summary == "" {
		out.Summary = listed.Summary
	}
	if out.KeyPhoto == nil {
		out.KeyPhoto = listed.KeyPhoto
	}
	if len(out.Photos) == 0 {
		out.Photos = listed.Photos
	}
	if out.Location == "" {
		out.Location = listed.Location
	}
	if !out.BasePrice.Valid {
		out.BasePrice = listed.BasePrice
		out.BaseCurrency = listed.BaseCurrency
	}
	if out.DurationWeeks == 0 && out.DurationDays == 0 && out.DurationHours == 0 {
		out.DurationWeeks, out.DurationDays, out.DurationHours = listed.DurationWeeks, listed.DurationDays, listed.DurationHours
	}
	return out
}
