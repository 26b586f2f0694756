package crawler

import (
	"context"

	"github.com/go-faster/errors"

	"tourcatalog/internal/model"
)

// FetchRates loads the currency rate table, quoted against base.
func FetchRates(ctx context.Context, client CatalogClient, base string) (model.RateTable, error) {
	b, err := client.Get(ctx, "/currency-rates")
	if err != nil {
		return model.RateTable{}, errors.Wrap(err, "fetch currency rates")
	}
	return parseRates(b, base)
}
