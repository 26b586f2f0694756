package crawler

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"tourcatalog/internal/model"
)

func TestFetchDetails(t *testing.T) {
	client := newFakeClient(map[string]string{
		"/product/1": `{"id": 1, "title": "Dune Bash", "nextDefaultPriceMoney": {"amount": 180, "currency": "AED"}}`,
		"/product/2": `{"activity": {"id": 2, "title": "Camel Ride"}}`,
	})
	client.failFirst["/product/2"] = 1

	got := NewDetailFetcher(client).FetchDetails(context.Background(), []string{"1", "2", "3"},
		DetailOptions{Currency: "AED", Lang: "EN", ChunkSize: 2, MaxRetries: 1, Sleep: noSleep})

	if len(got) != 2 {
		t.Fatalf("Expected 2 detailed products, got %d", len(got))
	}
	if !got["1"].BasePrice.Valid || !got["1"].BasePrice.Decimal.Equal(decimal.NewFromInt(180)) {
		t.Errorf("Unexpected price for 1: %v", got["1"].BasePrice)
	}
	if got["2"].Title != "Camel Ride" {
		t.Errorf("Expected wrapped detail record, got %+v", got["2"])
	}
}

func TestMergeDetails_KeepsListingFields(t *testing.T) {
	listed := model.ProductSummary{
		ID: "1", Title: "Dune Bash", Summary: "From listing", Location: "Dubai", DurationDays: 1,
		KeyPhoto: &model.Photo{CleanURL: "k.jpg"},
	}
	detailed := model.ProductSummary{
		ID: "1", Title: "Dune Bash Deluxe",
		BasePrice:    decimal.NewNullDecimal(decimal.NewFromInt(200)),
		BaseCurrency: "AED",
	}

	got := MergeDetails(listed, detailed)
	if got.Title != "Dune Bash Deluxe" || !got.BasePrice.Valid {
		t.Errorf("Expected detail fields to win, got %+v", got)
	}
	if got.Summary != "From listing" || got.Location != "Dubai" || got.KeyPhoto == nil || got.DurationDays != 1 {
		t.Errorf("Expected listing fields kept, got %+v", got)
	}
}
