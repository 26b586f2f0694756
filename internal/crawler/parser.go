package crawler

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tourcatalog/internal/logging"
	"tourcatalog/internal/model"
)

var validate = validator.New()

// PlainText extracts the readable text of an HTML fragment, one block per line.
func PlainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var content []string
	doc.Find("h1, h2, h3, p, li").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			content = append(content, text)
		}
	})
	if len(content) == 0 {
		return strings.TrimSpace(doc.Text())
	}
	return strings.Join(content, "\n")
}

// normalizeProduct turns one upstream product record into a ProductSummary.
// Records failing validation are reported with ok=false.
func normalizeProduct(p rawProduct) (model.ProductSummary, bool) {
	summary := p.Excerpt
	if strings.TrimSpace(summary) == "" {
		summary = p.Description
	}

	out := model.ProductSummary{
		ID:            string(p.ID),
		Title:         strings.TrimSpace(p.Title),
		Summary:       PlainText(summary),
		DurationWeeks: p.DurationWeeks,
		DurationDays:  p.DurationDays,
		DurationHours: p.DurationHours,
	}
	if m := p.NextDefaultPriceMoney; m != nil && m.Amount.Valid {
		out.BasePrice = m.Amount
		out.BaseCurrency = strings.ToUpper(m.Currency)
	}
	if p.KeyPhoto != nil {
		kp := convertPhoto(*p.KeyPhoto)
		out.KeyPhoto = &kp
	}
	for _, ph := range p.Photos {
		out.Photos = append(out.Photos, convertPhoto(ph))
	}
	out.Location = locationText(p)
	out.Slug = Slugify(out.Title)

	if err := validate.Struct(out); err != nil {
		logging.Warn("dropping invalid product record", zap.String("id", out.ID), zap.Error(err))
		return model.ProductSummary{}, false
	}
	return out, true
}

func convertPhoto(p rawPhoto) model.Photo {
	out := model.Photo{OriginalURL: p.OriginalURL, CleanURL: p.CleanURL}
	for _, d := range p.Derived {
		url := d.CleanURL
		if url == "" {
			url = d.URL
		}
		out.Derived = append(out.Derived, model.DerivedPhoto{Name: d.Name, CleanURL: url})
	}
	return out
}

func locationText(p rawProduct) string {
	switch {
	case p.GooglePlace != nil && p.GooglePlace.Name != "":
		return p.GooglePlace.Name
	case p.GooglePlace != nil && p.GooglePlace.City != "":
		if p.GooglePlace.Country == "" {
			return p.GooglePlace.City
		}
		return p.GooglePlace.City + ", " + p.GooglePlace.Country
	case p.LocationCode != nil:
		return p.LocationCode.Location
	}
	return ""
}

// unwrap resolves the wrapped/bare ambiguity of upstream product records.
func unwrap(bare rawProduct, wrapped *rawProduct) rawProduct {
	if wrapped != nil {
		return *wrapped
	}
	return bare
}

func parseFolderTree(b []byte) ([]model.Node, error) {
	var roots []rawNode
	if err := json.Unmarshal(b, &roots); err != nil {
		return nil, errors.Wrap(err, "decode folder tree")
	}
	return convertNodes(roots), nil
}

func convertNodes(raw []rawNode) []model.Node {
	out := make([]model.Node, 0, len(raw))
	for _, n := range raw {
		if n.Activity != nil || (n.Size == nil && len(n.Children) == 0 && n.looksLikeProduct()) {
			if p, ok := normalizeProduct(unwrap(n.rawProduct, n.Activity)); ok {
				out = append(out, model.ProductEntry(p))
			}
			continue
		}
		folder := model.FolderNode{
			ID:       string(n.ID),
			Title:    strings.TrimSpace(n.Title),
			Children: convertNodes(n.Children),
		}
		if n.Size != nil {
			folder.DeclaredSize = *n.Size
		}
		out = append(out, model.FolderEntry(folder))
	}
	return out
}

func parseItems(b []byte) ([]model.Node, error) {
	var resp rawItemsResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, errors.Wrap(err, "decode folder items")
	}
	out := make([]model.Node, 0, len(resp.Items))
	for _, item := range resp.Items {
		if p, ok := normalizeProduct(unwrap(item.rawProduct, item.Activity)); ok {
			out = append(out, model.ProductEntry(p))
		}
	}
	return out, nil
}

func parseProduct(b []byte) (model.ProductSummary, error) {
	var item rawItem
	if err := json.Unmarshal(b, &item); err != nil {
		return model.ProductSummary{}, errors.Wrap(err, "decode product")
	}
	p, ok := normalizeProduct(unwrap(item.rawProduct, item.Activity))
	if !ok {
		return model.ProductSummary{}, errors.New("invalid product record")
	}
	return p, nil
}

func parseAvailability(b []byte) ([]model.AvailabilityEntry, error) {
	var raw []rawAvailability
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, errors.Wrap(err, "decode availability")
	}
	out := make([]model.AvailabilityEntry, 0, len(raw))
	for _, r := range raw {
		if r.SoldOut {
			continue
		}
		e := model.AvailabilityEntry{
			StartTime:      string(r.StartTime),
			SpotsAvailable: r.AvailabilityCount,
		}
		date := string(r.Date)
		switch {
		case isDigits(date):
			// epoch milliseconds; the flattener derives the day
			if e.StartTime == "" {
				e.StartTime = date
			}
		case date != "":
			e.Date = date
		case r.LocalizedDate != "":
			e.Date = r.LocalizedDate
		}
		out = append(out, e)
	}
	return out, nil
}

func parseRates(b []byte, base string) (model.RateTable, error) {
	var raw []rawRate
	if err := json.Unmarshal(b, &raw); err != nil {
		return model.RateTable{}, errors.Wrap(err, "decode currency rates")
	}
	table := model.RateTable{Base: strings.ToUpper(base), Rates: make(map[string]decimal.Decimal, len(raw))}
	for _, r := range raw {
		if r.Code == "" || !r.Rate.IsPositive() {
			continue
		}
		table.Rates[strings.ToUpper(r.Code)] = r.Rate
	}
	if len(table.Rates) == 0 {
		return model.RateTable{}, errors.New("empty currency rate table")
	}
	return table, nil
}

func parseReviews(b []byte, product model.ProductSummary) ([]model.Review, error) {
	var resp rawReviewsResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, errors.Wrap(err, "decode reviews")
	}
	out := make([]model.Review, 0, len(resp.Items))
	for _, r := range resp.Items {
		out = append(out, normalizeReview(r, product))
	}
	return out, nil
}

func normalizeReview(r rawReview, product model.ProductSummary) model.Review {
	title := strings.TrimSpace(r.Title)
	text := r.Body
	if strings.TrimSpace(text) == "" {
		text = r.Text
	}
	out := model.Review{
		ID:           string(r.ID),
		ProductID:    product.ID,
		ProductTitle: product.Title,
		Title:        title,
		Text:         strings.TrimSpace(text),
		Rating:       r.Rating,
		Language:     r.Language,
		HelpfulVotes: r.HelpfulVotes,
		URL:          r.ReviewURL,
		Author: model.ReviewAuthor{
			ID:          "guest",
			DisplayName: strings.TrimSpace(r.Author),
			AvatarURL:   PlaceholderAvatar,
		},
	}
	if out.Language == "" {
		out.Language = "en"
	}

	out.Slug = Slugify(title)
	if title == "" {
		out.Slug = Slugify("Review")
	}
	if out.Slug == "" {
		out.Slug = "review-" + out.ID
	}

	date := string(r.Date)
	if isDigits(date) {
		if ms, err := strconv.ParseInt(date, 10, 64); err == nil {
			date = time.UnixMilli(ms).UTC().Format(dateLayout)
		}
	}
	out.PublishedDate = date
	if len(date) >= 7 {
		out.TravelMonth = date[:7]
	}

	if u := r.User; u != nil {
		if u.ID != "" {
			out.Author.ID = string(u.ID)
		}
		if u.Nickname != "" {
			out.Author.DisplayName = u.Nickname
		}
		out.Author.FullName = u.FullName
		out.Author.Country = u.Country
		if u.AvatarURL != "" {
			out.Author.AvatarURL = u.AvatarURL
		}
	}
	if out.Author.DisplayName == "" {
		out.Author.DisplayName = "Guest"
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
