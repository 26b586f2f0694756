package crawler

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// flexString accepts a JSON string or number and keeps its textual form.
// Upstream ids and dates arrive as either depending on the endpoint.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// rawNode is one entry of the folder-list tree.
type rawNode struct {
	rawProduct
	Size     *int        `json:"size"`
	Children []rawNode   `json:"children"`
	Activity *rawProduct `json:"activity"`
}

// rawItem is one entry of a folder's item list: either a bare product record
// or one wrapped as {"activity": {...}}.
type rawItem struct {
	rawProduct
	Activity *rawProduct `json:"activity"`
}

type rawItemsResponse struct {
	Items []rawItem `json:"items"`
}

type rawMoney struct {
	Amount   decimal.NullDecimal `json:"amount"`
	Currency string              `json:"currency"`
}

type rawDerived struct {
	Name     string `json:"name"`
	CleanURL string `json:"cleanUrl"`
	URL      string `json:"url"`
}

type rawPhoto struct {
	OriginalURL string       `json:"originalUrl"`
	CleanURL    string       `json:"cleanUrl"`
	Derived     []rawDerived `json:"derived"`
}

type rawGooglePlace struct {
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type rawLocationCode struct {
	Location string `json:"location"`
}

type rawProduct struct {
	ID                    flexString       `json:"id"`
	Title                 string           `json:"title"`
	Excerpt               string           `json:"excerpt"`
	Description           string           `json:"description"`
	NextDefaultPriceMoney *rawMoney        `json:"nextDefaultPriceMoney"`
	DurationWeeks         int              `json:"durationWeeks"`
	DurationDays          int              `json:"durationDays"`
	DurationHours         int              `json:"durationHours"`
	KeyPhoto              *rawPhoto        `json:"keyPhoto"`
	Photos                []rawPhoto       `json:"photos"`
	GooglePlace           *rawGooglePlace  `json:"googlePlace"`
	LocationCode          *rawLocationCode `json:"locationCode"`
}

// looksLikeProduct reports whether a tree entry without an activity wrapper
// carries product fields rather than folder fields.
func (p rawProduct) looksLikeProduct() bool {
	return p.NextDefaultPriceMoney != nil || p.KeyPhoto != nil || len(p.Photos) > 0 ||
		p.DurationWeeks > 0 || p.DurationDays > 0 || p.DurationHours > 0
}

type rawAvailability struct {
	Date              flexString `json:"date"`
	LocalizedDate     string     `json:"localizedDate"`
	StartTime         flexString `json:"startTime"`
	AvailabilityCount int        `json:"availabilityCount"`
	SoldOut           bool       `json:"soldOut"`
}

type rawRate struct {
	Code string          `json:"code"`
	Rate decimal.Decimal `json:"rate"`
}

type rawReviewUser struct {
	ID        flexString `json:"id"`
	Nickname  string     `json:"nickname"`
	FullName  string     `json:"fullName"`
	Country   string     `json:"country"`
	AvatarURL string     `json:"avatarUrl"`
}

type rawReview struct {
	ID           flexString     `json:"id"`
	Title        string         `json:"title"`
	Body         string         `json:"body"`
	Text         string         `json:"text"`
	Rating       float64        `json:"rating"`
	Language     string         `json:"language"`
	Date         flexString     `json:"date"`
	HelpfulVotes int            `json:"helpfulVotes"`
	ReviewURL    string         `json:"reviewUrl"`
	Author       string         `json:"author"`
	User         *rawReviewUser `json:"user"`
}

type rawReviewsResponse struct {
	Items []rawReview `json:"items"`
}
