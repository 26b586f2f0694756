// Package calendar turns per-product availability into a flat, date-ordered
// list of bookable departures.
package calendar

import (
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"tourcatalog/internal/model"
)

const DateLayout = "2006-01-02"

// DefaultCutoff is the start of the day before now.
func DefaultCutoff(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// DaysToAdd is the number of days between the first and last day of a
// departure. Weeks take precedence over days; hour-based products end on the
// day they start.
func DaysToAdd(p model.ProductSummary) int {
	var n int
	switch {
	case p.DurationWeeks > 0:
		n = p.DurationWeeks*7 - 1
	case p.DurationDays > 0:
		n = p.DurationDays - 1
	}
	return max(n, 0)
}

// StartDate extracts the calendar day of an availability entry from its date,
// or failing that from its start time (RFC3339, a YYYY-MM-DD prefix or epoch
// milliseconds). ok is false when no day can be derived.
func StartDate(e model.AvailabilityEntry) (time.Time, bool) {
	if d, ok := parseDay(e.Date); ok {
		return d, true
	}
	s := strings.TrimSpace(e.StartTime)
	if s == "" {
		return time.Time{}, false
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		y, m, d := time.UnixMilli(ms).UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return parseDay(s)
}

func parseDay(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < len(DateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s[:len(DateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Flatten emits one entry per dated availability whose start is not before
// cutoff's day, sorted by start date. Entries sharing a start date keep their
// input order.
func Flatten(items []model.ProductAvailability, cutoff time.Time) []model.CalendarEntry {
	y, m, d := cutoff.Date()
	cutoffDay := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	out := make([]model.CalendarEntry, 0)
	for _, item := range items {
		span := DaysToAdd(item.Product)
		for _, a := range item.Dates {
			start, ok := StartDate(a)
			if !ok || start.Before(cutoffDay) {
				continue
			}
			out = append(out, model.CalendarEntry{
				ProductSummary: item.Product,
				StartDate:      start.Format(DateLayout),
				EndDate:        start.AddDate(0, 0, span).Format(DateLayout),
				SpotsLeft:      a.SpotsAvailable,
			})
		}
	}
	slices.SortStableFunc(out, func(a, b model.CalendarEntry) int {
		return strings.Compare(a.StartDate, b.StartDate)
	})
	return out
}

// Join pairs every product that has availability with its dates, ordered by
// product id.
func Join(products map[string]model.ProductSummary, availability map[string][]model.AvailabilityEntry) []model.ProductAvailability {
	ids := make([]string, 0, len(availability))
	for id := range availability {
		if _, ok := products[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]model.ProductAvailability, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.ProductAvailability{Product: products[id], Dates: availability[id]})
	}
	return out
}
