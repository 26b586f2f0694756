package crawler

import (
	"testing"

	"tourcatalog/internal/model"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Ann's Tour", "ann-s-tour"},
		{"  Dubai   City Tour ", "dubai-city-tour"},
		{"Abu Dhabi: Grand Mosque & Louvre", "abu-dhabi-grand-mosque-louvre"},
		{"“Quoted” Trip", "-quoted-trip"},
		{"Hatta -- Mountain", "hatta-mountain"},
		{"", ""},
		{"   ", ""},
		{"Desert\u00a0Safari", "desert-safari"},
		{"Dhow\u2009Cruise \u3000Marina", "dhow-cruise-marina"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.title); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestSlugify_Idempotent(t *testing.T) {
	titles := []string{"Ann's Tour", "Abu Dhabi: Grand Mosque & Louvre", "  Mixed CASE  ", "a--b", "’Tis"}
	for _, title := range titles {
		once := Slugify(title)
		if twice := Slugify(once); twice != once {
			t.Errorf("Slugify not idempotent for %q: %q then %q", title, once, twice)
		}
	}
}

func TestBestImage(t *testing.T) {
	derived := []model.DerivedPhoto{{Name: "thumbnail", CleanURL: "t.jpg"}, {Name: "preview", CleanURL: "p.jpg"}, {Name: "large", CleanURL: "l.jpg"}}
	cases := []struct {
		name string
		p    model.ProductSummary
		want string
	}{
		{"large first", model.ProductSummary{KeyPhoto: &model.Photo{Derived: derived}}, "l.jpg"},
		{"preview fallback", model.ProductSummary{KeyPhoto: &model.Photo{Derived: derived[:2]}}, "p.jpg"},
		{"clean url resized", model.ProductSummary{KeyPhoto: &model.Photo{CleanURL: "https://img/x.jpg"}}, "https://img/x.jpg?w=600"},
		{"original with query", model.ProductSummary{KeyPhoto: &model.Photo{OriginalURL: "https://img/x.jpg?v=2"}}, "https://img/x.jpg?v=2&w=600"},
		{"gallery fallback", model.ProductSummary{Photos: []model.Photo{{CleanURL: "https://img/g.jpg"}}}, "https://img/g.jpg?w=600"},
		{"placeholder", model.ProductSummary{}, PlaceholderImage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BestImage(tc.p); got != tc.want {
				t.Errorf("BestImage() = %q, want %q", got, tc.want)
			}
		})
	}
}
