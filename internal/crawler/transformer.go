package crawler

import (
	"regexp"
	"strings"

	"tourcatalog/internal/model"
)

const (
	PlaceholderImage  = "https://via.placeholder.com/600x400?text=No+Image"
	PlaceholderAvatar = "https://via.placeholder.com/150"
)

var (
	quoteReplacer = strings.NewReplacer("'", "-", "’", "-", "‘", "-", "\"", "-", "“", "-", "”", "-")
	whitespaceRe  = regexp.MustCompile(`[\s\p{Zs}]+`)
	nonSlugRe     = regexp.MustCompile(`[^a-z0-9-]+`)
	dashesRe      = regexp.MustCompile(`-{2,}`)
)

// Slugify builds the URL slug of a product title. An empty result means the
// product cannot be linked.
func Slugify(title string) string {
	s := strings.TrimSpace(strings.ToLower(title))
	if s == "" {
		return ""
	}
	s = quoteReplacer.Replace(s)
	s = whitespaceRe.ReplaceAllString(s, "-")
	s = nonSlugRe.ReplaceAllString(s, "")
	return dashesRe.ReplaceAllString(s, "-")
}

// BestImage picks the display image of a product: the "large" rendition of
// the key photo, then "preview", then the clean or original URL resized to
// 600px. The first gallery photo stands in for a missing key photo.
func BestImage(p model.ProductSummary) string {
	photo := p.KeyPhoto
	if photo == nil && len(p.Photos) > 0 {
		photo = &p.Photos[0]
	}
	if photo == nil {
		return PlaceholderImage
	}
	for _, name := range []string{"large", "preview"} {
		for _, d := range photo.Derived {
			if d.Name == name && d.CleanURL != "" {
				return d.CleanURL
			}
		}
	}
	base := photo.CleanURL
	if base == "" {
		base = photo.OriginalURL
	}
	if base == "" {
		return PlaceholderImage
	}
	if strings.Contains(base, "?") {
		return base + "&w=600"
	}
	return base + "?w=600"
}

// Annotate fills the derived display fields of a product.
func Annotate(p model.ProductSummary) model.ProductSummary {
	p.Slug = Slugify(p.Title)
	p.OptimizedImage = BestImage(p)
	return p
}
