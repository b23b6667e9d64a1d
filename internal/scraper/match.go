package scraper

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	domain "github.com/cardwatch/cardwatch/pkg/types"
)

// diacriticFold strips combining marks after NFD decomposition, so "é" and
// "e" compare equal — titles are scraped from shops across locales that
// spell the same card name with and without accents.
var diacriticFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeForMatch folds extracted candidate titles (and configured search
// phrases) to a comparable form: lowercased, accent-stripped, whitespace
// collapsed to single spaces.
func normalizeForMatch(s string) string {
	folded, _, err := transform.String(diacriticFold, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

// matchesSearch applies the match policy: every phrase must appear as a
// substring of title, no excluded phrase may appear, and (for products
// belonging to a set) the generic-set-protection excludes derived from
// catalog are folded in automatically.
func matchesSearch(title string, product domain.ResolvedProduct, catalog domain.SeriesCatalog) bool {
	normTitle := normalizeForMatch(title)

	for _, phrase := range product.ResolvedSearch.Phrases {
		if !strings.Contains(normTitle, normalizeForMatch(phrase)) {
			return false
		}
	}

	excludes := product.ResolvedSearch.Exclude
	if product.ProductSetID != "" {
		excludes = append(append([]string{}, excludes...), catalog.GenericSetExcludes(product.ProductSetID)...)
	}
	for _, exclude := range excludes {
		if strings.Contains(normTitle, normalizeForMatch(exclude)) {
			return false
		}
	}

	return true
}

// titleFromSlug derives a fallback title from a product URL's final path
// segment, for shops that truncate the rendered title on the search page.
func titleFromSlug(productURL string) string {
	path := productURL
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}
	path = strings.TrimRight(path, "/")
	slash := strings.LastIndex(path, "/")
	slug := path
	if slash >= 0 {
		slug = path[slash+1:]
	}
	if dot := strings.LastIndex(slug, "."); dot > 0 {
		slug = slug[:dot]
	}
	return strings.ReplaceAll(slug, "-", " ")
}
