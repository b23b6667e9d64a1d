package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domain "github.com/cardwatch/cardwatch/pkg/types"
)

func TestNormalizeForMatch_AccentAndWhitespace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pokemon scarlet & violet", normalizeForMatch("  Pokémon   Scarlet & Violet  "))
}

func TestMatchesSearch_AllPhrasesRequired(t *testing.T) {
	t.Parallel()

	product := domain.ResolvedProduct{
		ResolvedSearch: domain.SearchConfig{Phrases: []string{"charizard", "booster box"}},
	}
	assert.True(t, matchesSearch("Charizard EX Booster Box", product, domain.SeriesCatalog{}))
	assert.False(t, matchesSearch("Charizard EX Single Pack", product, domain.SeriesCatalog{}))
}

func TestMatchesSearch_ExcludeRejects(t *testing.T) {
	t.Parallel()

	product := domain.ResolvedProduct{
		ResolvedSearch: domain.SearchConfig{Phrases: []string{"charizard"}, Exclude: []string{"jumbo"}},
	}
	assert.False(t, matchesSearch("Charizard Jumbo Card", product, domain.SeriesCatalog{}))
}

func TestMatchesSearch_GenericSetProtection(t *testing.T) {
	t.Parallel()

	product := domain.Product{ID: "paldea-evolved-booster", ProductSetID: "set-generic"}
	resolved := domain.ResolvedProduct{
		Product:        product,
		ResolvedSearch: domain.SearchConfig{Phrases: []string{"paldea evolved"}},
	}
	catalog := domain.SeriesCatalog{
		Series: map[string]domain.Series{"series-pe": {ID: "series-pe", Name: "Paldea Evolved"}},
		Sets: map[string]domain.ProductSet{
			"set-tg":      {ID: "set-tg", Name: "Paldea Evolved Trainer Gallery", SeriesID: "series-pe"},
			"set-generic": {ID: "set-generic", Name: "Paldea Evolved", SeriesID: "series-pe"},
		},
	}

	assert.True(t, matchesSearch("Paldea Evolved Booster Box", resolved, catalog))
	assert.False(t, matchesSearch("Paldea Evolved Trainer Gallery Booster Box", resolved, catalog))
}

func TestTitleFromSlug(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "charizard ex booster box", titleFromSlug("https://shop.example.com/products/charizard-ex-booster-box.html"))
	assert.Equal(t, "charizard ex", titleFromSlug("/p/charizard-ex?ref=search"))
}
