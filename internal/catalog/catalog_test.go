package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_ShopsAndProducts(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "shops/cardshop.yaml", `
id: cardshop
name: Card Shop
baseUrl: https://cardshop.example.com
searchUrl: https://cardshop.example.com/search?q={query}
engine: static-html
fetchingTier: fast
antiBot:
  maxConcurrency: 2
  requestDelayMs: 250
`)

	writeFile(t, dir, "products/pokemon.yaml", `
productTypes:
  - id: booster-box
    name: Booster Box
    search:
      phrases: ["booster box"]
products:
  - id: scarlet-violet-box
    name: Scarlet & Violet Booster Box
    productSetId: set-sv
    productTypeId: booster-box
`)

	writeFile(t, dir, "series.yaml", `
series:
  - id: series-sv
    name: Scarlet & Violet
productSets:
  - id: set-sv
    name: Scarlet & Violet
    seriesId: series-sv
`)

	c, err := Load(dir)
	require.NoError(t, err)

	require.Len(t, c.Shops, 1)
	assert.Equal(t, "cardshop", c.Shops[0].ID)
	assert.Equal(t, 2, c.Shops[0].AntiBot.MaxConcurrency)

	require.Len(t, c.Products, 1)
	assert.Equal(t, "scarlet-violet-box", c.Products[0].ID)

	require.Contains(t, c.ProductTypes, "booster-box")
	assert.Equal(t, "Booster Box", c.ProductTypes["booster-box"].Name)

	resolved := c.ResolvedProducts()
	require.Len(t, resolved, 1)
	assert.Equal(t, []string{"booster box"}, resolved[0].ResolvedSearch.Phrases)

	excludes := c.Series.GenericSetExcludes("set-sv")
	assert.Empty(t, excludes)
}

func TestLoad_MissingSeriesFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shops/cardshop.yaml", "id: cardshop\nname: Card Shop\n")

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, c.Series.Sets)
	assert.Empty(t, c.Series.Series)
}

func TestLoad_DisabledEntriesExcludedFromResolvedAndEnabled(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "shops/a.yaml", "id: a\nname: A\n")
	writeFile(t, dir, "shops/b.yaml", "id: b\nname: B\ndisabled: true\n")
	writeFile(t, dir, "products/p.yaml", `
products:
  - id: active-product
    name: Active
  - id: disabled-product
    name: Disabled
    disabled: true
`)

	c, err := Load(dir)
	require.NoError(t, err)

	require.Len(t, c.EnabledShops(), 1)
	assert.Equal(t, "a", c.EnabledShops()[0].ID)

	resolved := c.ResolvedProducts()
	require.Len(t, resolved, 1)
	assert.Equal(t, "active-product", resolved[0].ID)
}

func TestLoad_MalformedFileAbortsLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shops/broken.yaml", "id: [this is not, a shop")

	_, err := Load(dir)
	assert.Error(t, err)
}
