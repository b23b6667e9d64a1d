package scraper_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardwatch/cardwatch/internal/scraper"
	"github.com/cardwatch/cardwatch/internal/shopengine"
	domain "github.com/cardwatch/cardwatch/pkg/types"
)

func articleSelectors() domain.SearchPageSelectors {
	return domain.SearchPageSelectors{
		Article:    domain.Selector{Type: domain.SelectorCSS, Value: []string{".result"}},
		Title:      domain.Selector{Type: domain.SelectorCSS, Value: []string{".title"}},
		ProductURL: domain.Selector{Type: domain.SelectorCSS, Value: []string{"a"}, Extract: domain.ExtractHref},
	}
}

func productPageSelectors() domain.ProductPageSelectors {
	return domain.ProductPageSelectors{
		Price: domain.Selector{Type: domain.SelectorCSS, Value: []string{".price"}, Format: domain.FormatUS},
		Available: []domain.Selector{
			{Type: domain.SelectorText, Value: []string{"in stock"}},
		},
		Unavailable: []domain.Selector{
			{Type: domain.SelectorText, Value: []string{"sold out"}},
		},
	}
}

func newShop(baseURL string, skipProductPage bool) domain.ShopConfig {
	return domain.ShopConfig{
		ID:                                   "test-shop",
		BaseURL:                              baseURL,
		SearchURL:                            baseURL + "/search?q={query}",
		Engine:                               domain.EngineStaticHTML,
		SkipProductPageWhenPriceOnSearchPage: skipProductPage,
		SearchPage:                           articleSelectors(),
		ProductPage:                          productPageSelectors(),
	}
}

func product() domain.ResolvedProduct {
	return domain.ResolvedProduct{
		Product:        domain.Product{ID: "charizard-ex-booster-box"},
		ResolvedSearch: domain.SearchConfig{Phrases: []string{"charizard", "booster box"}},
	}
}

func TestScrape_SearchThenProductPageVerify(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<div class="result"><a class="title" href="/p/other">Pikachu Tin</a></div>
			<div class="result"><a class="title" href="/p/box">Charizard EX Booster Box</a></div>
		</body></html>`))
	})
	mux.HandleFunc("/p/box", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<span class="price">$129.99</span>
			<p class="stock">In Stock</p>
		</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	engine, err := shopengine.New(domain.EngineStaticHTML)
	require.NoError(t, err)
	defer engine.Close()

	s := scraper.New(engine, nil)
	result := s.Scrape(context.Background(), newShop(srv.URL, false), product(), domain.SeriesCatalog{})

	require.True(t, result.IsAvailable)
	require.NotNil(t, result.Price)
	assert.Equal(t, "129.99", result.Price.String())
	assert.Equal(t, srv.URL+"/p/box", result.ProductURL)
	assert.Equal(t, "charizard-ex-booster-box", result.ProductID)
	assert.Equal(t, "test-shop", result.ShopID)
}

func TestScrape_SkipsProductPageWhenFlagSet(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<div class="result">
				<a class="title" href="/p/box">Charizard EX Booster Box</a>
				<span class="price">$99.50</span>
				<p class="stock">In Stock</p>
			</div>
		</body></html>`))
	})
	mux.HandleFunc("/p/box", func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("product page should not have been fetched")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	engine, err := shopengine.New(domain.EngineStaticHTML)
	require.NoError(t, err)
	defer engine.Close()

	shop := newShop(srv.URL, true)
	shop.SearchPage.Price = &domain.Selector{Type: domain.SelectorCSS, Value: []string{".price"}, Format: domain.FormatUS}
	shop.SearchPage.Available = []domain.Selector{
		{Type: domain.SelectorCSS, Value: []string{".stock"}, MatchText: "in stock"},
	}

	s := scraper.New(engine, nil)
	result := s.Scrape(context.Background(), shop, product(), domain.SeriesCatalog{})

	require.True(t, result.IsAvailable)
	require.NotNil(t, result.Price)
	assert.Equal(t, "99.50", result.Price.String())
	assert.Equal(t, srv.URL+"/p/box", result.ProductURL)
}

func TestScrape_NoMatchReturnsUnavailable(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<div class="result"><a class="title" href="/p/other">Pikachu Tin</a></div>
		</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	engine, err := shopengine.New(domain.EngineStaticHTML)
	require.NoError(t, err)
	defer engine.Close()

	s := scraper.New(engine, nil)
	result := s.Scrape(context.Background(), newShop(srv.URL, false), product(), domain.SeriesCatalog{})

	assert.False(t, result.IsAvailable)
	assert.Nil(t, result.Price)
	assert.Equal(t, "charizard-ex-booster-box", result.ProductID)
}

func TestScrape_UnavailableWinsWhenBothSignalsFire(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<div class="result"><a class="title" href="/p/box">Charizard EX Booster Box</a></div>
		</body></html>`))
	})
	mux.HandleFunc("/p/box", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<span class="price">$129.99</span>
			<p class="stock">In Stock, Sold Out</p>
		</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	engine, err := shopengine.New(domain.EngineStaticHTML)
	require.NoError(t, err)
	defer engine.Close()

	s := scraper.New(engine, nil)
	result := s.Scrape(context.Background(), newShop(srv.URL, false), product(), domain.SeriesCatalog{})

	assert.False(t, result.IsAvailable)
}

func TestScrape_DirectHitSkipsSearchPageMatching(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/p/box", http.StatusFound)
	})
	mux.HandleFunc("/p/box", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<h1 class="title">Charizard EX Booster Box</h1>
			<span class="price">$129.99</span>
			<p class="stock">In Stock</p>
		</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	engine, err := shopengine.New(domain.EngineStaticHTML)
	require.NoError(t, err)
	defer engine.Close()

	shop := newShop(srv.URL, false)
	shop.DirectHitPattern = `/p/box$`
	title := domain.Selector{Type: domain.SelectorCSS, Value: []string{".title"}}
	shop.ProductPage.Title = &title

	s := scraper.New(engine, nil)
	result := s.Scrape(context.Background(), shop, product(), domain.SeriesCatalog{})

	require.True(t, result.IsAvailable)
	require.NotNil(t, result.Price)
	assert.Equal(t, srv.URL+"/p/box", result.ProductURL)
}
