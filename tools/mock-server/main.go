// Package main implements a mock card shop HTTP server for local
// development. It serves canned search-result and product-page HTML from a
// JSON fixture, using the same .result/.title/.price/.stock markup the
// static-HTML shop engine's selectors expect, so a shop catalog entry can
// point at it instead of a real store while exercising the full
// search-then-verify scrape path.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// product is one fixture entry: a card listing with a price and stock state.
type product struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price string `json:"price"`
	Stock string `json:"stock"` // "In Stock" or "Sold Out"
}

type fixture struct {
	Products []product `json:"products"`
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	fixtureFile := flag.String("fixture", "tools/mock-server/testdata/products.json", "path to product fixture")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	fx, err := loadFixture(*fixtureFile)
	if err != nil {
		logger.Error("failed to load fixture", "path", *fixtureFile, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded fixture", "products", len(fx.Products))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", searchHandler(logger, fx))
	mux.HandleFunc("GET /p/{id}", productHandler(logger, fx))

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock shop server", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixture path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var fx fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &fx, nil
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

var searchPageTmpl = template.Must(template.New("search").Parse(`<!doctype html>
<html><body>
{{range .}}<div class="result"><a class="title" href="/p/{{.ID}}">{{.Title}}</a></div>
{{end}}</body></html>`))

// searchHandler filters products by a case-insensitive substring match
// against the query string's "q" parameter and renders one .result article
// per match, matching the markup internal/scraper's tests assert against.
func searchHandler(logger *slog.Logger, fx *fixture) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := strings.ToLower(r.URL.Query().Get("q"))

		var matched []product
		for _, p := range fx.Products {
			if q == "" || strings.Contains(strings.ToLower(p.Title), q) {
				matched = append(matched, p)
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := searchPageTmpl.Execute(w, matched); err != nil {
			logger.Error("rendering search page", "error", err)
		}
		logger.Info("search", "query", q, "matched", len(matched))
	}
}

var productPageTmpl = template.Must(template.New("product").Parse(`<!doctype html>
<html><body>
<h1 class="title">{{.Title}}</h1>
<span class="price">{{.Price}}</span>
<p class="stock">{{.Stock}}</p>
</body></html>`))

// productHandler renders a single product's detail page, looked up by the
// {id} path value assigned by a /p/{id} search-result link.
func productHandler(logger *slog.Logger, fx *fixture) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		for _, p := range fx.Products {
			if p.ID == id {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				if err := productPageTmpl.Execute(w, p); err != nil {
					logger.Error("rendering product page", "error", err)
				}
				logger.Info("product", "id", id, "found", true)
				return
			}
		}

		logger.Info("product", "id", id, "found", false)
		http.NotFound(w, r)
	}
}
