package main

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func loadTestFixture(t *testing.T) *fixture {
	t.Helper()
	path := filepath.Join("testdata", "products.json")
	fx, err := loadFixture(path)
	if err != nil {
		t.Fatalf("loading fixture: %v", err)
	}
	return fx
}

func TestLoadFixture(t *testing.T) {
	fx := loadTestFixture(t)
	if len(fx.Products) == 0 {
		t.Fatal("expected products in fixture")
	}
}

func TestSearchHandler_AllProducts(t *testing.T) {
	fx := loadTestFixture(t)
	handler := searchHandler(testLogger(), fx)
	req := httptest.NewRequest(http.MethodGet, "/search", http.NoBody)
	w := httptest.NewRecorder()

	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if got := strings.Count(body, `class="result"`); got != len(fx.Products) {
		t.Errorf("results=%d, want %d", got, len(fx.Products))
	}
}

func TestSearchHandler_QueryFilter(t *testing.T) {
	fx := loadTestFixture(t)
	handler := searchHandler(testLogger(), fx)
	req := httptest.NewRequest(http.MethodGet, "/search?q=charizard", http.NoBody)
	w := httptest.NewRecorder()

	handler(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "Charizard EX Booster Box") {
		t.Error("expected Charizard EX Booster Box in filtered results")
	}
	if !strings.Contains(body, "Charizard VSTAR Rainbow Collection") {
		t.Error("expected Charizard VSTAR Rainbow Collection in filtered results")
	}
	if strings.Contains(body, "Pikachu Tin") {
		t.Error("did not expect Pikachu Tin in charizard-filtered results")
	}
}

func TestSearchHandler_NoResults(t *testing.T) {
	fx := loadTestFixture(t)
	handler := searchHandler(testLogger(), fx)
	req := httptest.NewRequest(http.MethodGet, "/search?q=nonexistent_xyz", http.NoBody)
	w := httptest.NewRecorder()

	handler(w, req)

	if strings.Contains(w.Body.String(), `class="result"`) {
		t.Error("expected no results")
	}
}

func TestProductHandler_Found(t *testing.T) {
	fx := loadTestFixture(t)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /p/{id}", productHandler(testLogger(), fx))

	req := httptest.NewRequest(http.MethodGet, "/p/box", http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, `class="price"`) || !strings.Contains(body, "$129.99") {
		t.Errorf("expected price in body, got %q", body)
	}
	if !strings.Contains(body, "In Stock") {
		t.Errorf("expected stock status in body, got %q", body)
	}
}

func TestProductHandler_NotFound(t *testing.T) {
	fx := loadTestFixture(t)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /p/{id}", productHandler(testLogger(), fx))

	req := httptest.NewRequest(http.MethodGet, "/p/does-not-exist", http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want %d", w.Code, http.StatusNotFound)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
