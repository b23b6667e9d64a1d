// Package catalog loads the declarative shop/product definitions that the
// Store intentionally does not own: ShopConfig, Product, ProductType,
// ProductSet and Series are admin-edited YAML files, not rows mutated by a
// scrape cycle. The daemon loads the catalog once at startup and the
// scheduler reloads it at the start of every cycle; it never writes it back.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	domain "github.com/cardwatch/cardwatch/pkg/types"
)

// Catalog is an immutable-per-load snapshot of every shop and product
// definition, plus the series/set hierarchy used for generic-set protection.
type Catalog struct {
	Shops        []domain.ShopConfig
	Products     []domain.Product
	ProductTypes map[string]domain.ProductType
	Series       domain.SeriesCatalog
}

// shopFile and productFile mirror the directory layout under dir:
//
//	<dir>/shops/*.yaml          -> domain.ShopConfig
//	<dir>/products/*.yaml       -> productFile (Products + ProductTypes)
//	<dir>/series.yaml           -> seriesFile (Series + ProductSets)
type productFile struct {
	Products     []domain.Product     `yaml:"products"`
	ProductTypes []domain.ProductType `yaml:"productTypes"`
}

type seriesFile struct {
	Series      []domain.Series     `yaml:"series"`
	ProductSets []domain.ProductSet `yaml:"productSets"`
}

// Load reads every shop and product YAML file under dir and assembles a
// Catalog. Shop and product files are read in filename order so catalog
// diffs are stable across reloads; a malformed file aborts the whole load
// rather than producing a partial catalog.
func Load(dir string) (*Catalog, error) {
	shops, err := loadShops(filepath.Join(dir, "shops"))
	if err != nil {
		return nil, fmt.Errorf("loading shops: %w", err)
	}

	products, types, err := loadProducts(filepath.Join(dir, "products"))
	if err != nil {
		return nil, fmt.Errorf("loading products: %w", err)
	}

	series, err := loadSeries(filepath.Join(dir, "series.yaml"))
	if err != nil {
		return nil, fmt.Errorf("loading series: %w", err)
	}

	return &Catalog{
		Shops:        shops,
		Products:     products,
		ProductTypes: types,
		Series:       series,
	}, nil
}

func loadShops(dir string) ([]domain.ShopConfig, error) {
	files, err := yamlFilesIn(dir)
	if err != nil {
		return nil, err
	}

	var shops []domain.ShopConfig
	for _, f := range files {
		var s domain.ShopConfig
		if err := decodeFile(f, &s); err != nil {
			return nil, fmt.Errorf("decoding shop %s: %w", f, err)
		}
		shops = append(shops, s)
	}
	return shops, nil
}

func loadProducts(dir string) ([]domain.Product, map[string]domain.ProductType, error) {
	files, err := yamlFilesIn(dir)
	if err != nil {
		return nil, nil, err
	}

	var products []domain.Product
	types := make(map[string]domain.ProductType)
	for _, f := range files {
		var pf productFile
		if err := decodeFile(f, &pf); err != nil {
			return nil, nil, fmt.Errorf("decoding product file %s: %w", f, err)
		}
		products = append(products, pf.Products...)
		for _, pt := range pf.ProductTypes {
			types[pt.ID] = pt
		}
	}
	return products, types, nil
}

func loadSeries(path string) (domain.SeriesCatalog, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return domain.SeriesCatalog{Sets: map[string]domain.ProductSet{}, Series: map[string]domain.Series{}}, nil
	}

	var sf seriesFile
	if err := decodeFile(path, &sf); err != nil {
		return domain.SeriesCatalog{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	sets := make(map[string]domain.ProductSet, len(sf.ProductSets))
	for _, s := range sf.ProductSets {
		sets[s.ID] = s
	}
	seriesByID := make(map[string]domain.Series, len(sf.Series))
	for _, s := range sf.Series {
		seriesByID[s.ID] = s
	}

	return domain.SeriesCatalog{Sets: sets, Series: seriesByID}, nil
}

// ResolvedProducts returns every non-disabled product merged with its
// ProductType defaults via domain.ResolveProduct.
func (c *Catalog) ResolvedProducts() []domain.ResolvedProduct {
	resolved := make([]domain.ResolvedProduct, 0, len(c.Products))
	for _, p := range c.Products {
		if p.Disabled {
			continue
		}
		var pt *domain.ProductType
		if p.ProductTypeID != "" {
			if found, ok := c.ProductTypes[p.ProductTypeID]; ok {
				pt = &found
			}
		}
		resolved = append(resolved, domain.ResolveProduct(p, pt))
	}
	return resolved
}

// EnabledShops returns every shop not marked Disabled.
func (c *Catalog) EnabledShops() []domain.ShopConfig {
	enabled := make([]domain.ShopConfig, 0, len(c.Shops))
	for _, s := range c.Shops {
		if !s.Disabled {
			enabled = append(enabled, s)
		}
	}
	return enabled
}

func yamlFilesIn(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) != ".yaml" && filepath.Ext(name) != ".yml" {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
