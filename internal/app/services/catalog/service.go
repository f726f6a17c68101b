// Package catalog serves product listings, search and collection points.
package catalog

import (
	"context"
	"strings"
	"unicode/utf8"

	catalogDomain "github.com/astrobite/storefront/internal/app/domain/catalog"
	"github.com/astrobite/storefront/internal/app/storage"
	"github.com/astrobite/storefront/pkg/logger"
)

const (
	searchMinRunes = 2
	searchLimit    = 8
	featuredCount  = 2
)

// Service reads the product catalog.
type Service struct {
	store storage.CatalogStore
	log   *logger.Logger
}

// New constructs a catalog service.
func New(store storage.CatalogStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{store: store, log: log}
}

// ProductDetail is a product with its per-store stock levels.
type ProductDetail struct {
	Product catalogDomain.Product
	Stock   []catalogDomain.StockLevel
}

// List returns products, optionally filtered to one category.
func (s *Service) List(ctx context.Context, categoryID *int64) ([]catalogDomain.Product, error) {
	return s.store.ListProducts(ctx, categoryID)
}

// Get returns one product with stock per store.
func (s *Service) Get(ctx context.Context, id int64) (ProductDetail, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return ProductDetail{}, err
	}
	stock, err := s.store.StockLevels(ctx, id)
	if err != nil {
		return ProductDetail{}, err
	}
	return ProductDetail{Product: p, Stock: stock}, nil
}

// Search matches products by name. Queries shorter than two characters
// return an empty result rather than scanning the whole catalog.
func (s *Service) Search(ctx context.Context, query string) ([]catalogDomain.Product, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < searchMinRunes {
		return nil, nil
	}
	return s.store.SearchProducts(ctx, query, searchLimit)
}

// Featured returns a random selection for the home page.
func (s *Service) Featured(ctx context.Context) ([]catalogDomain.Product, error) {
	return s.store.RandomProducts(ctx, featuredCount)
}

// Categories lists all categories.
func (s *Service) Categories(ctx context.Context) ([]catalogDomain.Category, error) {
	return s.store.ListCategories(ctx)
}

// Stores lists collection points for the checkout picker.
func (s *Service) Stores(ctx context.Context) ([]catalogDomain.Store, error) {
	return s.store.ListStores(ctx)
}
