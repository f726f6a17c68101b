// Package carts mutates per-session shopping carts.
package carts

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/astrobite/storefront/internal/app/domain/cart"
	"github.com/astrobite/storefront/internal/app/session"
	"github.com/astrobite/storefront/internal/app/storage"
	"github.com/astrobite/storefront/pkg/logger"
)

// ErrNotInCart is returned when updating or removing a product the cart does
// not hold.
var ErrNotInCart = fmt.Errorf("item not in cart")

// Service manages session carts. Product name and price are snapshotted into
// the entry the first time a product is added; subsequent adds only bump the
// quantity.
type Service struct {
	catalog storage.CatalogStore
	carts   session.CartStore
	log     *logger.Logger
}

// New constructs a cart service.
func New(catalog storage.CatalogStore, carts session.CartStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("carts")
	}
	return &Service{catalog: catalog, carts: carts, log: log}
}

// View is a cart plus its derived totals.
type View struct {
	Cart      cart.Cart
	Total     decimal.Decimal
	ItemCount int
}

// Get returns the session's cart with totals. An unknown session yields an
// empty cart.
func (s *Service) Get(ctx context.Context, sessionID string) (View, error) {
	c, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	total, count := c.Totals()
	return View{Cart: c, Total: total, ItemCount: count}, nil
}

// Add puts qty units of a product into the cart, snapshotting the live
// catalog name and price on first add.
func (s *Service) Add(ctx context.Context, sessionID string, productID int64, qty int) (View, error) {
	if productID <= 0 || qty <= 0 {
		return View{}, fmt.Errorf("invalid product id or quantity")
	}

	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return View{}, fmt.Errorf("product lookup: %w", err)
	}

	c, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return View{}, err
	}

	if entry, ok := c[productID]; ok {
		entry.Quantity += qty
		c[productID] = entry
	} else {
		c[productID] = cart.Entry{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  qty,
		}
	}

	if err := s.carts.Put(ctx, sessionID, c); err != nil {
		return View{}, err
	}

	s.log.WithField("session_id", sessionID).
		WithField("product_id", productID).
		WithField("quantity", qty).
		Info("item added to cart")

	total, count := c.Totals()
	return View{Cart: c, Total: total, ItemCount: count}, nil
}

// UpdateQuantity sets the quantity of an item already in the cart.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID string, productID int64, qty int) (View, error) {
	if productID <= 0 || qty <= 0 {
		return View{}, fmt.Errorf("invalid product id or quantity")
	}

	c, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return View{}, err
	}

	entry, ok := c[productID]
	if !ok {
		return View{}, ErrNotInCart
	}
	entry.Quantity = qty
	c[productID] = entry

	if err := s.carts.Put(ctx, sessionID, c); err != nil {
		return View{}, err
	}

	total, count := c.Totals()
	return View{Cart: c, Total: total, ItemCount: count}, nil
}

// Remove deletes an item from the cart.
func (s *Service) Remove(ctx context.Context, sessionID string, productID int64) (View, error) {
	c, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return View{}, err
	}

	if _, ok := c[productID]; !ok {
		return View{}, ErrNotInCart
	}
	delete(c, productID)

	if err := s.carts.Put(ctx, sessionID, c); err != nil {
		return View{}, err
	}

	total, count := c.Totals()
	return View{Cart: c, Total: total, ItemCount: count}, nil
}

// Clear discards the session's cart.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	return s.carts.Clear(ctx, sessionID)
}
