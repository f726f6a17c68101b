// Package checkout converts a session cart into durable order records.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/astrobite/storefront/internal/app/domain/order"
	"github.com/astrobite/storefront/internal/app/session"
	"github.com/astrobite/storefront/internal/app/storage"
	"github.com/astrobite/storefront/pkg/logger"
)

// ErrEmptyCart means there is nothing to check out; callers redirect back to
// the catalog rather than creating a zero-line order.
var ErrEmptyCart = errors.New("cart is empty")

// ErrPlaceOrder is the generic user-facing failure. The underlying cause is
// logged server-side and never shown to the caller.
var ErrPlaceOrder = errors.New("failed to place order")

// Service performs the order placement transaction.
type Service struct {
	orders storage.OrderStore
	carts  session.CartStore
	log    *logger.Logger
}

// New constructs a checkout service.
func New(orders storage.OrderStore, carts session.CartStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("checkout")
	}
	return &Service{orders: orders, carts: carts, log: log}
}

// Place turns the session's cart into one order with one line per product,
// all-or-nothing. The total and every line price come from the cart's own
// cached prices, not a fresh catalog lookup: the price shown in the cart is
// the price charged. The cart is cleared only after the transaction commits;
// on any failure it is left untouched so the user can retry.
func (s *Service) Place(ctx context.Context, userID int64, storeID *int64, sessionID string) (order.Order, error) {
	if userID <= 0 {
		return order.Order{}, fmt.Errorf("user id must be positive")
	}

	c, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		s.log.WithError(err).
			WithField("session_id", sessionID).
			Error("loading cart failed")
		return order.Order{}, ErrPlaceOrder
	}
	if len(c) == 0 {
		return order.Order{}, ErrEmptyCart
	}
	if err := c.Validate(); err != nil {
		return order.Order{}, fmt.Errorf("invalid cart: %w", err)
	}

	total, _ := c.Totals()

	entries := c.Entries()
	lines := make([]order.Line, len(entries))
	for i, e := range entries {
		lines[i] = order.Line{
			ProductID:       e.ProductID,
			Quantity:        e.Quantity,
			PriceAtPurchase: e.UnitPrice,
		}
	}

	ord := order.Order{
		UserID:     userID,
		StoreID:    storeID,
		TotalPrice: total,
		Status:     order.StatusPending,
	}

	ord, err = s.orders.CreateOrder(ctx, ord, lines)
	if err != nil {
		s.log.WithError(err).
			WithField("user_id", userID).
			WithField("session_id", sessionID).
			Error("order placement failed")
		return order.Order{}, ErrPlaceOrder
	}

	// The order is durable from here on. If clearing the session fails the
	// user may see a stale cart, but never a lost order.
	if err := s.carts.Clear(ctx, sessionID); err != nil {
		s.log.WithError(err).
			WithField("order_id", ord.ID).
			Warn("order committed but cart clear failed")
	}

	s.log.WithField("order_id", ord.ID).
		WithField("user_id", userID).
		WithField("total", ord.TotalPrice.StringFixed(2)).
		WithField("lines", len(lines)).
		Info("order placed")
	return ord, nil
}
