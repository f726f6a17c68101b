// Package orders serves order queries and the admin status update.
package orders

import (
	"context"
	"fmt"

	"github.com/astrobite/storefront/internal/app/domain/order"
	"github.com/astrobite/storefront/internal/app/storage"
	"github.com/astrobite/storefront/pkg/logger"
)

// adminListLimit caps the dashboard query.
const adminListLimit = 100

// ErrInvalidStatus is returned for a status value outside the fixed
// enumeration. Unknown values are an explicit error, not a silent no-op.
var ErrInvalidStatus = fmt.Errorf("invalid order status")

// ErrIllegalTransition is returned when the requested status cannot be
// reached from the order's current status.
var ErrIllegalTransition = fmt.Errorf("illegal status transition")

// Service exposes order reads and the admin-facing status update.
type Service struct {
	store storage.OrderStore
	log   *logger.Logger
}

// New constructs an order service.
func New(store storage.OrderStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("orders")
	}
	return &Service{store: store, log: log}
}

// Confirmation returns the owner-scoped confirmation payload.
func (s *Service) Confirmation(ctx context.Context, orderID, userID int64) (order.Confirmation, error) {
	if orderID <= 0 || userID <= 0 {
		return order.Confirmation{}, fmt.Errorf("order id and user id must be positive")
	}
	return s.store.GetConfirmation(ctx, orderID, userID)
}

// ListByUser returns the user's order history, newest first.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	return s.store.ListUserOrders(ctx, userID)
}

// ListAll returns orders for the admin dashboard. An empty or unrecognized
// filter lists everything, matching the dashboard's "all" tab.
func (s *Service) ListAll(ctx context.Context, statusFilter string) ([]order.Summary, error) {
	status := order.Status(statusFilter)
	if !order.ValidStatus(status) {
		status = ""
	}
	return s.store.ListOrders(ctx, status, adminListLimit)
}

// UpdateStatus moves an order through its state machine. A value outside the
// enumeration or a transition the machine does not allow is rejected.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, status order.Status) (order.Order, error) {
	if !order.ValidStatus(status) {
		return order.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	ord, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return order.Order{}, err
	}
	if ord.Status == status {
		return ord, nil
	}
	if !order.CanTransition(ord.Status, status) {
		return order.Order{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, ord.Status, status)
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return order.Order{}, err
	}
	ord.Status = status

	s.log.WithField("order_id", orderID).
		WithField("status", string(status)).
		Info("order status updated")
	return ord, nil
}
