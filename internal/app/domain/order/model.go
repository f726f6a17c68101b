package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order. Transitions are admin-driven
// only; there are no automatic transitions or timers.
type Status string

const (
	StatusPending        Status = "pending"
	StatusReadyForPickup Status = "ready_for_pickup"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

// ValidStatus reports whether s is one of the fixed status values.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusReadyForPickup, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one status to
// another. Completed and cancelled are terminal.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusReadyForPickup || to == StatusCompleted || to == StatusCancelled
	case StatusReadyForPickup:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}

// Order is the durable header record for one completed checkout. StoreID is
// nil for home delivery. TotalPrice is a snapshot of the cart total at
// placement time and is never re-derived.
type Order struct {
	ID         int64
	UserID     int64
	StoreID    *int64
	TotalPrice decimal.Decimal
	Status     Status
	CreatedAt  time.Time
}

// Line is a per-product snapshot row belonging to one order. It is immutable
// after creation; PriceAtPurchase is deliberately decoupled from the live
// catalog price.
type Line struct {
	OrderID         int64
	ProductID       int64
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// Summary is an order joined with customer and collection-point display
// fields for the admin dashboard.
type Summary struct {
	Order
	CustomerName  string
	CustomerEmail string
	StoreName     string
	LocationCode  string
}

// Confirmation bundles what the confirmation view needs: the header, its
// lines joined with product names, and the collection point if one was
// chosen.
type Confirmation struct {
	Order     Order
	Lines     []ConfirmationLine
	StoreName string
	StoreCode string
	StoreAddr string
}

// ConfirmationLine is a line enriched with display fields.
type ConfirmationLine struct {
	Line
	ProductName string
	Image       string
}
