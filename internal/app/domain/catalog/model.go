package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item offered by the storefront. Price is the live
// catalog price; carts and orders snapshot it at add-to-cart time.
type Product struct {
	ID          int64
	CategoryID  int64
	Name        string
	Description string
	Price       decimal.Decimal
	Image1      string
	Image2      string
	CreatedAt   time.Time
}

// Category groups products for filtering.
type Category struct {
	ID   int64
	Name string
}

// Store is a physical collection point for click & collect orders.
type Store struct {
	ID           int64
	Name         string
	LocationCode string
	Address      string
}

// StockLevel reports on-hand quantity of one product at one store.
type StockLevel struct {
	ProductID int64
	StoreID   int64
	Quantity  int
}
