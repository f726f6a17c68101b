package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/astrobite/storefront/internal/app/domain/catalog"
	"github.com/astrobite/storefront/internal/app/domain/order"
	"github.com/astrobite/storefront/internal/app/domain/user"
)

// ErrNotFound reports that a lookup matched no record. Callers that want
// to distinguish "absent" from a backend failure check for it with
// errors.Is.
var ErrNotFound = errors.New("not found")

// CatalogStore persists products, categories, collection points and stock.
type CatalogStore interface {
	CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error)
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
	ListProducts(ctx context.Context, categoryID *int64) ([]catalog.Product, error)
	SearchProducts(ctx context.Context, query string, limit int) ([]catalog.Product, error)
	RandomProducts(ctx context.Context, n int) ([]catalog.Product, error)
	UpdateProductPrice(ctx context.Context, id int64, price decimal.Decimal) error

	CreateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error)
	ListCategories(ctx context.Context) ([]catalog.Category, error)

	CreateStore(ctx context.Context, s catalog.Store) (catalog.Store, error)
	ListStores(ctx context.Context) ([]catalog.Store, error)

	SetStock(ctx context.Context, level catalog.StockLevel) error
	StockLevels(ctx context.Context, productID int64) ([]catalog.StockLevel, error)
}

// OrderStore persists order headers and lines. CreateOrder must write the
// header and every line in one transaction: a reader never observes an order
// with a partial line set.
type OrderStore interface {
	CreateOrder(ctx context.Context, ord order.Order, lines []order.Line) (order.Order, error)
	GetOrder(ctx context.Context, id int64) (order.Order, error)
	OrderLines(ctx context.Context, orderID int64) ([]order.Line, error)
	GetConfirmation(ctx context.Context, orderID, userID int64) (order.Confirmation, error)
	ListOrders(ctx context.Context, status order.Status, limit int) ([]order.Summary, error)
	ListUserOrders(ctx context.Context, userID int64) ([]order.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status order.Status) error
}

// UserStore persists accounts and auth sessions.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id int64) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	GetUserByProvider(ctx context.Context, provider, providerID string) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)

	CreateSession(ctx context.Context, s user.Session) (user.Session, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (user.Session, error)
	DeleteSession(ctx context.Context, tokenHash string) error
}
