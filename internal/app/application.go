// Package app wires the storefront services to their stores.
package app

import (
	"github.com/astrobite/storefront/internal/app/auth"
	"github.com/astrobite/storefront/internal/app/services/accounts"
	"github.com/astrobite/storefront/internal/app/services/carts"
	catalogsvc "github.com/astrobite/storefront/internal/app/services/catalog"
	checkoutsvc "github.com/astrobite/storefront/internal/app/services/checkout"
	"github.com/astrobite/storefront/internal/app/services/contact"
	orderssvc "github.com/astrobite/storefront/internal/app/services/orders"
	"github.com/astrobite/storefront/internal/app/session"
	"github.com/astrobite/storefront/internal/app/storage"
	"github.com/astrobite/storefront/internal/app/storage/memory"
	"github.com/astrobite/storefront/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation, which is what the tests use.
type Stores struct {
	Catalog storage.CatalogStore
	Orders  storage.OrderStore
	Users   storage.UserStore
	Carts   session.CartStore
}

// Application ties the domain services together.
type Application struct {
	log *logger.Logger

	Catalog  *catalogsvc.Service
	Carts    *carts.Service
	Checkout *checkoutsvc.Service
	Orders   *orderssvc.Service
	Accounts *accounts.Service
	Contact  *contact.Service
}

// New builds a fully initialised application with the provided stores. The
// mailer may be nil, in which case contact submissions fail with a logged
// error rather than a panic.
func New(stores Stores, issuer *auth.Issuer, mailer contact.Mailer, log *logger.Logger) *Application {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Catalog == nil {
		stores.Catalog = mem
	}
	if stores.Orders == nil {
		stores.Orders = mem
	}
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Carts == nil {
		stores.Carts = session.NewMemoryCartStore()
	}
	if mailer == nil {
		mailer = noopMailer{log: log}
	}

	return &Application{
		log:      log,
		Catalog:  catalogsvc.New(stores.Catalog, log),
		Carts:    carts.New(stores.Catalog, stores.Carts, log),
		Checkout: checkoutsvc.New(stores.Orders, stores.Carts, log),
		Orders:   orderssvc.New(stores.Orders, log),
		Accounts: accounts.New(stores.Users, issuer, log),
		Contact:  contact.New(mailer, log),
	}
}
