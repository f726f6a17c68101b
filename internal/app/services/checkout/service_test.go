package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/astrobite/storefront/internal/app/domain/cart"
	"github.com/astrobite/storefront/internal/app/domain/order"
	"github.com/astrobite/storefront/internal/app/session"
	"github.com/astrobite/storefront/internal/app/storage/memory"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func seedCart(t *testing.T, carts session.CartStore, sessionID string) cart.Cart {
	t.Helper()
	c := cart.Cart{
		101: {ProductID: 101, Name: "Cosmic Pancakes", UnitPrice: mustDecimal(t, "8.99"), Quantity: 2},
		205: {ProductID: 205, Name: "Nebula Stew", UnitPrice: mustDecimal(t, "14.50"), Quantity: 1},
	}
	if err := carts.Put(context.Background(), sessionID, c); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	return c
}

func TestPlaceCreatesPendingOrderWithSnapshotLines(t *testing.T) {
	store := memory.New()
	carts := session.NewMemoryCartStore()
	svc := New(store, carts, nil)
	seedCart(t, carts, "sess-1")

	ord, err := svc.Place(context.Background(), 7, nil, "sess-1")
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if ord.Status != order.StatusPending {
		t.Fatalf("status = %s, want pending", ord.Status)
	}
	if got, want := ord.TotalPrice.StringFixed(2), "32.48"; got != want {
		t.Fatalf("total = %s, want %s", got, want)
	}
	if ord.UserID != 7 {
		t.Fatalf("user id = %d, want 7", ord.UserID)
	}

	lines, err := store.OrderLines(context.Background(), ord.ID)
	if err != nil {
		t.Fatalf("order lines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if lines[0].ProductID != 101 || lines[0].Quantity != 2 || lines[0].PriceAtPurchase.StringFixed(2) != "8.99" {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
	if lines[1].ProductID != 205 || lines[1].Quantity != 1 || lines[1].PriceAtPurchase.StringFixed(2) != "14.50" {
		t.Fatalf("unexpected second line: %+v", lines[1])
	}
}

func TestPlaceTotalEqualsSumOfLines(t *testing.T) {
	store := memory.New()
	carts := session.NewMemoryCartStore()
	svc := New(store, carts, nil)
	seedCart(t, carts, "sess-1")

	ord, err := svc.Place(context.Background(), 7, nil, "sess-1")
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	lines, err := store.OrderLines(context.Background(), ord.ID)
	if err != nil {
		t.Fatalf("order lines: %v", err)
	}

	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.PriceAtPurchase.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	if !sum.Equal(ord.TotalPrice) {
		t.Fatalf("line sum %s != order total %s", sum, ord.TotalPrice)
	}
}

func TestPlaceClearsCartOnlyAfterCommit(t *testing.T) {
	store := memory.New()
	carts := session.NewMemoryCartStore()
	svc := New(store, carts, nil)
	seedCart(t, carts, "sess-1")

	if _, err := svc.Place(context.Background(), 7, nil, "sess-1"); err != nil {
		t.Fatalf("place: %v", err)
	}

	c, err := carts.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(c) != 0 {
		t.Fatalf("cart has %d entries after checkout, want 0", len(c))
	}
}

// failingOrderStore rejects every CreateOrder to simulate a rolled-back
// transaction.
type failingOrderStore struct {
	*memory.Store
}

func (f failingOrderStore) CreateOrder(context.Context, order.Order, []order.Line) (order.Order, error) {
	return order.Order{}, fmt.Errorf("deadlock detected")
}

func TestPlaceKeepsCartWhenStoreFails(t *testing.T) {
	carts := session.NewMemoryCartStore()
	svc := New(failingOrderStore{memory.New()}, carts, nil)
	seedCart(t, carts, "sess-1")

	_, err := svc.Place(context.Background(), 7, nil, "sess-1")
	if !errors.Is(err, ErrPlaceOrder) {
		t.Fatalf("error = %v, want ErrPlaceOrder", err)
	}

	c, err := carts.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(c) != 2 {
		t.Fatalf("cart has %d entries after failed checkout, want 2", len(c))
	}
}

func TestPlaceHidesStoreErrorDetail(t *testing.T) {
	carts := session.NewMemoryCartStore()
	svc := New(failingOrderStore{memory.New()}, carts, nil)
	seedCart(t, carts, "sess-1")

	_, err := svc.Place(context.Background(), 7, nil, "sess-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != ErrPlaceOrder.Error() {
		t.Fatalf("error %q leaks internal detail", err)
	}
}

// failingCartStore rejects every Get to simulate a session backend outage.
type failingCartStore struct {
	session.CartStore
}

func (f failingCartStore) Get(context.Context, string) (cart.Cart, error) {
	return nil, fmt.Errorf("dial tcp 127.0.0.1:6379: connection refused")
}

func TestPlaceHidesCartStoreErrorDetail(t *testing.T) {
	svc := New(memory.New(), failingCartStore{session.NewMemoryCartStore()}, nil)

	_, err := svc.Place(context.Background(), 7, nil, "sess-1")
	if !errors.Is(err, ErrPlaceOrder) {
		t.Fatalf("error = %v, want ErrPlaceOrder", err)
	}
	if err.Error() != ErrPlaceOrder.Error() {
		t.Fatalf("error %q leaks internal detail", err)
	}
}

func TestPlaceEmptyCart(t *testing.T) {
	svc := New(memory.New(), session.NewMemoryCartStore(), nil)

	_, err := svc.Place(context.Background(), 7, nil, "no-such-session")
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("error = %v, want ErrEmptyCart", err)
	}
}

func TestPlaceRequiresUser(t *testing.T) {
	carts := session.NewMemoryCartStore()
	svc := New(memory.New(), carts, nil)
	seedCart(t, carts, "sess-1")

	if _, err := svc.Place(context.Background(), 0, nil, "sess-1"); err == nil {
		t.Fatal("expected error for zero user id")
	}
}

func TestPlaceUsesCartPricesNotCatalogPrices(t *testing.T) {
	store := memory.New()
	carts := session.NewMemoryCartStore()
	svc := New(store, carts, nil)

	// The cart holds a price snapshot that differs from whatever the live
	// catalog says now; checkout must charge the snapshot.
	c := cart.Cart{
		42: {ProductID: 42, Name: "Meteor Muffin", UnitPrice: mustDecimal(t, "3.25"), Quantity: 4},
	}
	if err := carts.Put(context.Background(), "sess-1", c); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	ord, err := svc.Place(context.Background(), 7, nil, "sess-1")
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if got, want := ord.TotalPrice.StringFixed(2), "13.00"; got != want {
		t.Fatalf("total = %s, want %s", got, want)
	}

	lines, _ := store.OrderLines(context.Background(), ord.ID)
	if lines[0].PriceAtPurchase.StringFixed(2) != "3.25" {
		t.Fatalf("price at purchase = %s, want 3.25", lines[0].PriceAtPurchase)
	}
}

func TestPlaceCarriesStoreID(t *testing.T) {
	store := memory.New()
	carts := session.NewMemoryCartStore()
	svc := New(store, carts, nil)
	seedCart(t, carts, "sess-1")

	storeID := int64(3)
	ord, err := svc.Place(context.Background(), 7, &storeID, "sess-1")
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if ord.StoreID == nil || *ord.StoreID != 3 {
		t.Fatalf("store id = %v, want 3", ord.StoreID)
	}
}

func TestPlaceRejectsInvalidCart(t *testing.T) {
	carts := session.NewMemoryCartStore()
	svc := New(memory.New(), carts, nil)

	c := cart.Cart{
		1: {ProductID: 1, UnitPrice: mustDecimal(t, "1.00"), Quantity: -1},
	}
	if err := carts.Put(context.Background(), "sess-1", c); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	if _, err := svc.Place(context.Background(), 7, nil, "sess-1"); err == nil {
		t.Fatal("expected error for invalid cart")
	}
}
