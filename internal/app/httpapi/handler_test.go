package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	app "github.com/astrobite/storefront/internal/app"
	"github.com/astrobite/storefront/internal/app/auth"
	"github.com/astrobite/storefront/internal/app/domain/catalog"
	"github.com/astrobite/storefront/internal/app/domain/user"
	"github.com/astrobite/storefront/internal/app/session"
	"github.com/astrobite/storefront/internal/app/storage/memory"
	"github.com/astrobite/storefront/internal/middleware"
)

type fixture struct {
	handler http.Handler
	store   *memory.Store
	issuer  *auth.Issuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	issuer := auth.NewIssuer("test-secret", time.Hour)

	application := app.New(app.Stores{
		Catalog: store,
		Orders:  store,
		Users:   store,
		Carts:   session.NewMemoryCartStore(),
	}, issuer, nil, nil)

	handler := NewRouter(application, RouterConfig{
		Authenticator:  middleware.NewAuthenticator(issuer, store, nil),
		AllowedOrigins: []string{"*"},
	})

	cat, err := store.CreateCategory(context.Background(), catalog.Category{Name: "Mains"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := store.CreateProduct(context.Background(), catalog.Product{
		CategoryID: cat.ID,
		Name:       "Cosmic Pancakes",
		Price:      decimal.RequireFromString("8.99"),
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	return &fixture{handler: handler, store: store, issuer: issuer}
}

func (f *fixture) signIn(t *testing.T, role string) string {
	t.Helper()

	u, err := f.store.CreateUser(context.Background(), user.User{
		Name:  "Ada",
		Email: role + "@example.com",
		Role:  role,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := f.issuer.Generate(u.ID, u.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := f.store.CreateSession(context.Background(), user.Session{
		ID:        "sess-" + role,
		UserID:    u.ID,
		TokenHash: auth.HashToken(token),
		ExpiresAt: time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return token
}

// do sends a request, carrying the given cart session cookie and bearer
// token when set, and returns the recorder.
func (f *fixture) do(t *testing.T, method, path, body, sessionCookie, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionCookie != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: sessionCookie})
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeBody(t, rec, &body)
	return body.Error.Code
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/products", "", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var products []productDTO
	decodeBody(t, rec, &products)
	if len(products) != 1 || products[0].Price != "8.99" {
		t.Fatalf("unexpected products: %+v", products)
	}
}

func TestCartFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/cart/items", `{"product_id":2,"quantity":2}`, "cart-sess", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d: %s", rec.Code, rec.Body.String())
	}

	var c cartDTO
	decodeBody(t, rec, &c)
	if c.Total != "17.98" || c.ItemCount != 2 {
		t.Fatalf("unexpected cart: %+v", c)
	}

	// Another session sees an empty cart.
	rec = f.do(t, http.MethodGet, "/api/cart", "", "other-sess", "")
	decodeBody(t, rec, &c)
	if c.ItemCount != 0 {
		t.Fatalf("other session cart not empty: %+v", c)
	}
}

func TestCheckoutRequiresAuth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/checkout", "", "cart-sess", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	token := f.signIn(t, user.RoleUser)

	rec := f.do(t, http.MethodPost, "/api/checkout", "", "cart-sess", token)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "empty_cart" {
		t.Fatalf("error code = %q, want empty_cart", code)
	}
}

func TestCheckoutCreatesOrderAndClearsCart(t *testing.T) {
	f := newFixture(t)
	token := f.signIn(t, user.RoleUser)

	if rec := f.do(t, http.MethodPost, "/api/cart/items", `{"product_id":2,"quantity":2}`, "cart-sess", ""); rec.Code != http.StatusOK {
		t.Fatalf("add status = %d", rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/api/checkout", "", "cart-sess", token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout status = %d: %s", rec.Code, rec.Body.String())
	}

	var conf confirmationDTO
	decodeBody(t, rec, &conf)
	if conf.Order.TotalPrice != "17.98" {
		t.Fatalf("total = %s, want 17.98", conf.Order.TotalPrice)
	}
	if conf.Order.Status != "pending" {
		t.Fatalf("status = %s, want pending", conf.Order.Status)
	}
	if len(conf.Lines) != 1 || conf.Lines[0].PriceAtPurchase != "8.99" {
		t.Fatalf("unexpected lines: %+v", conf.Lines)
	}

	// The cart is gone after a committed checkout.
	cartRec := f.do(t, http.MethodGet, "/api/cart", "", "cart-sess", "")
	var c cartDTO
	decodeBody(t, cartRec, &c)
	if c.ItemCount != 0 {
		t.Fatalf("cart not cleared: %+v", c)
	}
}

func TestOrderConfirmationScopedToOwner(t *testing.T) {
	f := newFixture(t)
	owner := f.signIn(t, user.RoleUser)

	f.do(t, http.MethodPost, "/api/cart/items", `{"product_id":2,"quantity":1}`, "cart-sess", "")
	rec := f.do(t, http.MethodPost, "/api/checkout", "", "cart-sess", owner)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout status = %d", rec.Code)
	}
	var conf confirmationDTO
	decodeBody(t, rec, &conf)
	orderPath := "/api/orders/" + strconv.FormatInt(conf.Order.ID, 10)

	// The owner can read it.
	if rec := f.do(t, http.MethodGet, orderPath, "", "", owner); rec.Code != http.StatusOK {
		t.Fatalf("owner got status %d, want 200", rec.Code)
	}

	// Anyone else gets a 404, not a 403, so order ids are not probeable.
	other := f.signIn(t, user.RoleAdmin)
	rec = f.do(t, http.MethodGet, orderPath, "", "", other)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign user got status %d, want 404", rec.Code)
	}
}

func TestAdminEndpointsRequireAdminRole(t *testing.T) {
	f := newFixture(t)
	token := f.signIn(t, user.RoleUser)

	rec := f.do(t, http.MethodGet, "/api/admin/orders", "", "", token)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestAdminStatusUpdate(t *testing.T) {
	f := newFixture(t)
	customer := f.signIn(t, user.RoleUser)
	admin := f.signIn(t, user.RoleAdmin)

	f.do(t, http.MethodPost, "/api/cart/items", `{"product_id":2,"quantity":1}`, "cart-sess", "")
	rec := f.do(t, http.MethodPost, "/api/checkout", "", "cart-sess", customer)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout status = %d", rec.Code)
	}
	var conf confirmationDTO
	decodeBody(t, rec, &conf)
	orderPath := "/api/admin/orders/" + strconv.FormatInt(conf.Order.ID, 10) + "/status"

	// Unknown status value is an explicit 400, never a silent no-op.
	rec = f.do(t, http.MethodPut, orderPath, `{"status":"shipped"}`, "", admin)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "invalid_status" {
		t.Fatalf("error code = %q, want invalid_status", code)
	}

	rec = f.do(t, http.MethodPut, orderPath, `{"status":"completed"}`, "", admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	// Completed is terminal.
	rec = f.do(t, http.MethodPut, orderPath, `{"status":"cancelled"}`, "", admin)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "illegal_transition" {
		t.Fatalf("error code = %q, want illegal_transition", code)
	}
}

func TestSearchShortQueryReturnsEmptyList(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/products/search?q=a", "", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var products []productDTO
	decodeBody(t, rec, &products)
	if len(products) != 0 {
		t.Fatalf("got %d products, want 0", len(products))
	}
}

func TestChangePasswordWrongCurrentIsUnauthorized(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/auth/register",
		`{"name":"Ada","email":"ada@example.com","password":"hunter2secret"}`, "", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/api/auth/login",
		`{"email":"ada@example.com","password":"hunter2secret"}`, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &out)

	rec = f.do(t, http.MethodPost, "/api/auth/password",
		`{"current_password":"wrong","new_password":"newpassword1"}`, "", out.Token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if code := errorCode(t, rec); code != "invalid_credentials" {
		t.Fatalf("error code = %q, want invalid_credentials", code)
	}
}
