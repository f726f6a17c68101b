// Package httpapi exposes the storefront REST API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	app "github.com/astrobite/storefront/internal/app"
	"github.com/astrobite/storefront/internal/app/domain/order"
	"github.com/astrobite/storefront/internal/app/metrics"
	"github.com/astrobite/storefront/internal/app/services/accounts"
	"github.com/astrobite/storefront/internal/app/services/carts"
	"github.com/astrobite/storefront/internal/app/services/checkout"
	orderssvc "github.com/astrobite/storefront/internal/app/services/orders"
	"github.com/astrobite/storefront/internal/middleware"
	"github.com/astrobite/storefront/pkg/logger"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app     *app.Application
	metrics *metrics.Metrics
	log     *logger.Logger
}

// RouterConfig carries the cross-cutting pieces the router needs beyond the
// application itself.
type RouterConfig struct {
	Authenticator  *middleware.Authenticator
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	Log            *logger.Logger
}

// NewRouter returns the fully wired API router.
func NewRouter(application *app.Application, cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, metrics: cfg.Metrics, log: log}
	authn := cfg.Authenticator

	r := mux.NewRouter()
	r.Use(middleware.NewCORSMiddleware(cfg.AllowedOrigins).Handler)
	r.Use(middleware.RequestLogMiddleware(log))
	if cfg.Metrics != nil {
		r.Use(middleware.MetricsMiddleware(cfg.Metrics))
	}
	r.Use(middleware.SessionMiddleware)

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Catalog, open to everyone.
	api.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/featured", h.featuredProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/search", h.searchProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/{id:[0-9]+}", h.getProduct).Methods(http.MethodGet)
	api.HandleFunc("/categories", h.listCategories).Methods(http.MethodGet)
	api.HandleFunc("/stores", h.listStores).Methods(http.MethodGet)

	// Cart, keyed by the session cookie.
	api.HandleFunc("/cart", h.getCart).Methods(http.MethodGet)
	api.HandleFunc("/cart", h.clearCart).Methods(http.MethodDelete)
	api.HandleFunc("/cart/items", h.addCartItem).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{id:[0-9]+}", h.updateCartItem).Methods(http.MethodPut)
	api.HandleFunc("/cart/items/{id:[0-9]+}", h.removeCartItem).Methods(http.MethodDelete)

	// Contact form, throttled.
	contactLimit := middleware.NewRateLimiter(0.2, 3, log)
	contactLimit.StartCleanup(10*time.Minute, time.Hour)
	api.Handle("/contact", contactLimit.Handler(http.HandlerFunc(h.submitContact))).Methods(http.MethodPost)

	// Accounts. Login shares a limiter with registration to slow down
	// credential stuffing.
	loginLimit := middleware.NewRateLimiter(1, 5, log)
	loginLimit.StartCleanup(10*time.Minute, time.Hour)
	api.Handle("/auth/register", loginLimit.Handler(http.HandlerFunc(h.register))).Methods(http.MethodPost)
	api.Handle("/auth/login", loginLimit.Handler(http.HandlerFunc(h.login))).Methods(http.MethodPost)
	api.Handle("/auth/oauth/{provider}", loginLimit.Handler(http.HandlerFunc(h.oauthLogin))).Methods(http.MethodPost)
	api.Handle("/auth/logout", authn.Required(http.HandlerFunc(h.logout))).Methods(http.MethodPost)
	api.Handle("/auth/me", authn.Required(http.HandlerFunc(h.me))).Methods(http.MethodGet)
	api.Handle("/auth/me", authn.Required(http.HandlerFunc(h.updateMe))).Methods(http.MethodPatch)
	api.Handle("/auth/password", authn.Required(http.HandlerFunc(h.changePassword))).Methods(http.MethodPost)

	// Checkout and order history require a signed-in customer.
	api.Handle("/checkout", authn.Required(http.HandlerFunc(h.placeOrder))).Methods(http.MethodPost)
	api.Handle("/orders", authn.Required(http.HandlerFunc(h.listMyOrders))).Methods(http.MethodGet)
	api.Handle("/orders/{id:[0-9]+}", authn.Required(http.HandlerFunc(h.orderConfirmation))).Methods(http.MethodGet)

	// Admin dashboard.
	api.Handle("/admin/orders", authn.AdminOnly(http.HandlerFunc(h.adminListOrders))).Methods(http.MethodGet)
	api.Handle("/admin/orders/{id:[0-9]+}/status", authn.AdminOnly(http.HandlerFunc(h.adminUpdateStatus))).Methods(http.MethodPut)

	return r
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Catalog ---

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	var categoryID *int64
	if raw := r.URL.Query().Get("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "category must be numeric")
			return
		}
		categoryID = &id
	}

	products, err := h.app.Catalog.List(r.Context(), categoryID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "could not load products")
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

func (h *handler) featuredProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.app.Catalog.Featured(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "could not load products")
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

func (h *handler) searchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.app.Catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "search failed")
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

func (h *handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	detail, err := h.app.Catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}

	dto := productDetailDTO{productDTO: toProductDTO(detail.Product), Stock: []stockDTO{}}
	for _, s := range detail.Stock {
		dto.Stock = append(dto.Stock, stockDTO{StoreID: s.StoreID, Quantity: s.Quantity})
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.app.Catalog.Categories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "could not load categories")
		return
	}
	out := make([]categoryDTO, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryDTO{ID: c.ID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) listStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.app.Catalog.Stores(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "could not load stores")
		return
	}
	out := make([]storeDTO, 0, len(stores))
	for _, s := range stores {
		out = append(out, storeDTO{ID: s.ID, Name: s.Name, LocationCode: s.LocationCode, Address: s.Address})
	}
	writeJSON(w, http.StatusOK, out)
}

// --- Cart ---

func (h *handler) getCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.app.Carts.Get(r.Context(), middleware.SessionIDFrom(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "could not load cart")
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(view))
}

func (h *handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if payload.Quantity == 0 {
		payload.Quantity = 1
	}

	view, err := h.app.Carts.Add(r.Context(), middleware.SessionIDFrom(r.Context()), payload.ProductID, payload.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(view))
}

func (h *handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	view, err := h.app.Carts.UpdateQuantity(r.Context(), middleware.SessionIDFrom(r.Context()), pathID(r, "id"), payload.Quantity)
	if err != nil {
		status, code := http.StatusBadRequest, "bad_request"
		if errors.Is(err, carts.ErrNotInCart) {
			status, code = http.StatusNotFound, "not_in_cart"
		}
		writeError(w, status, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(view))
}

func (h *handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.app.Carts.Remove(r.Context(), middleware.SessionIDFrom(r.Context()), pathID(r, "id"))
	if err != nil {
		status, code := http.StatusBadRequest, "bad_request"
		if errors.Is(err, carts.ErrNotInCart) {
			status, code = http.StatusNotFound, "not_in_cart"
		}
		writeError(w, status, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(view))
}

func (h *handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Carts.Clear(r.Context(), middleware.SessionIDFrom(r.Context())); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "could not clear cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Checkout and orders ---

func (h *handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		StoreID *int64 `json:"store_id"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
	}

	u, _ := middleware.UserFrom(r.Context())
	placed, err := h.app.Checkout.Place(r.Context(), u.ID, payload.StoreID, middleware.SessionIDFrom(r.Context()))
	if err != nil {
		if h.metrics != nil {
			h.metrics.CheckoutFails.Inc()
		}
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			writeError(w, http.StatusConflict, "empty_cart", "your cart is empty")
		case errors.Is(err, checkout.ErrPlaceOrder):
			writeError(w, http.StatusInternalServerError, "order_failed", "could not place order, please try again")
		default:
			h.log.WithError(err).Warn("checkout rejected")
			writeError(w, http.StatusBadRequest, "bad_request", "could not process checkout")
		}
		return
	}
	if h.metrics != nil {
		h.metrics.OrdersPlaced.Inc()
	}

	conf, err := h.app.Orders.Confirmation(r.Context(), placed.ID, u.ID)
	if err != nil {
		// The order exists even if the confirmation join failed; return
		// the bare header rather than an error.
		h.log.WithError(err).WithField("order_id", placed.ID).Warn("confirmation lookup failed after checkout")
		writeJSON(w, http.StatusCreated, confirmationDTO{Order: toOrderDTO(placed), Lines: []orderLineDTO{}})
		return
	}
	writeJSON(w, http.StatusCreated, toConfirmationDTO(conf))
}

func (h *handler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.UserFrom(r.Context())
	list, err := h.app.Orders.ListByUser(r.Context(), u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "could not load orders")
		return
	}
	out := make([]orderDTO, 0, len(list))
	for _, o := range list {
		out = append(out, toOrderDTO(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) orderConfirmation(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.UserFrom(r.Context())
	conf, err := h.app.Orders.Confirmation(r.Context(), pathID(r, "id"), u.ID)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}
	writeJSON(w, http.StatusOK, toConfirmationDTO(conf))
}

// --- Admin ---

func (h *handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Orders.ListAll(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "could not load orders")
		return
	}
	out := make([]orderSummaryDTO, 0, len(list))
	for _, s := range list {
		out = append(out, toOrderSummaryDTO(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) adminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	updated, err := h.app.Orders.UpdateStatus(r.Context(), pathID(r, "id"), order.Status(strings.TrimSpace(payload.Status)))
	if err != nil {
		switch {
		case errors.Is(err, orderssvc.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
		case errors.Is(err, orderssvc.ErrIllegalTransition):
			writeError(w, http.StatusConflict, "illegal_transition", err.Error())
		default:
			writeError(w, http.StatusNotFound, "not_found", "order not found")
		}
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(updated))
}

// --- Accounts ---

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	u, err := h.app.Accounts.Register(r.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(u))
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	result, err := h.app.Accounts.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", "login failed")
		return
	}
	h.writeAuthResult(w, result)
}

func (h *handler) oauthLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	result, err := h.app.Accounts.OAuthLogin(r.Context(), mux.Vars(r)["provider"], payload.Code)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "oauth_failed", "social sign-in failed")
		return
	}
	h.writeAuthResult(w, result)
}

func (h *handler) writeAuthResult(w http.ResponseWriter, result accounts.AuthResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    result.Token,
		Path:     "/",
		Expires:  time.Now().Add(24 * time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"token": result.Token,
		"user":  toUserDTO(result.User),
	})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	token := ""
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		token = strings.TrimPrefix(header, "Bearer ")
	} else if c, err := r.Cookie(middleware.TokenCookie); err == nil {
		token = c.Value
	}
	if err := h.app.Accounts.Logout(r.Context(), token); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "logout failed")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.UserFrom(r.Context())
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

func (h *handler) updateMe(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	u, _ := middleware.UserFrom(r.Context())
	updated, err := h.app.Accounts.UpdateName(r.Context(), u.ID, payload.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(updated))
}

func (h *handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Current string `json:"current_password"`
		New     string `json:"new_password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	u, _ := middleware.UserFrom(r.Context())
	if err := h.app.Accounts.ChangePassword(r.Context(), u.ID, payload.Current, payload.New); err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Contact ---

func (h *handler) submitContact(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Message string `json:"message"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if err := h.app.Contact.Submit(r.Context(), payload.Name, payload.Email, payload.Message); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// --- Helpers ---

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
