// Package memory is an in-memory implementation of the storage interfaces.
// It is safe for concurrent use and is primarily intended for tests and
// local development.
package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/astrobite/storefront/internal/app/domain/catalog"
	"github.com/astrobite/storefront/internal/app/domain/order"
	"github.com/astrobite/storefront/internal/app/domain/user"
	"github.com/astrobite/storefront/internal/app/storage"
)

// Store holds all aggregates behind one lock.
type Store struct {
	mu         sync.RWMutex
	nextID     int64
	products   map[int64]catalog.Product
	categories map[int64]catalog.Category
	stores     map[int64]catalog.Store
	stock      map[int64][]catalog.StockLevel
	orders     map[int64]order.Order
	orderLines map[int64][]order.Line
	users      map[int64]user.User
	sessions   map[string]user.Session
}

var _ storage.CatalogStore = (*Store)(nil)
var _ storage.OrderStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:     1,
		products:   make(map[int64]catalog.Product),
		categories: make(map[int64]catalog.Category),
		stores:     make(map[int64]catalog.Store),
		stock:      make(map[int64][]catalog.StockLevel),
		orders:     make(map[int64]order.Order),
		orderLines: make(map[int64][]order.Line),
		users:      make(map[int64]user.User),
		sessions:   make(map[string]user.Session),
	}
}

func (s *Store) nextIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// CatalogStore implementation ------------------------------------------------

func (s *Store) CreateProduct(_ context.Context, p catalog.Product) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		p.ID = s.nextIDLocked()
	} else if _, exists := s.products[p.ID]; exists {
		return catalog.Product{}, fmt.Errorf("product %d already exists", p.ID)
	}
	p.CreatedAt = time.Now().UTC()
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, fmt.Errorf("product %d not found", id)
	}
	return p, nil
}

func (s *Store) ListProducts(_ context.Context, categoryID *int64) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []catalog.Product
	for _, p := range s.products {
		if categoryID != nil && p.CategoryID != *categoryID {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) SearchProducts(_ context.Context, query string, limit int) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	var result []catalog.Product
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) RandomProducts(_ context.Context, n int) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		all = append(all, p)
	}
	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (s *Store) UpdateProductPrice(_ context.Context, id int64, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return fmt.Errorf("product %d not found", id)
	}
	p.Price = price
	s.products[id] = p
	return nil
}

func (s *Store) CreateCategory(_ context.Context, c catalog.Category) (catalog.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == 0 {
		c.ID = s.nextIDLocked()
	}
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) ListCategories(_ context.Context) ([]catalog.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []catalog.Category
	for _, c := range s.categories {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) CreateStore(_ context.Context, st catalog.Store) (catalog.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.ID == 0 {
		st.ID = s.nextIDLocked()
	}
	s.stores[st.ID] = st
	return st, nil
}

func (s *Store) ListStores(_ context.Context) ([]catalog.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []catalog.Store
	for _, st := range s.stores {
		result = append(result, st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) SetStock(_ context.Context, level catalog.StockLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	levels := s.stock[level.ProductID]
	for i := range levels {
		if levels[i].StoreID == level.StoreID {
			levels[i].Quantity = level.Quantity
			return nil
		}
	}
	s.stock[level.ProductID] = append(levels, level)
	return nil
}

func (s *Store) StockLevels(_ context.Context, productID int64) ([]catalog.StockLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	levels := append([]catalog.StockLevel(nil), s.stock[productID]...)
	sort.Slice(levels, func(i, j int) bool { return levels[i].StoreID < levels[j].StoreID })
	return levels, nil
}

// OrderStore implementation --------------------------------------------------

func (s *Store) CreateOrder(_ context.Context, ord order.Order, lines []order.Line) (order.Order, error) {
	if len(lines) == 0 {
		return order.Order{}, fmt.Errorf("order must have at least one line")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Reject up front so a bad line never leaves a header behind; mirrors
	// the SQL store's transactional all-or-nothing behavior.
	for _, ln := range lines {
		if ln.Quantity <= 0 {
			return order.Order{}, fmt.Errorf("order line for product %d has non-positive quantity", ln.ProductID)
		}
	}

	ord.ID = s.nextIDLocked()
	ord.CreatedAt = time.Now().UTC()
	if ord.Status == "" {
		ord.Status = order.StatusPending
	}

	stored := make([]order.Line, len(lines))
	for i, ln := range lines {
		ln.OrderID = ord.ID
		stored[i] = ln
	}

	s.orders[ord.ID] = ord
	s.orderLines[ord.ID] = stored
	return ord, nil
}

func (s *Store) GetOrder(_ context.Context, id int64) (order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ord, ok := s.orders[id]
	if !ok {
		return order.Order{}, fmt.Errorf("order %d not found", id)
	}
	return ord, nil
}

func (s *Store) OrderLines(_ context.Context, orderID int64) ([]order.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := append([]order.Line(nil), s.orderLines[orderID]...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

func (s *Store) GetConfirmation(_ context.Context, orderID, userID int64) (order.Confirmation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ord, ok := s.orders[orderID]
	if !ok || ord.UserID != userID {
		return order.Confirmation{}, fmt.Errorf("order %d not found", orderID)
	}

	conf := order.Confirmation{Order: ord}
	if ord.StoreID != nil {
		if st, ok := s.stores[*ord.StoreID]; ok {
			conf.StoreName = st.Name
			conf.StoreCode = st.LocationCode
			conf.StoreAddr = st.Address
		}
	}
	for _, ln := range s.orderLines[orderID] {
		cl := order.ConfirmationLine{Line: ln}
		if p, ok := s.products[ln.ProductID]; ok {
			cl.ProductName = p.Name
			cl.Image = p.Image1
		}
		conf.Lines = append(conf.Lines, cl)
	}
	sort.Slice(conf.Lines, func(i, j int) bool { return conf.Lines[i].ProductID < conf.Lines[j].ProductID })
	return conf, nil
}

func (s *Store) ListOrders(_ context.Context, status order.Status, limit int) ([]order.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []order.Summary
	for _, ord := range s.orders {
		if status != "" && ord.Status != status {
			continue
		}
		sum := order.Summary{Order: ord}
		if u, ok := s.users[ord.UserID]; ok {
			sum.CustomerName = u.Name
			sum.CustomerEmail = u.Email
		}
		if ord.StoreID != nil {
			if st, ok := s.stores[*ord.StoreID]; ok {
				sum.StoreName = st.Name
				sum.LocationCode = st.LocationCode
			}
		}
		result = append(result, sum)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) ListUserOrders(_ context.Context, userID int64) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []order.Order
	for _, ord := range s.orders {
		if ord.UserID == userID {
			result = append(result, ord)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id int64, status order.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ord, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("order %d not found", id)
	}
	ord.Status = status
	s.orders[id] = ord
	return nil
}

// UserStore implementation ---------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return user.User{}, fmt.Errorf("email %s already registered", u.Email)
		}
	}

	u.ID = s.nextIDLocked()
	if u.Role == "" {
		u.Role = user.RoleUser
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %d not found", id)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, fmt.Errorf("user with email %s: %w", email, storage.ErrNotFound)
}

func (s *Store) GetUserByProvider(_ context.Context, provider, providerID string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Provider == provider && u.ProviderID == providerID {
			return u, nil
		}
	}
	return user.User{}, fmt.Errorf("user for %s/%s: %w", provider, providerID, storage.ErrNotFound)
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, fmt.Errorf("user %d not found", u.ID)
	}
	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) CreateSession(_ context.Context, sess user.Session) (user.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess.CreatedAt = time.Now().UTC()
	s.sessions[sess.TokenHash] = sess
	return sess, nil
}

func (s *Store) GetSessionByTokenHash(_ context.Context, tokenHash string) (user.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[tokenHash]
	if !ok || time.Now().After(sess.ExpiresAt) {
		return user.Session{}, fmt.Errorf("session not found")
	}
	return sess, nil
}

func (s *Store) DeleteSession(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, tokenHash)
	return nil
}
