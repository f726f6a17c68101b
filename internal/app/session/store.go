// Package session holds per-session cart state behind a key-value store
// interface. The checkout flow queries and clears it through explicit calls;
// nothing in the core logic reaches into ambient session state.
package session

import (
	"context"
	"sync"

	"github.com/astrobite/storefront/internal/app/domain/cart"
)

// CartStore maps a session id to its cart. Get on an unknown session returns
// an empty cart, never an error.
type CartStore interface {
	Get(ctx context.Context, sessionID string) (cart.Cart, error)
	Put(ctx context.Context, sessionID string, c cart.Cart) error
	Clear(ctx context.Context, sessionID string) error
}

// MemoryCartStore is a process-local CartStore for tests and single-node
// development.
type MemoryCartStore struct {
	mu    sync.RWMutex
	carts map[string]cart.Cart
}

var _ CartStore = (*MemoryCartStore)(nil)

// NewMemoryCartStore creates an empty store.
func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{carts: make(map[string]cart.Cart)}
}

func (s *MemoryCartStore) Get(_ context.Context, sessionID string) (cart.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[sessionID]
	if !ok {
		return cart.Cart{}, nil
	}
	return c.Clone(), nil
}

func (s *MemoryCartStore) Put(_ context.Context, sessionID string, c cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.carts[sessionID] = c.Clone()
	return nil
}

func (s *MemoryCartStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, sessionID)
	return nil
}
