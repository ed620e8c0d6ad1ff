package store

import (
	"sync"

	"github.com/noah-isme/course-gateway/internal/models"
)

// CartStore holds the session user's cart.
type CartStore struct {
	mu     sync.RWMutex
	cart   models.Cart
	loaded bool
}

// NewCartStore constructs an empty, unloaded cart for userID.
func NewCartStore(userID string) *CartStore {
	return &CartStore{cart: models.Cart{UserID: userID}}
}

// Get returns a copy of the cart and whether it was ever loaded.
func (s *CartStore) Get() (models.Cart, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cart := s.cart
	cart.Items = append([]models.CartItem(nil), s.cart.Items...)
	return cart, s.loaded
}

// Load replaces the cart with an authoritative copy.
func (s *CartStore) Load(cart models.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := s.cart.UserID
	s.cart = cart
	s.cart.UserID = userID
	s.cart.Items = append([]models.CartItem(nil), cart.Items...)
	s.loaded = true
}

// Items exposes the item list to the engine.
func (s *CartStore) Items() (func() ([]models.CartItem, error), func([]models.CartItem)) {
	read := func() ([]models.CartItem, error) {
		cart, _ := s.Get()
		return cart.Items, nil
	}
	write := func(items []models.CartItem) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cart.Items = append([]models.CartItem(nil), items...)
	}
	return read, write
}
