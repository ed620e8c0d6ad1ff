package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/course-gateway/internal/models"
	"github.com/noah-isme/course-gateway/internal/optimistic"
	"github.com/noah-isme/course-gateway/internal/store"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
)

// CartService manages the session user's cart.
type CartService struct {
	userID string
	cart   *store.CartStore
	engine *optimistic.Engine
	remote cartRemote
	logger *zap.Logger

	mu sync.Mutex
}

// NewCartService wires the cart for one session.
func NewCartService(userID string, cart *store.CartStore, engine *optimistic.Engine, remote cartRemote, logger *zap.Logger) *CartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{userID: userID, cart: cart, engine: engine, remote: remote, logger: logger}
}

// Get returns the cart, fetching it on first use or when refresh is set.
func (s *CartService) Get(ctx context.Context, refresh bool) (models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, loaded := s.cart.Get(); refresh || !loaded {
		cart, err := s.remote.GetCart(ctx)
		if err != nil {
			return models.Cart{}, err
		}
		s.engine.Supersede(cartKey(s.userID))
		s.cart.Load(cart)
	}
	cart, _ := s.cart.Get()
	return cart, nil
}

// RemoveItem drops an item at once and reconciles with the server's cart.
func (s *CartService) RemoveItem(ctx context.Context, itemID string) (models.Cart, error) {
	if _, err := s.Get(ctx, false); err != nil {
		return models.Cart{}, err
	}
	read, write := s.cart.Items()
	_, err := optimistic.Apply(ctx, s.engine, optimistic.Mutation[[]models.CartItem]{
		Key:    cartKey(s.userID),
		Policy: optimistic.Wait,
		Read:   read,
		Write:  write,
		Propose: func(current []models.CartItem) ([]models.CartItem, error) {
			items, found := models.Cart{Items: current}.Without(itemID)
			if !found {
				return current, appErrors.Clone(appErrors.ErrNotFound, "item is not in the cart")
			}
			return items, nil
		},
		Remote: func(ctx context.Context, _ []models.CartItem) ([]models.CartItem, error) {
			cart, err := s.remote.RemoveCartItem(ctx, itemID)
			if err != nil {
				return nil, err
			}
			return cart.Items, nil
		},
		Equal:   models.SameItems,
		Success: "Item removed from cart",
		Failure: "Could not remove item",
	})
	if err != nil {
		return models.Cart{}, err
	}
	cart, _ := s.cart.Get()
	return cart, nil
}
