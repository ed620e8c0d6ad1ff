package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/course-gateway/internal/models"
)

// SessionInfo describes the caller's gateway session.
type SessionInfo struct {
	ID        string                  `json:"id"`
	UserID    string                  `json:"userId"`
	Role      models.UserRole         `json:"role"`
	CreatedAt time.Time               `json:"createdAt"`
	LastSeen  time.Time               `json:"lastSeen"`
	InFlight  []models.MutationRecord `json:"inFlight"`
}

// CartView is the cart with its computed total.
type CartView struct {
	UserID string            `json:"userId"`
	Items  []models.CartItem `json:"items"`
	Total  decimal.Decimal   `json:"total"`
}

// NewCartView builds the response for a cart.
func NewCartView(cart models.Cart) CartView {
	items := cart.Items
	if items == nil {
		items = []models.CartItem{}
	}
	return CartView{UserID: cart.UserID, Items: items, Total: cart.Total()}
}
