package models

import "github.com/shopspring/decimal"

// CartItem is a course placed in the cart, priced at the time it was added.
type CartItem struct {
	ID       string          `json:"id"`
	CourseID string          `json:"courseId"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
}

// Cart is the user's shopping cart.
type Cart struct {
	UserID string     `json:"userId"`
	Items  []CartItem `json:"items"`
}

// Total sums the item prices.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Price)
	}
	return total
}

// Without returns a copy of the items minus the one with the given id.
func (c Cart) Without(itemID string) ([]CartItem, bool) {
	items := make([]CartItem, 0, len(c.Items))
	found := false
	for _, item := range c.Items {
		if item.ID == itemID {
			found = true
			continue
		}
		items = append(items, item)
	}
	return items, found
}

// SameItems compares two item lists by id and price, order-sensitive.
func SameItems(a, b []CartItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].CourseID != b[i].CourseID || !a[i].Price.Equal(b[i].Price) {
			return false
		}
	}
	return true
}
