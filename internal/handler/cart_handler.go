package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-gateway/internal/dto"
	"github.com/noah-isme/course-gateway/pkg/response"
)

// CartHandler exposes the caller's cart.
type CartHandler struct{}

// NewCartHandler builds a new handler.
func NewCartHandler() *CartHandler {
	return &CartHandler{}
}

// Get godoc
// @Summary Get the cart
// @Tags Cart
// @Produce json
// @Param refresh query bool false "Refetch from the marketplace"
// @Success 200 {object} response.Envelope
// @Router /cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	cart, err := session.Cart.Get(c.Request.Context(), queryBool(c, "refresh"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, dto.NewCartView(cart))
}

// RemoveItem godoc
// @Summary Remove an item from the cart
// @Tags Cart
// @Produce json
// @Param id path string true "Cart item ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cart/items/{id} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	cart, err := session.Cart.RemoveItem(mutationContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, dto.NewCartView(cart))
}
