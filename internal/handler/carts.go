package handler

import (
	"context"
	"net/http"

	"shopcore/internal/apierror"
	"shopcore/internal/dto"
	"shopcore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CartsHandler struct{ svc service.CartService }

func NewCartsHandler(svc service.CartService) *CartsHandler { return &CartsHandler{svc: svc} }

// GetActive godoc
// @Summary      Get (or lazily create) the user's active cart
// @Tags         carts
// @Produce      json
// @Param        user_id path string true "User UUID"
// @Success      200 {object} dto.CartResponse
// @Router       /v1/users/{user_id}/cart [get]
func (h *CartsHandler) GetActive(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid user id"))
		return
	}
	resp, err := h.svc.GetActiveCart(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CartsHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	resp, err := h.svc.GetCart(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AddItem godoc
// @Summary      Add a product to the user's active cart
// @Description  Merges quantity into an existing line or snapshots the current price into a new one.
// @Tags         carts
// @Accept       json
// @Produce      json
// @Param        user_id path string                 true "User UUID"
// @Param        body    body dto.AddCartItemRequest true "Product and quantity"
// @Success      200  {object} dto.CartResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/users/{user_id}/cart/items [post]
func (h *CartsHandler) AddItem(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid user id"))
		return
	}
	var req dto.AddCartItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddItem(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CartsHandler) UpdateItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid item id"))
		return
	}
	var req dto.UpdateCartItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateItem(c.Request.Context(), itemID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CartsHandler) RemoveItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid item id"))
		return
	}
	resp, err := h.svc.RemoveItem(c.Request.Context(), itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CartsHandler) Save(c *gin.Context) {
	h.transition(c, h.svc.Save)
}

func (h *CartsHandler) Reactivate(c *gin.Context) {
	h.transition(c, h.svc.Reactivate)
}

func (h *CartsHandler) Abandon(c *gin.Context) {
	h.transition(c, h.svc.Abandon)
}

func (h *CartsHandler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	if err := fn(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Checkout godoc
// @Summary      Checkout the cart into a completed sale
// @Description  Atomically creates the sale, decrements stock per line and marks the cart processed.
// @Tags         carts
// @Accept       json
// @Produce      json
// @Param        id   path string              true "Cart UUID"
// @Param        body body dto.CheckoutRequest true "Payment details"
// @Success      201  {object} dto.CheckoutResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/carts/{id}/checkout [post]
func (h *CartsHandler) Checkout(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	var req dto.CheckoutRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Checkout(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
