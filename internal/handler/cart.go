package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shopflow/internal/cart"
	"github.com/iliyamo/shopflow/internal/catalog"
	"github.com/iliyamo/shopflow/internal/errs"
)

// CartHandler exposes the cart state holder. Every response is the full
// priced cart so the visual layer never computes totals itself.
type CartHandler struct {
	Cart    *cart.Cart
	Catalog *catalog.Service
}

func NewCartHandler(c *cart.Cart, svc *catalog.Service) *CartHandler {
	return &CartHandler{Cart: c, Catalog: svc}
}

type addItemReq struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type quantityReq struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Cart.Summary())
}

// AddItem looks the product up first so the line carries current price
// and stock. Quantity defaults to 1.
func (h *CartHandler) AddItem(c echo.Context) error {
	req := addItemReq{Quantity: 1}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.ProductID == "" {
		return respondError(c, errs.Validation("productId", "Product id is required."), "add to cart")
	}
	ctx := c.Request().Context()
	p, err := h.Catalog.Get(ctx, req.ProductID)
	if err != nil {
		return respondError(c, err, "add to cart")
	}
	if err := h.Cart.AddItem(ctx, p, req.Quantity); err != nil {
		return respondError(c, err, "add to cart")
	}
	return c.JSON(http.StatusOK, h.Cart.Summary())
}

// UpdateItem sets a line's quantity; anything below 1 removes it.
func (h *CartHandler) UpdateItem(c echo.Context) error {
	var req quantityReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Cart.UpdateQuantity(c.Request().Context(), c.Param("id"), req.Quantity); err != nil {
		return respondError(c, err, "update cart")
	}
	return c.JSON(http.StatusOK, h.Cart.Summary())
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	if err := h.Cart.RemoveItem(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err, "remove from cart")
	}
	return c.JSON(http.StatusOK, h.Cart.Summary())
}

func (h *CartHandler) Clear(c echo.Context) error {
	if err := h.Cart.Clear(c.Request().Context()); err != nil {
		return respondError(c, err, "clear cart")
	}
	return c.JSON(http.StatusOK, h.Cart.Summary())
}
