package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shopflow/internal/checkout"
	"github.com/iliyamo/shopflow/internal/middleware"
)

// CheckoutHandler places orders and relays payment provider callbacks.
type CheckoutHandler struct {
	Checkout *checkout.Service
	// Cache is dropped after an order is placed since stock changed.
	Cache *middleware.CatalogCache
}

func NewCheckoutHandler(svc *checkout.Service, cache *middleware.CatalogCache) *CheckoutHandler {
	return &CheckoutHandler{Checkout: svc, Cache: cache}
}

type stripeConfirmReq struct {
	PaymentIntentID string `json:"paymentIntentId"`
}

type bkashConfirmReq struct {
	PaymentID string `json:"paymentId"`
}

// Submit answers 201 with the order, the payment hand-off and the page to
// navigate to. A failed submission keeps the cart.
func (h *CheckoutHandler) Submit(c echo.Context) error {
	var req checkout.Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	res, err := h.Checkout.Submit(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err, "checkout")
	}
	h.Cache.Invalidate(c.Request().Context())
	return c.JSON(http.StatusCreated, res)
}

func (h *CheckoutHandler) ConfirmStripe(c echo.Context) error {
	var req stripeConfirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	conf, err := h.Checkout.ConfirmStripe(c.Request().Context(), req.PaymentIntentID)
	if err != nil {
		return respondError(c, err, "confirm stripe")
	}
	return c.JSON(http.StatusOK, conf)
}

func (h *CheckoutHandler) ConfirmBkash(c echo.Context) error {
	var req bkashConfirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	conf, err := h.Checkout.ConfirmBkash(c.Request().Context(), req.PaymentID)
	if err != nil {
		return respondError(c, err, "confirm bkash")
	}
	return c.JSON(http.StatusOK, conf)
}
