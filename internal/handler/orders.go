package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shopflow/internal/model"
	"github.com/iliyamo/shopflow/internal/orders"
)

// OrderHandler serves the order history, the account dashboard and the
// admin status change.
type OrderHandler struct {
	Orders *orders.Service
}

func NewOrderHandler(svc *orders.Service) *OrderHandler {
	return &OrderHandler{Orders: svc}
}

type statusReq struct {
	Status model.OrderStatus `json:"status"`
}

func (h *OrderHandler) List(c echo.Context) error {
	list, err := h.Orders.List(c.Request().Context())
	if err != nil {
		return respondError(c, err, "list orders")
	}
	return c.JSON(http.StatusOK, list)
}

func (h *OrderHandler) Get(c echo.Context) error {
	o, err := h.Orders.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err, "get order")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) Dashboard(c echo.Context) error {
	d, err := h.Orders.Dashboard(c.Request().Context())
	if err != nil {
		return respondError(c, err, "dashboard")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	o, err := h.Orders.UpdateStatus(c.Request().Context(), c.Param("id"), req.Status)
	if err != nil {
		return respondError(c, err, "update order status")
	}
	return c.JSON(http.StatusOK, o)
}
