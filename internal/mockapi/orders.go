package mockapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shopflow/internal/model"
	"github.com/iliyamo/shopflow/internal/repository"
)

type statusReq struct {
	Status model.OrderStatus `json:"status"`
}

// ListOrders returns the caller's own orders, newest first.
func (s *Server) ListOrders(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	return c.JSON(http.StatusOK, s.orders.ListByUser(ctx, s.uid(c)))
}

// GetOrder hides other users' orders behind a 404. Admins see every order.
func (s *Server) GetOrder(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := s.orders.Get(ctx, c.Param("id"))
	if err != nil || (o.UserID != s.uid(c) && !s.isAdmin(c)) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}
	return c.JSON(http.StatusOK, o)
}

// CreateOrder prices the lines from the catalog, takes the stock and
// stores a pending order.
func (s *Server) CreateOrder(c echo.Context) error {
	var in model.OrderInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(in.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"items": []string{"At least one item is required."}})
	}
	for _, l := range in.Items {
		if l.ProductID == "" || l.Quantity < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"items": []string{"Every item needs a product and a positive quantity."}})
		}
	}
	if !in.PaymentProvider.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"paymentProvider": []string{"Choose stripe or bkash."}})
	}
	addr := in.ShippingAddress.Normalized()
	if err := addr.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"shippingAddress": []string{"Street, city, state and zip are required."}})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := s.products.Reserve(ctx, in.Items)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "one of the products no longer exists"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "one of the products is no longer available"})
		case errors.Is(err, repository.ErrInsufficientStock):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "not enough stock for one of the products"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reserve stock failed"})
	}
	o, err := s.orders.Create(ctx, model.Order{
		UserID:          s.uid(c),
		Items:           items,
		PaymentProvider: in.PaymentProvider,
		ShippingAddress: addr,
	})
	if err != nil {
		s.products.Release(ctx, items)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create order failed"})
	}
	log.Printf("mockapi: order %s created for %s (%s)", o.ID, o.UserID, o.Total.StringFixed(2))
	return c.JSON(http.StatusCreated, o)
}

// UpdateOrderStatus is the admin status change. Cancelling returns the
// stock to the catalog.
func (s *Server) UpdateOrderStatus(c echo.Context) error {
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if !req.Status.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": []string{"Unknown status."}})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := s.orders.UpdateStatus(ctx, c.Param("id"), req.Status)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "status transition not allowed"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if o.Status == model.OrderCancelled {
		s.products.Release(ctx, o.Items)
	}
	return c.JSON(http.StatusOK, o)
}
