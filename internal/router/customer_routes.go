package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shopflow/internal/handler"
	"github.com/iliyamo/shopflow/internal/middleware"
	"github.com/iliyamo/shopflow/internal/session"
)

// RegisterCart registers the cart endpoints. Guests have a cart too, so no
// session is required.
func RegisterCart(e *echo.Echo, h *handler.CartHandler) {
	g := e.Group("/v1/cart")
	g.GET("", h.Get)
	g.DELETE("", h.Clear)
	g.POST("/items", h.AddItem)
	g.PATCH("/items/:id", h.UpdateItem)
	g.DELETE("/items/:id", h.RemoveItem)
}

// RegisterCustomer registers checkout and order history. Every route needs
// a logged-in user; guests get a 401 with a login redirect.
func RegisterCustomer(e *echo.Echo, id middleware.Identity, co *handler.CheckoutHandler, o *handler.OrderHandler, throttle echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.RequireSession(id, session.LoginPath))
	g.POST("/checkout", co.Submit, throttle)
	g.POST("/payments/stripe/confirm", co.ConfirmStripe, throttle)
	g.POST("/payments/bkash/confirm", co.ConfirmBkash, throttle)

	g.GET("/orders", o.List)
	g.GET("/orders/:id", o.Get)
	g.GET("/dashboard", o.Dashboard)
}
