// Package router registers the local storefront API on an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shopflow/internal/handler"
	"github.com/iliyamo/shopflow/internal/middleware"
)

// RegisterRoutes registers routes that need no session.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the session endpoints. throttle guards the calls
// that make the backend send an email.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, throttle echo.MiddlewareFunc) {
	e.GET("/v1/session", a.State)

	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/register", a.Register)
	g.POST("/verify-otp", a.VerifyOTP)
	g.POST("/resend-otp", a.ResendOTP, throttle)
	g.POST("/forgot-password", a.ForgotPassword, throttle)
	g.POST("/reset-password", a.ResetPassword)
	g.POST("/logout", a.Logout)
	g.POST("/refresh", a.Refresh)
}

// RegisterCatalog registers product browsing. Responses go through the
// catalog cache; a nil cache serves everything fresh.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, cache *middleware.CatalogCache) {
	g := e.Group("/v1/products", cache.Middleware())
	g.GET("", h.List)
	g.GET("/:id", h.Get)
}
