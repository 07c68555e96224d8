package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shopflow/internal/handler"
	"github.com/iliyamo/shopflow/internal/middleware"
	"github.com/iliyamo/shopflow/internal/session"
)

// RegisterAdmin registers the admin panel under /v1/admin. The backend
// enforces the role as well; checking it here saves the round trip.
func RegisterAdmin(e *echo.Echo, id middleware.Identity, p *handler.CatalogHandler, o *handler.OrderHandler) {
	g := e.Group(
		"/v1/admin",
		middleware.RequireSession(id, session.LoginPath),
		middleware.RequireAdmin(id),
	)
	g.POST("/products", p.Create)
	g.PATCH("/products/:id", p.Update)
	g.DELETE("/products/:id", p.Delete)
	g.POST("/products/:id/toggle", p.Toggle)

	g.PATCH("/orders/:id/status", o.UpdateStatus)
}
