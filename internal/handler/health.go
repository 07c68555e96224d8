package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness probe of the local API.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
