package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole enforces that the "role" stored by JWTAuth is one of roles.
// Anything else, including a missing role, is a 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("role").(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "you do not have permission to perform this action"})
			}
			return next(c)
		}
	}
}

// Identity is the logged-in user as the storefront process knows it.
type Identity interface {
	UserID() string
	IsAdmin() bool
}

// RequireSession rejects storefront requests made while nobody is logged
// in and tells the visual layer to show the login page.  The user id is
// stored under "user_id" for the throttle key.
func RequireSession(id Identity, loginPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid := id.UserID()
			if uid == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error":    "Login required",
					"message":  "Please log in to continue.",
					"redirect": loginPath,
				})
			}
			c.Set("user_id", uid)
			return next(c)
		}
	}
}

// RequireAdmin must run after RequireSession.
func RequireAdmin(id Identity) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !id.IsAdmin() {
				return c.JSON(http.StatusForbidden, echo.Map{
					"error":   "Forbidden",
					"message": "Admin access required.",
				})
			}
			return next(c)
		}
	}
}
