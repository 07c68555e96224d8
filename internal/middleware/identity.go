package middleware

// identity.go derives the key a request is throttled under.  Logged-in
// visitors are keyed by user id; everyone else by client IP.

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// userID returns the id stored by JWTAuth or RequireSession, or "guest".
func userID(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s
	}
	return "guest"
}

func throttleKey(prefix string, c echo.Context) string {
	who := userID(c)
	if who == "guest" {
		ip := c.RealIP()
		if ip == "" {
			ip = "unknown"
		}
		who = "ip:" + ip
	} else {
		who = "user:" + who
	}
	return strings.Join([]string{prefix, who, c.Request().Method + " " + c.Path()}, ":")
}
