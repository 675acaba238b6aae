package middleware

// identity.go holds helpers shared by the rate limiter and cache to derive
// a stable caller identity from the request context.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userID returns the authenticated user id as a string, or "anon" when
// the request carries no validated token.
func userID(c echo.Context) string {
	if id, ok := UserIDFrom(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
