package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/apperr"
	"github.com/iliyamo/account-service/internal/middleware"
)

// envelope wraps successful responses.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respond(c echo.Context, status int, msg string, data any) error {
	return c.JSON(status, envelope{Success: true, Message: msg, Data: data})
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid user id", map[string]any{"id": c.Param("id")})
	}
	return id, nil
}

// currentUserID returns the id JWTAuth stored in the context.
func currentUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserIDFrom(c)
	if !ok {
		return 0, apperr.Authentication("authentication required")
	}
	return id, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation("invalid query parameter", map[string]any{name: "must be an integer"})
	}
	return n, nil
}
