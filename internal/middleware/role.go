package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/apperr"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/token"
)

// Authorize decides whether claims satisfy the required role.  Roles are
// ranked user < developer < admin and a higher rank admits lower
// requirements.  Tokens minted for inactive accounts are denied.
func Authorize(claims *token.Claims, required model.Role) error {
	if claims == nil {
		return apperr.Authentication("authentication required")
	}
	if !claims.IsActive {
		return apperr.Authorization("account is not active")
	}
	if claims.Role.Rank() == 0 || claims.Role.Rank() < required.Rank() {
		return apperr.Authorization("insufficient permissions")
	}
	return nil
}

// RequireRole enforces Authorize on a route.  It must run after JWTAuth.
func RequireRole(required model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, _ := ClaimsFrom(c)
			if err := Authorize(claims, required); err != nil {
				return err
			}
			return next(c)
		}
	}
}
