package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/apperr"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/token"
)

// Context keys set by JWTAuth.
const (
	ClaimsKey = "claims"
	UserIDKey = "user_id"
	RoleKey   = "role"
)

// TokenValidator checks a raw bearer token.
type TokenValidator interface {
	Validate(ctx context.Context, raw string, expected model.TokenKind) (*token.Claims, error)
}

// JWTAuth validates the Bearer access token of each request and stores the
// claims, user id (uint64) and role in the context.  Failures are returned
// as AuthenticationErrors and rendered by the error handler.
func JWTAuth(v TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, raw, ok := strings.Cut(strings.TrimSpace(h), " ")
			if !ok || !strings.EqualFold(scheme, token.TokenType) || strings.TrimSpace(raw) == "" {
				return apperr.Authentication("missing or malformed authorization header")
			}

			claims, err := v.Validate(c.Request().Context(), strings.TrimSpace(raw), model.TokenAccess)
			if err != nil {
				return err
			}
			uid, err := claims.UserID()
			if err != nil {
				return apperr.Authentication("invalid token")
			}

			c.Set(ClaimsKey, claims)
			c.Set(UserIDKey, uid)
			c.Set(RoleKey, claims.Role)
			return next(c)
		}
	}
}

// ClaimsFrom returns the claims stored by JWTAuth.
func ClaimsFrom(c echo.Context) (*token.Claims, bool) {
	cl, ok := c.Get(ClaimsKey).(*token.Claims)
	return cl, ok && cl != nil
}

// UserIDFrom returns the authenticated user id.
func UserIDFrom(c echo.Context) (uint64, bool) {
	id, ok := c.Get(UserIDKey).(uint64)
	return id, ok
}
