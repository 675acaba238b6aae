package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/account-service/internal/apperr"
	"github.com/iliyamo/account-service/internal/handler"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/token"
)

type denyAll struct{}

func (denyAll) Validate(context.Context, string, model.TokenKind) (*token.Claims, error) {
	return nil, apperr.Authentication("invalid token")
}

func TestRegister_Routes(t *testing.T) {
	e := echo.New()
	Register(e, Deps{
		Auth:      &handler.AuthHandler{},
		Users:     &handler.UserHandler{},
		Validator: denyAll{},
	})

	got := map[string]bool{}
	for _, r := range e.Routes() {
		got[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"POST /auth/login",
		"POST /auth/register",
		"POST /auth/refresh",
		"GET /auth/me",
		"POST /auth/change-password",
		"POST /auth/logout",
		"GET /users",
		"POST /users",
		"GET /users/stats",
		"GET /users/search",
		"GET /users/:id",
		"PUT /users/:id",
		"DELETE /users/:id",
		"POST /users/:id/activate",
		"POST /users/:id/deactivate",
		"POST /users/:id/suspend",
		"POST /users/:id/reset-password",
	} {
		assert.True(t, got[want], "missing route %s", want)
	}
}

func TestRegister_ProtectedRoutesNeedToken(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = handler.ErrorHandler(e.Logger)
	Register(e, Deps{Auth: &handler.AuthHandler{}, Users: &handler.UserHandler{}, Validator: denyAll{}})

	for _, path := range []string{"/users", "/users/stats", "/users/7", "/auth/me"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}
