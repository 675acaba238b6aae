package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/apperr"
	"github.com/iliyamo/account-service/internal/middleware"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/service"
	"github.com/iliyamo/account-service/internal/token"
)

// AuthService is implemented by service.AuthService.
type AuthService interface {
	Login(ctx context.Context, email, password, clientIP string) (*service.AuthResult, error)
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	ChangePassword(ctx context.Context, userID uint64, current, next string) error
	Refresh(ctx context.Context, refreshToken string) (token.Access, error)
	Logout(ctx context.Context, claims *token.Claims)
	Me(ctx context.Context, userID uint64) (service.UserView, error)
}

// AuthHandler serves /auth endpoints.
type AuthHandler struct {
	Auth AuthService
}

func NewAuthHandler(a AuthService) *AuthHandler {
	if a == nil {
		panic("nil auth service passed to NewAuthHandler")
	}
	return &AuthHandler{Auth: a}
}

// bindValid binds the JSON body into req and runs its validation rules.
func bindValid(c echo.Context, req interface {
	Validate() error
}) error {
	if err := c.Bind(req); err != nil {
		return badRequest(err)
	}
	return req.Validate()
}

// Login: POST /auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	res, err := h.Auth.Login(c.Request().Context(), req.Email, req.Password, c.RealIP())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "login successful", res)
}

// Register: POST /auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	res, err := h.Auth.Register(c.Request().Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     model.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "registration successful", res)
}

// Me: GET /auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	u, err := h.Auth.Me(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", map[string]any{"user": u})
}

// ChangePassword: POST /auth/change-password
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req changePasswordReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if err := h.Auth.ChangePassword(c.Request().Context(), uid, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "password changed successfully", nil)
}

// Refresh: POST /auth/refresh
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	access, err := h.Auth.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "token refreshed", access)
}

// Logout: POST /auth/logout.  Always 200 for an authenticated caller.
func (h *AuthHandler) Logout(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return apperr.Authentication("authentication required")
	}
	h.Auth.Logout(c.Request().Context(), claims)
	return respond(c, http.StatusOK, "logout successful", nil)
}
