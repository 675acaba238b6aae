package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/service"
)

// UserService is implemented by service.UserService.
type UserService interface {
	List(ctx context.Context, q repository.UserQuery) (*service.UserPage, error)
	Get(ctx context.Context, id uint64) (service.UserView, error)
	Create(ctx context.Context, in service.CreateUserInput) (service.UserView, error)
	Update(ctx context.Context, id uint64, upd repository.UserUpdate) (service.UserView, error)
	Delete(ctx context.Context, actorID, id uint64) error
	Activate(ctx context.Context, id uint64) (service.UserView, error)
	Deactivate(ctx context.Context, id uint64) (service.UserView, error)
	Suspend(ctx context.Context, id uint64) (service.UserView, error)
	ResetPassword(ctx context.Context, id uint64, password string) error
	Stats(ctx context.Context) (repository.UserStats, error)
	Search(ctx context.Context, term string, limit int) ([]service.UserView, error)
}

// UserHandler serves the /users administration endpoints.
type UserHandler struct {
	Users UserService
}

func NewUserHandler(u UserService) *UserHandler {
	if u == nil {
		panic("nil user service passed to NewUserHandler")
	}
	return &UserHandler{Users: u}
}

func roleOf(s string) model.Role { return model.Role(strings.ToLower(strings.TrimSpace(s))) }
func statusOf(s string) model.Status { return model.Status(strings.ToLower(strings.TrimSpace(s))) }

// List: GET /users?page=&per_page=&search=&role=&status=&sort_by=&sort_order=
func (h *UserHandler) List(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return err
	}
	perPage, err := queryInt(c, "per_page", service.DefaultPerPage)
	if err != nil {
		return err
	}
	res, err := h.Users.List(c.Request().Context(), repository.UserQuery{
		Search:    c.QueryParam("search"),
		Role:      roleOf(c.QueryParam("role")),
		Status:    statusOf(c.QueryParam("status")),
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: c.QueryParam("sort_order"),
		Page:      page,
		PerPage:   perPage,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", res)
}

// Get: GET /users/:id
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	u, err := h.Users.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", map[string]any{"user": u})
}

// Create: POST /users
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	u, err := h.Users.Create(c.Request().Context(), service.CreateUserInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     roleOf(req.Role),
		Status:   statusOf(req.Status),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "user created successfully", map[string]any{"user": u})
}

// Update: PUT /users/:id
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateUserReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	u, err := h.Users.Update(c.Request().Context(), id, req.toUpdate())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "user updated successfully", map[string]any{"user": u})
}

// Delete: DELETE /users/:id
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	actor, err := currentUserID(c)
	if err != nil {
		return err
	}
	if err := h.Users.Delete(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "user deleted successfully", nil)
}

func (h *UserHandler) transition(c echo.Context, op func(context.Context, uint64) (service.UserView, error), msg string) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	u, err := op(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, msg, map[string]any{"user": u})
}

// Activate: POST /users/:id/activate
func (h *UserHandler) Activate(c echo.Context) error {
	return h.transition(c, h.Users.Activate, "user activated successfully")
}

// Deactivate: POST /users/:id/deactivate
func (h *UserHandler) Deactivate(c echo.Context) error {
	return h.transition(c, h.Users.Deactivate, "user deactivated successfully")
}

// Suspend: POST /users/:id/suspend
func (h *UserHandler) Suspend(c echo.Context) error {
	return h.transition(c, h.Users.Suspend, "user suspended successfully")
}

// ResetPassword: POST /users/:id/reset-password
func (h *UserHandler) ResetPassword(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req resetPasswordReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if err := h.Users.ResetPassword(c.Request().Context(), id, req.NewPassword); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "password reset successfully", nil)
}

// Stats: GET /users/stats
func (h *UserHandler) Stats(c echo.Context) error {
	st, err := h.Users.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", map[string]any{"stats": st})
}

// Search: GET /users/search?q=&limit=
func (h *UserHandler) Search(c echo.Context) error {
	limit, err := queryInt(c, "limit", service.DefaultSearchLimit)
	if err != nil {
		return err
	}
	users, err := h.Users.Search(c.Request().Context(), c.QueryParam("q"), limit)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", map[string]any{"users": users, "count": len(users)})
}
