package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/handler"
	"github.com/iliyamo/account-service/internal/middleware"
	"github.com/iliyamo/account-service/internal/model"
)

// Deps collects what the routes need.  RateLimit and StatsCache may be nil.
type Deps struct {
	Auth       *handler.AuthHandler
	Users      *handler.UserHandler
	Validator  middleware.TokenValidator
	RateLimit  echo.MiddlewareFunc
	StatsCache echo.MiddlewareFunc
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers /auth.  Login and register are rate limited;
// everything else except refresh needs a valid access token.
func RegisterAuth(e *echo.Echo, d Deps) {
	g := e.Group("/auth")
	limited := optional(d.RateLimit)
	g.POST("/login", d.Auth.Login, limited...)
	g.POST("/register", d.Auth.Register, limited...)
	g.POST("/refresh", d.Auth.Refresh)

	jwt := middleware.JWTAuth(d.Validator)
	g.GET("/me", d.Auth.Me, jwt)
	g.POST("/change-password", d.Auth.ChangePassword, jwt)
	g.POST("/logout", d.Auth.Logout, jwt)
}

// RegisterUsers registers /users.  Reads require developer, writes admin.
func RegisterUsers(e *echo.Echo, d Deps) {
	g := e.Group("/users", middleware.JWTAuth(d.Validator))
	read := middleware.RequireRole(model.RoleDeveloper)
	write := middleware.RequireRole(model.RoleAdmin)

	g.GET("", d.Users.List, read)
	g.GET("/stats", d.Users.Stats, append([]echo.MiddlewareFunc{read}, optional(d.StatsCache)...)...)
	g.GET("/search", d.Users.Search, read)
	g.GET("/:id", d.Users.Get, read)

	g.POST("", d.Users.Create, write)
	g.PUT("/:id", d.Users.Update, write)
	g.DELETE("/:id", d.Users.Delete, write)
	g.POST("/:id/activate", d.Users.Activate, write)
	g.POST("/:id/deactivate", d.Users.Deactivate, write)
	g.POST("/:id/suspend", d.Users.Suspend, write)
	g.POST("/:id/reset-password", d.Users.ResetPassword, write)
}

// Register wires every route group.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e)
	RegisterAuth(e, d)
	RegisterUsers(e, d)
}

func optional(mw echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if mw == nil {
		return nil
	}
	return []echo.MiddlewareFunc{mw}
}
