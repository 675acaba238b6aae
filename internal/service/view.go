// Package service holds the account and authentication use cases.  Handlers
// call into it; it talks to storage, tokens and the job queue through the
// narrow interfaces declared here.
package service

import (
	"math"
	"time"

	"github.com/iliyamo/account-service/internal/model"
)

// Logger is the subset of echo.Logger services write to.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// UserView is the sanitized representation returned to clients.
type UserView struct {
	ID         uint64       `json:"id"`
	Email      string       `json:"email"`
	Name       string       `json:"name"`
	Role       model.Role   `json:"role"`
	Status     model.Status `json:"status"`
	IsActive   bool         `json:"is_active"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	LastLogin  *time.Time   `json:"last_login"`
	LoginCount int          `json:"login_count"`
	LastIP     *string      `json:"last_ip"`
}

func NewUserView(u *model.User) UserView {
	return UserView{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       u.Role,
		Status:     u.Status,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
		LastLogin:  u.LastLogin,
		LoginCount: u.LoginCount,
		LastIP:     u.LastIP,
	}
}

func newUserViews(users []model.User) []UserView {
	out := make([]UserView, 0, len(users))
	for i := range users {
		out = append(out, NewUserView(&users[i]))
	}
	return out
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
	HasPrev bool  `json:"has_prev"`
	HasNext bool  `json:"has_next"`
	PrevNum *int  `json:"prev_num"`
	NextNum *int  `json:"next_num"`
}

func NewPagination(page, perPage int, total int64) Pagination {
	pages := 0
	if perPage > 0 {
		pages = int(math.Ceil(float64(total) / float64(perPage)))
	}
	p := Pagination{
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   pages,
		HasPrev: page > 1,
		HasNext: page < pages,
	}
	if p.HasPrev {
		n := page - 1
		p.PrevNum = &n
	}
	if p.HasNext {
		n := page + 1
		p.NextNum = &n
	}
	return p
}
