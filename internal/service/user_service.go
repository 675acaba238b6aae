package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/account-service/internal/apperr"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/utils"
)

const (
	DefaultPerPage     = 10
	MaxPerPage         = 100
	DefaultSearchLimit = 10
	MaxSearchLimit     = 100
)

// UserDirectory is the storage behind user administration.
type UserDirectory interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
	Update(ctx context.Context, id uint64, upd repository.UserUpdate) error
	SetStatus(ctx context.Context, id uint64, status model.Status) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, q repository.UserQuery) ([]model.User, int64, error)
	Search(ctx context.Context, term string, limit int) ([]model.User, error)
	Stats(ctx context.Context, now time.Time) (repository.UserStats, error)
}

// UserService implements the administrative user operations.
type UserService struct {
	users  UserDirectory
	hasher PasswordHasher
	log    Logger
	now    func() time.Time
}

func NewUserService(users UserDirectory, hasher PasswordHasher, log Logger) *UserService {
	if users == nil || hasher == nil || log == nil {
		panic("service: NewUserService requires all dependencies")
	}
	return &UserService{users: users, hasher: hasher, log: log, now: time.Now}
}

// UserPage is one page of a user listing.
type UserPage struct {
	Users      []UserView `json:"users"`
	Pagination Pagination `json:"pagination"`
}

// List returns a filtered, sorted page of users.  Paging arguments are
// clamped: page to at least 1, per_page to 1..100 with 10 as default.
func (s *UserService) List(ctx context.Context, q repository.UserQuery) (*UserPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	if q.Role != "" && !q.Role.Valid() {
		return nil, apperr.Validation("invalid role filter", map[string]any{"role": string(q.Role)})
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, apperr.Validation("invalid status filter", map[string]any{"status": string(q.Status)})
	}

	users, total, err := s.users.List(ctx, q)
	if err != nil {
		return nil, apperr.Internal("list users", err)
	}
	return &UserPage{Users: newUserViews(users), Pagination: NewPagination(q.Page, q.PerPage, total)}, nil
}

func (s *UserService) Get(ctx context.Context, id uint64) (UserView, error) {
	u, err := s.get(ctx, id)
	if err != nil {
		return UserView{}, err
	}
	return NewUserView(u), nil
}

// CreateUserInput is an admin-provisioned account.
type CreateUserInput struct {
	Email    string
	Password string
	Name     string
	Role     model.Role
	Status   model.Status
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (UserView, error) {
	if in.Role == "" {
		in.Role = model.RoleDeveloper
	}
	if in.Status == "" {
		in.Status = model.StatusActive
	}
	if !in.Role.Valid() || !in.Status.Valid() {
		return UserView{}, apperr.Validation("invalid role or status", nil)
	}
	email := utils.NormalizeEmail(in.Email)
	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return UserView{}, err
	}
	if err := checkPassword(in.Password); err != nil {
		return UserView{}, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return UserView{}, apperr.Internal("hash password", err)
	}
	u := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Role:         in.Role,
		Status:       in.Status,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return UserView{}, apperr.Conflict("email already in use")
		}
		return UserView{}, apperr.Internal("create user", err)
	}
	s.log.Infof("user %d created (%s, %s)", u.ID, utils.MaskEmail(u.Email), u.Role)
	return NewUserView(u), nil
}

// Update applies a partial update.  Changing the email checks it is free.
func (s *UserService) Update(ctx context.Context, id uint64, upd repository.UserUpdate) (UserView, error) {
	cur, err := s.get(ctx, id)
	if err != nil {
		return UserView{}, err
	}
	if upd.Role != nil && !upd.Role.Valid() {
		return UserView{}, apperr.Validation("invalid role", map[string]any{"role": string(*upd.Role)})
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return UserView{}, apperr.Validation("invalid status", map[string]any{"status": string(*upd.Status)})
	}
	if upd.Email != nil {
		email := utils.NormalizeEmail(*upd.Email)
		upd.Email = &email
		if email != cur.Email {
			if err := s.ensureEmailFree(ctx, email, id); err != nil {
				return UserView{}, err
			}
		}
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		upd.Name = &name
	}

	if err := s.users.Update(ctx, id, upd); err != nil {
		return UserView{}, s.writeErr("update user", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a user.  An admin cannot delete their own account.
func (s *UserService) Delete(ctx context.Context, actorID, id uint64) error {
	if actorID == id {
		return apperr.Validation("cannot delete your own account", nil)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return s.writeErr("delete user", err)
	}
	s.log.Infof("user %d deleted by %d", id, actorID)
	return nil
}

func (s *UserService) Activate(ctx context.Context, id uint64) (UserView, error) {
	return s.setStatus(ctx, id, model.StatusActive)
}

func (s *UserService) Deactivate(ctx context.Context, id uint64) (UserView, error) {
	return s.setStatus(ctx, id, model.StatusInactive)
}

func (s *UserService) Suspend(ctx context.Context, id uint64) (UserView, error) {
	return s.setStatus(ctx, id, model.StatusSuspended)
}

func (s *UserService) setStatus(ctx context.Context, id uint64, st model.Status) (UserView, error) {
	if err := s.users.SetStatus(ctx, id, st); err != nil {
		return UserView{}, s.writeErr("set status", err)
	}
	s.log.Infof("user %d status set to %s", id, st)
	return s.Get(ctx, id)
}

// ResetPassword sets a new password without knowing the old one.
func (s *UserService) ResetPassword(ctx context.Context, id uint64, password string) error {
	if err := checkPassword(password); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return apperr.Internal("hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		return s.writeErr("reset password", err)
	}
	s.log.Infof("password reset for user %d", id)
	return nil
}

func (s *UserService) Stats(ctx context.Context) (repository.UserStats, error) {
	st, err := s.users.Stats(ctx, s.now())
	if err != nil {
		return repository.UserStats{}, apperr.Internal("user stats", err)
	}
	return st, nil
}

// Search matches name or email, returning at most limit users.
func (s *UserService) Search(ctx context.Context, term string, limit int) ([]UserView, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperr.Validation("search query is required", map[string]any{"q": "cannot be blank"})
	}
	if limit < 1 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	users, err := s.users.Search(ctx, term, limit)
	if err != nil {
		return nil, apperr.Internal("search users", err)
	}
	return newUserViews(users), nil
}

func (s *UserService) get(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("lookup user", err)
	}
	return u, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string, self uint64) error {
	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return nil
	case err != nil:
		return apperr.Internal("lookup user", err)
	case u.ID != self:
		return apperr.Conflict("email already in use")
	}
	return nil
}

func (s *UserService) writeErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return apperr.NotFound("user not found")
	case errors.Is(err, repository.ErrEmailExists):
		return apperr.Conflict("email already in use")
	}
	return apperr.Internal(op, err)
}
