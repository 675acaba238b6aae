package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/account-service/internal/apperr"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/token"
	"github.com/iliyamo/account-service/internal/utils"
)

// UserStore is the storage the auth flows need.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetActiveByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	RecordLogin(ctx context.Context, id uint64, ip string, at time.Time) error
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

type TokenIssuer interface {
	Issue(u *model.User) (token.Pair, error)
	IssueAccess(u *model.User) (token.Access, error)
}

type TokenValidator interface {
	Validate(ctx context.Context, raw string, expected model.TokenKind) (*token.Claims, error)
}

// Notifier schedules outbound jobs.
type Notifier interface {
	Enqueue(ctx context.Context, job queue.WelcomeEmailJob) error
}

// AuthDeps wires an AuthService.  Every field except Now is required.
type AuthDeps struct {
	Users       UserStore
	Hasher      PasswordHasher
	Issuer      TokenIssuer
	Validator   TokenValidator
	Revocations token.RevocationStore
	Notifier    Notifier
	Log         Logger
	FrontendURL string
	Now         func() time.Time
}

// AuthService implements login, registration, password change, refresh
// and logout.
type AuthService struct {
	users       UserStore
	hasher      PasswordHasher
	issuer      TokenIssuer
	validator   TokenValidator
	revocations token.RevocationStore
	notifier    Notifier
	log         Logger
	loginURL    string
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(d AuthDeps) *AuthService {
	if d.Users == nil || d.Hasher == nil || d.Issuer == nil || d.Validator == nil ||
		d.Revocations == nil || d.Notifier == nil || d.Log == nil {
		panic("service: NewAuthService requires all dependencies")
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		users:       d.Users,
		hasher:      d.Hasher,
		issuer:      d.Issuer,
		validator:   d.Validator,
		revocations: d.Revocations,
		notifier:    d.Notifier,
		log:         d.Log,
		loginURL:    strings.TrimRight(d.FrontendURL, "/") + "/login",
		now:         now,
	}
}

// AuthResult is returned by Login and Register.
type AuthResult struct {
	Tokens token.Pair `json:"tokens"`
	User   UserView   `json:"user"`
}

var errInvalidCredentials = apperr.Authentication("invalid credentials")

// burnHash runs a verify against a throwaway hash so an unknown email costs
// the same as a wrong password.
func (s *AuthService) burnHash(password string) {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("not-a-real-password-1A")
		if err == nil {
			s.dummyHash = h
		}
	})
	_ = s.hasher.Verify(password, s.dummyHash)
}

// Login authenticates an active user and issues a token pair.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP string) (*AuthResult, error) {
	email = utils.NormalizeEmail(email)

	u, err := s.users.GetActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.burnHash(password)
			s.log.Warnf("login failed for %s", utils.MaskEmail(email))
			return nil, errInvalidCredentials
		}
		return nil, apperr.Internal("lookup user", err)
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		s.log.Warnf("login failed for %s", utils.MaskEmail(email))
		return nil, errInvalidCredentials
	}
	if !u.CanAccessAdmin() {
		s.log.Warnf("login denied for %s: role %s", utils.MaskEmail(email), u.Role)
		return nil, apperr.Authentication("access denied")
	}

	now := s.now().UTC()
	if err := s.users.RecordLogin(ctx, u.ID, clientIP, now); err != nil {
		s.log.Errorf("record login for user %d: %v", u.ID, err)
	} else {
		u.LastLogin = &now
		u.LoginCount++
		if clientIP != "" {
			ip := clientIP
			u.LastIP = &ip
		}
	}

	pair, err := s.issuer.Issue(u)
	if err != nil {
		return nil, apperr.Internal("issue tokens", err)
	}
	s.log.Infof("user %d logged in (%s)", u.ID, utils.MaskEmail(email))
	return &AuthResult{Tokens: pair, User: NewUserView(u)}, nil
}

// RegisterInput is a self-service signup.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     model.Role
}

// Register creates an active account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := utils.NormalizeEmail(in.Email)
	role := in.Role
	if role == "" {
		role = model.RoleDeveloper
	}
	if role != model.RoleAdmin && role != model.RoleDeveloper {
		return nil, apperr.Validation("invalid role", map[string]any{"role": "must be admin or developer"})
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("email already in use")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperr.Internal("lookup user", err)
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	u := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Role:         role,
		Status:       model.StatusActive,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, apperr.Conflict("email already in use")
		}
		return nil, apperr.Internal("create user", err)
	}

	pair, err := s.issuer.Issue(u)
	if err != nil {
		return nil, apperr.Internal("issue tokens", err)
	}

	job := queue.WelcomeEmailJob{Email: u.Email, Name: u.Name, LoginURL: s.loginURL, RequestedAt: s.now().UTC()}
	if err := s.notifier.Enqueue(ctx, job); err != nil {
		s.log.Errorf("enqueue welcome email for %s: %v", utils.MaskEmail(u.Email), err)
	}
	s.log.Infof("user %d registered (%s)", u.ID, utils.MaskEmail(u.Email))
	return &AuthResult{Tokens: pair, User: NewUserView(u)}, nil
}

// ChangePassword replaces the password of userID after verifying the
// current one.  Tokens issued before the change stay valid.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint64, current, next string) error {
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, u.PasswordHash) {
		return apperr.Validation("current password is incorrect", nil)
	}
	if err := checkPassword(next); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return apperr.Internal("hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal("update password", err)
	}
	s.log.Infof("user %d changed password", userID)
	return nil
}

// Refresh exchanges a refresh token for a new access token.  The refresh
// token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (token.Access, error) {
	claims, err := s.validator.Validate(ctx, refreshToken, model.TokenRefresh)
	if err != nil {
		return token.Access{}, err
	}
	id, err := claims.UserID()
	if err != nil {
		return token.Access{}, apperr.Authentication("invalid token")
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return token.Access{}, apperr.Authentication("user not found or inactive")
		}
		return token.Access{}, apperr.Internal("lookup user", err)
	}
	if !u.IsActive {
		return token.Access{}, apperr.Authentication("user not found or inactive")
	}
	access, err := s.issuer.IssueAccess(u)
	if err != nil {
		return token.Access{}, apperr.Internal("issue access token", err)
	}
	return access, nil
}

// Logout revokes the token described by claims.  It never fails.
func (s *AuthService) Logout(ctx context.Context, claims *token.Claims) {
	if claims == nil {
		return
	}
	uid, _ := claims.UserID()
	if err := s.revocations.Revoke(ctx, claims.ID, claims.Kind, uid, claims.Expiry()); err != nil {
		s.log.Errorf("logout: revoke %s for user %d: %v", claims.ID, uid, err)
		return
	}
	s.log.Infof("user %d logged out", uid)
}

// Me returns the current user.
func (s *AuthService) Me(ctx context.Context, userID uint64) (UserView, error) {
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return UserView{}, err
	}
	return NewUserView(u), nil
}

func (s *AuthService) getUser(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("lookup user", err)
	}
	return u, nil
}

// checkPassword applies the strength policy.
func checkPassword(p string) error {
	chk := utils.ValidatePasswordStrength(p)
	if chk.Valid {
		return nil
	}
	return apperr.Validation("password does not meet requirements", map[string]any{
		"password_errors": chk.Errors,
	})
}
