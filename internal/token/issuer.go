package token

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/account-service/internal/model"
)

// TokenType is the scheme clients put in the Authorization header.
const TokenType = "Bearer"

var ErrEmptySecret = errors.New("token: signing secret is empty")

// Pair is returned on login and registration.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Access is returned when a refresh token is exchanged.
type Access struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Issuer signs tokens for users.
type Issuer struct {
	cfg    Config
	secret []byte
	method jwt.SigningMethod
	newID  func() string
}

// NewIssuer validates cfg and returns an Issuer.  Only HMAC algorithms
// are accepted.
func NewIssuer(cfg Config) (*Issuer, error) {
	cfg = cfg.withDefaults()
	if cfg.Secret == "" {
		return nil, ErrEmptySecret
	}
	method, err := hmacMethod(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	return &Issuer{
		cfg:    cfg,
		secret: []byte(cfg.Secret),
		method: method,
		newID:  func() string { return uuid.NewString() },
	}, nil
}

// Issue mints an access/refresh pair for u.
func (i *Issuer) Issue(u *model.User) (Pair, error) {
	access, err := i.sign(u, model.TokenAccess)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.sign(u, model.TokenRefresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenType,
		ExpiresIn:    int64(i.cfg.AccessTTL.Seconds()),
	}, nil
}

// IssueAccess mints a single access token for u.
func (i *Issuer) IssueAccess(u *model.User) (Access, error) {
	access, err := i.sign(u, model.TokenAccess)
	if err != nil {
		return Access{}, err
	}
	return Access{
		AccessToken: access,
		TokenType:   TokenType,
		ExpiresIn:   int64(i.cfg.AccessTTL.Seconds()),
	}, nil
}

func (i *Issuer) sign(u *model.User, kind model.TokenKind) (string, error) {
	ttl := i.cfg.AccessTTL
	if kind == model.TokenRefresh {
		ttl = i.cfg.RefreshTTL
	}
	now := i.cfg.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        i.newID(),
			Subject:   strconv.FormatUint(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:     u.Role,
		IsActive: u.IsActive,
		Kind:     kind,
	}
	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

func hmacMethod(alg string) (jwt.SigningMethod, error) {
	m := jwt.GetSigningMethod(alg)
	if _, ok := m.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("token: unsupported signing algorithm %q", alg)
	}
	return m, nil
}
