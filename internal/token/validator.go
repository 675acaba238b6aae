package token

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/account-service/internal/apperr"
	"github.com/iliyamo/account-service/internal/model"
)

// Validator decodes tokens and checks signature, expiry, kind and the
// revocation list, in that order.
type Validator struct {
	cfg    Config
	secret []byte
	parser *jwt.Parser
	store  RevocationStore
}

// NewValidator returns a Validator sharing the issuer's signing config.
func NewValidator(cfg Config, store RevocationStore) (*Validator, error) {
	cfg = cfg.withDefaults()
	if cfg.Secret == "" {
		return nil, ErrEmptySecret
	}
	if _, err := hmacMethod(cfg.Algorithm); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("token: nil revocation store")
	}
	return &Validator{
		cfg:    cfg,
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{cfg.Algorithm}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(cfg.Now),
		),
		store: store,
	}, nil
}

// Validate returns the claims of raw if it is a live token of kind
// expected.  Failures are AuthenticationErrors except a revocation
// lookup failure, which is internal: the token is never accepted
// without a successful lookup.
func (v *Validator) Validate(ctx context.Context, raw string, expected model.TokenKind) (*Claims, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Authentication("token has expired")
		}
		return nil, apperr.Authentication("invalid token")
	}
	if claims.Kind != expected {
		return nil, apperr.Authentication("invalid token type")
	}
	if claims.ID == "" {
		return nil, apperr.Authentication("invalid token")
	}
	if _, err := claims.UserID(); err != nil {
		return nil, apperr.Authentication("invalid token")
	}

	revoked, err := v.store.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperr.Internal("revocation lookup", err)
	}
	if revoked {
		return nil, apperr.Authentication("token has been revoked")
	}
	return claims, nil
}
