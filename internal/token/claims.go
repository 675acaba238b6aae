// Package token issues and validates the signed JWT credentials handed
// to clients.  Every token carries a unique id (jti) so that it can be
// revoked individually before it expires.
package token

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/account-service/internal/model"
)

// Claims is the payload of both access and refresh tokens.  Subject holds
// the user id and ID holds the jti.
type Claims struct {
	jwt.RegisteredClaims
	Role     model.Role      `json:"role"`
	IsActive bool            `json:"is_active"`
	Kind     model.TokenKind `json:"type"`
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// Expiry returns the exp claim, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Config holds signing parameters shared by Issuer and Validator.  Now is
// optional and defaults to time.Now.
type Config struct {
	Secret     string
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 30 * 24 * time.Hour
	DefaultAlgorithm  = "HS256"
)

func (c Config) withDefaults() Config {
	if c.Algorithm == "" {
		c.Algorithm = DefaultAlgorithm
	}
	if c.AccessTTL <= 0 {
		c.AccessTTL = DefaultAccessTTL
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = DefaultRefreshTTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
