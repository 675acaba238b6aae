package token

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-service/internal/apperr"
	"github.com/iliyamo/account-service/internal/model"
)

type memStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	err     error
}

func newMemStore() *memStore { return &memStore{entries: map[string]time.Time{}} }

func (m *memStore) Revoke(_ context.Context, jti string, _ model.TokenKind, _ uint64, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[jti]; !ok {
		m.entries[jti] = exp
	}
	return nil
}

func (m *memStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.entries[jti]
	return ok, nil
}

func (m *memStore) Sweep(context.Context, time.Time) (int64, error) { return 0, nil }

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func setup(t *testing.T) (*Issuer, *Validator, *clock, *memStore) {
	t.Helper()
	clk := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cfg := Config{Secret: "test-secret", AccessTTL: time.Hour, RefreshTTL: 30 * 24 * time.Hour, Now: clk.Now}
	iss, err := NewIssuer(cfg)
	require.NoError(t, err)
	store := newMemStore()
	val, err := NewValidator(cfg, store)
	require.NoError(t, err)
	return iss, val, clk, store
}

func testUser() *model.User {
	return &model.User{ID: 42, Email: "a@x.com", Role: model.RoleDeveloper, Status: model.StatusActive, IsActive: true}
}

func TestIssue_Claims(t *testing.T) {
	iss, val, _, _ := setup(t)

	pair, err := iss.Issue(testUser())
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(3600), pair.ExpiresIn)

	access, err := val.Validate(context.Background(), pair.AccessToken, model.TokenAccess)
	require.NoError(t, err)
	uid, err := access.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uid)
	assert.Equal(t, model.RoleDeveloper, access.Role)
	assert.True(t, access.IsActive)
	assert.NotEmpty(t, access.ID)

	refresh, err := val.Validate(context.Background(), pair.RefreshToken, model.TokenRefresh)
	require.NoError(t, err)
	assert.NotEqual(t, access.ID, refresh.ID)
	assert.Equal(t, 30*24*time.Hour, refresh.Expiry().Sub(refresh.IssuedAt.Time))
}

func TestValidate_ExpiryBoundary(t *testing.T) {
	iss, val, clk, _ := setup(t)
	issuedAt := clk.t

	pair, err := iss.Issue(testUser())
	require.NoError(t, err)

	clk.t = issuedAt.Add(time.Hour - time.Second)
	_, err = val.Validate(context.Background(), pair.AccessToken, model.TokenAccess)
	require.NoError(t, err)

	clk.t = issuedAt.Add(time.Hour + time.Second)
	_, err = val.Validate(context.Background(), pair.AccessToken, model.TokenAccess)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindAuthentication, e.Kind)
	assert.Equal(t, "token has expired", e.Message)
}

func TestValidate_KindMismatch(t *testing.T) {
	iss, val, _, _ := setup(t)
	pair, err := iss.Issue(testUser())
	require.NoError(t, err)

	_, err = val.Validate(context.Background(), pair.RefreshToken, model.TokenAccess)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthentication))
	_, err = val.Validate(context.Background(), pair.AccessToken, model.TokenRefresh)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthentication))
}

func TestValidate_Revoked(t *testing.T) {
	iss, val, _, store := setup(t)
	pair, err := iss.Issue(testUser())
	require.NoError(t, err)

	claims, err := val.Validate(context.Background(), pair.AccessToken, model.TokenAccess)
	require.NoError(t, err)

	require.NoError(t, store.Revoke(context.Background(), claims.ID, claims.Kind, 42, claims.Expiry()))

	_, err = val.Validate(context.Background(), pair.AccessToken, model.TokenAccess)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "token has been revoked", e.Message)

	// the refresh token has its own id and stays valid
	_, err = val.Validate(context.Background(), pair.RefreshToken, model.TokenRefresh)
	assert.NoError(t, err)
}

func TestValidate_StoreFailureRejects(t *testing.T) {
	iss, val, _, store := setup(t)
	pair, err := iss.Issue(testUser())
	require.NoError(t, err)

	store.err = errors.New("connection reset")
	_, err = val.Validate(context.Background(), pair.AccessToken, model.TokenAccess)
	assert.True(t, apperr.IsKind(err, apperr.KindInternal))
}

func TestValidate_BadSignature(t *testing.T) {
	iss, _, clk, store := setup(t)
	pair, err := iss.Issue(testUser())
	require.NoError(t, err)

	other, err := NewValidator(Config{Secret: "other-secret", Now: clk.Now}, store)
	require.NoError(t, err)
	_, err = other.Validate(context.Background(), pair.AccessToken, model.TokenAccess)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthentication))

	_, err = other.Validate(context.Background(), "garbage", model.TokenAccess)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthentication))
}

func TestValidate_RejectsOtherAlgorithms(t *testing.T) {
	_, val, clk, _ := setup(t)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(clk.t.Add(time.Hour)),
		},
		Kind: model.TokenAccess,
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = val.Validate(context.Background(), raw, model.TokenAccess)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthentication))
}

func TestNewIssuer_Config(t *testing.T) {
	_, err := NewIssuer(Config{})
	assert.ErrorIs(t, err, ErrEmptySecret)

	_, err = NewIssuer(Config{Secret: "s", Algorithm: "RS256"})
	assert.Error(t, err)

	iss, err := NewIssuer(Config{Secret: "s", Algorithm: "HS384"})
	require.NoError(t, err)
	assert.Equal(t, "HS384", iss.method.Alg())
	assert.Equal(t, DefaultAccessTTL, iss.cfg.AccessTTL)
	assert.Equal(t, DefaultRefreshTTL, iss.cfg.RefreshTTL)
}
