package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/token"
	"github.com/iliyamo/account-service/internal/utils"
)

// memUsers is an in-memory users table.
type memUsers struct {
	mu     sync.Mutex
	rows   map[uint64]*model.User
	nextID uint64
	now    func() time.Time
}

func newMemUsers(now func() time.Time) *memUsers {
	return &memUsers{rows: map[uint64]*model.User{}, now: now}
}

func (m *memUsers) copyOf(u *model.User) *model.User {
	c := *u
	return &c
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return m.copyOf(u), nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Email == email {
			return m.copyOf(u), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUsers) GetActiveByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := m.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	m.nextID++
	now := m.now().UTC()
	u.ID = m.nextID
	u.IsActive = u.Status.IsActive()
	u.CreatedAt, u.UpdatedAt = now, now
	m.rows[u.ID] = m.copyOf(u)
	return nil
}

func (m *memUsers) Update(_ context.Context, id uint64, upd repository.UserUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.Status != nil {
		u.Status = *upd.Status
		u.IsActive = upd.Status.IsActive()
	}
	u.UpdatedAt = m.now().UTC()
	return nil
}

func (m *memUsers) SetStatus(ctx context.Context, id uint64, st model.Status) error {
	return m.Update(ctx, id, repository.UserUpdate{Status: &st})
}

func (m *memUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) RecordLogin(_ context.Context, id uint64, ip string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.LastLogin = &at
	u.LoginCount++
	if ip != "" {
		u.LastIP = &ip
	}
	return nil
}

func (m *memUsers) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memUsers) sorted() []model.User {
	out := make([]model.User, 0, len(m.rows))
	for _, u := range m.rows {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memUsers) List(_ context.Context, q repository.UserQuery) ([]model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.User
	for _, u := range m.sorted() {
		if q.Role != "" && u.Role != q.Role {
			continue
		}
		if q.Status != "" && u.Status != q.Status {
			continue
		}
		all = append(all, u)
	}
	start := (q.Page - 1) * q.PerPage
	if start > len(all) {
		start = len(all)
	}
	end := start + q.PerPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (m *memUsers) Search(_ context.Context, term string, limit int) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, u := range m.sorted() {
		if strings.Contains(u.Email, term) || strings.Contains(strings.ToLower(u.Name), strings.ToLower(term)) {
			out = append(out, u)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memUsers) Stats(_ context.Context, _ time.Time) (repository.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st repository.UserStats
	for _, u := range m.rows {
		st.TotalUsers++
		if u.IsActive {
			st.ActiveUsers++
		}
	}
	return st, nil
}

// memRevocations is a map-backed revocation list.
type memRevocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
	err     error
}

func newMemRevocations() *memRevocations {
	return &memRevocations{entries: map[string]time.Time{}}
}

func (m *memRevocations) Revoke(_ context.Context, jti string, _ model.TokenKind, _ uint64, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.entries[jti]; !ok {
		m.entries[jti] = exp
	}
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[jti]
	return ok, nil
}

func (m *memRevocations) Sweep(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, exp := range m.entries {
		if exp.Before(now) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Enqueue(ctx context.Context, job queue.WelcomeEmailJob) error {
	return m.Called(ctx, job).Error(0)
}

type testLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *testLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *testLogger) Infof(f string, a ...interface{})  { l.add("INFO", f, a...) }
func (l *testLogger) Warnf(f string, a ...interface{})  { l.add("WARN", f, a...) }
func (l *testLogger) Errorf(f string, a ...interface{}) { l.add("ERROR", f, a...) }

func (l *testLogger) joined() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

type env struct {
	auth     *AuthService
	users    *UserService
	store    *memUsers
	revoked  *memRevocations
	notifier *mockNotifier
	log      *testLogger
	hasher   *utils.BcryptHasher
	now      time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	cfg := token.Config{Secret: "service-secret", Now: clock}
	iss, err := token.NewIssuer(cfg)
	require.NoError(t, err)
	revoked := newMemRevocations()
	val, err := token.NewValidator(cfg, revoked)
	require.NoError(t, err)

	store := newMemUsers(clock)
	hasher := utils.NewBcryptHasher(bcrypt.MinCost)
	notifier := &mockNotifier{}
	log := &testLogger{}

	auth := NewAuthService(AuthDeps{
		Users:       store,
		Hasher:      hasher,
		Issuer:      iss,
		Validator:   val,
		Revocations: revoked,
		Notifier:    notifier,
		Log:         log,
		FrontendURL: "http://app.local/",
		Now:         clock,
	})
	users := NewUserService(store, hasher, log)
	users.now = clock

	return &env{auth: auth, users: users, store: store, revoked: revoked, notifier: notifier, log: log, hasher: hasher, now: now}
}

// seed inserts a user directly.
func (e *env) seed(t *testing.T, email, password string, role model.Role, status model.Status) *model.User {
	t.Helper()
	hash, err := e.hasher.Hash(password)
	require.NoError(t, err)
	u := &model.User{Email: email, PasswordHash: hash, Name: "Seed", Role: role, Status: status}
	require.NoError(t, e.store.Create(context.Background(), u))
	return u
}
