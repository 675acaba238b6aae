package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-service/internal/apperr"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/repository"
)

func seedMany(t *testing.T, e *env, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		u := &model.User{
			Email:        fmt.Sprintf("user%02d@x.com", i),
			PasswordHash: "x",
			Name:         fmt.Sprintf("User %02d", i),
			Role:         model.RoleUser,
			Status:       model.StatusActive,
		}
		require.NoError(t, e.store.Create(context.Background(), u))
	}
}

func TestList_Pagination(t *testing.T) {
	e := newEnv(t)
	seedMany(t, e, 25)
	ctx := context.Background()

	p1, err := e.users.List(ctx, repository.UserQuery{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Len(t, p1.Users, 10)
	assert.True(t, p1.Pagination.HasNext)
	assert.False(t, p1.Pagination.HasPrev)
	assert.Equal(t, 3, p1.Pagination.Pages)
	assert.EqualValues(t, 25, p1.Pagination.Total)
	assert.Nil(t, p1.Pagination.PrevNum)
	require.NotNil(t, p1.Pagination.NextNum)
	assert.Equal(t, 2, *p1.Pagination.NextNum)

	p3, err := e.users.List(ctx, repository.UserQuery{Page: 3, PerPage: 10})
	require.NoError(t, err)
	assert.Len(t, p3.Users, 5)
	assert.False(t, p3.Pagination.HasNext)
	assert.True(t, p3.Pagination.HasPrev)
	assert.Nil(t, p3.Pagination.NextNum)
}

func TestList_ClampsPaging(t *testing.T) {
	e := newEnv(t)
	seedMany(t, e, 3)

	p, err := e.users.List(context.Background(), repository.UserQuery{Page: -2, PerPage: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Pagination.Page)
	assert.Equal(t, MaxPerPage, p.Pagination.PerPage)

	p, err = e.users.List(context.Background(), repository.UserQuery{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPerPage, p.Pagination.PerPage)
}

func TestList_RejectsUnknownFilters(t *testing.T) {
	e := newEnv(t)
	_, err := e.users.List(context.Background(), repository.UserQuery{Role: "root"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	_, err = e.users.List(context.Background(), repository.UserQuery{Status: "banned"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestNewPagination_Empty(t *testing.T) {
	p := NewPagination(1, 10, 0)
	assert.Equal(t, 0, p.Pages)
	assert.False(t, p.HasNext)
	assert.False(t, p.HasPrev)
}

func TestCreate_Defaults(t *testing.T) {
	e := newEnv(t)
	v, err := e.users.Create(context.Background(), CreateUserInput{Email: "New@X.com", Password: "Abcdef12", Name: " New "})
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", v.Email)
	assert.Equal(t, "New", v.Name)
	assert.Equal(t, model.RoleDeveloper, v.Role)
	assert.Equal(t, model.StatusActive, v.Status)
	assert.True(t, v.IsActive)

	_, err = e.users.Create(context.Background(), CreateUserInput{Email: "new@x.com", Password: "Abcdef12"})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestCreate_PendingIsInactive(t *testing.T) {
	e := newEnv(t)
	v, err := e.users.Create(context.Background(), CreateUserInput{
		Email: "p@x.com", Password: "Abcdef12", Role: model.RoleUser, Status: model.StatusPending,
	})
	require.NoError(t, err)
	assert.False(t, v.IsActive)

	_, err = e.users.Create(context.Background(), CreateUserInput{Email: "q@x.com", Password: "weak"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.seed(t, "a@x.com", "Abcdef12", model.RoleUser, model.StatusActive)
	e.seed(t, "b@x.com", "Abcdef12", model.RoleUser, model.StatusActive)

	taken := "B@x.com"
	_, err := e.users.Update(ctx, a.ID, repository.UserUpdate{Email: &taken})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	same := "A@X.COM"
	name := "  Ana  "
	st := model.StatusSuspended
	v, err := e.users.Update(ctx, a.ID, repository.UserUpdate{Email: &same, Name: &name, Status: &st})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", v.Email)
	assert.Equal(t, "Ana", v.Name)
	assert.Equal(t, model.StatusSuspended, v.Status)
	assert.False(t, v.IsActive)

	bad := model.Role("root")
	_, err = e.users.Update(ctx, a.ID, repository.UserUpdate{Role: &bad})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = e.users.Update(ctx, 999, repository.UserUpdate{Name: &name})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestStatusTransitions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.seed(t, "a@x.com", "Abcdef12", model.RoleUser, model.StatusActive)

	cases := []struct {
		name   string
		op     func(context.Context, uint64) (UserView, error)
		status model.Status
		active bool
	}{
		{"deactivate", e.users.Deactivate, model.StatusInactive, false},
		{"suspend", e.users.Suspend, model.StatusSuspended, false},
		{"activate", e.users.Activate, model.StatusActive, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := tc.op(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.status, v.Status)
			assert.Equal(t, tc.active, v.IsActive)
		})
	}

	_, err := e.users.Suspend(ctx, 999)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.seed(t, "admin@x.com", "Abcdef12", model.RoleAdmin, model.StatusActive)
	u := e.seed(t, "a@x.com", "Abcdef12", model.RoleUser, model.StatusActive)

	err := e.users.Delete(ctx, admin.ID, admin.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	require.NoError(t, e.users.Delete(ctx, admin.ID, u.ID))
	_, err = e.users.Get(ctx, u.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	err = e.users.Delete(ctx, admin.ID, u.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestResetPassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.seed(t, "dev@x.com", "Abcdef12", model.RoleDeveloper, model.StatusActive)

	err := e.users.ResetPassword(ctx, u.ID, "abc")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	require.NoError(t, e.users.ResetPassword(ctx, u.ID, "Reset1234"))
	_, err = e.auth.Login(ctx, "dev@x.com", "Reset1234", "")
	assert.NoError(t, err)

	err = e.users.ResetPassword(ctx, 999, "Reset1234")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestSearch(t *testing.T) {
	e := newEnv(t)
	seedMany(t, e, 25)
	ctx := context.Background()

	got, err := e.users.Search(ctx, "user", 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultSearchLimit)

	got, err = e.users.Search(ctx, "user1", 500)
	require.NoError(t, err)
	assert.Len(t, got, 10)

	_, err = e.users.Search(ctx, "  ", 5)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	seedMany(t, e, 4)
	st, err := e.users.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 4, st.TotalUsers)
	assert.EqualValues(t, 4, st.ActiveUsers)
}

func TestRunRevocationSweeper(t *testing.T) {
	store := newMemRevocations()
	past := time.Now().Add(-time.Hour)
	require.NoError(t, store.Revoke(context.Background(), "old", model.TokenAccess, 1, past))
	require.NoError(t, store.Revoke(context.Background(), "live", model.TokenAccess, 1, time.Now().Add(time.Hour)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunRevocationSweeper(ctx, store, 10*time.Millisecond, &testLogger{})
		close(done)
	}()

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		_, old := store.entries["old"]
		return !old
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
	live, err := store.IsRevoked(context.Background(), "live")
	require.NoError(t, err)
	assert.True(t, live)
}
