package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/account-service/internal/model"
)

const userColumns = "id,email,password_hash,name,role,status,is_active,created_at,updated_at,last_login,login_count,last_ip"

// UserRepo encapsulates all queries on the `users` table.
type UserRepo struct {
	DB  *sql.DB
	now func() time.Time
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db, now: func() time.Time { return time.Now().UTC() }}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*model.User, error) {
	var (
		u         model.User
		role      string
		status    string
		lastLogin sql.NullTime
		lastIP    sql.NullString
	)
	if err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &status, &u.IsActive,
		&u.CreatedAt, &u.UpdatedAt, &lastLogin, &u.LoginCount, &lastIP); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	u.Status = model.Status(status)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	if lastIP.Valid {
		ip := lastIP.String
		u.LastIP = &ip
	}
	return &u, nil
}

func (r *UserRepo) getOne(ctx context.Context, where string, args ...any) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", args...)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx, "id=?", id)
}

// GetByEmail fetches a user by normalized email regardless of status.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "email=?", strings.ToLower(strings.TrimSpace(email)))
}

// GetActiveByEmail fetches an active user by normalized email.
func (r *UserRepo) GetActiveByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "email=? AND is_active=1", strings.ToLower(strings.TrimSpace(email)))
}

// Create inserts u and fills in its ID and timestamps.  is_active is
// derived from the status so the two can never disagree.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	now := r.now()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.IsActive = u.Status.IsActive()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email,password_hash,name,role,status,is_active,created_at,updated_at,login_count) VALUES (?,?,?,?,?,?,?,?,0)",
		u.Email, u.PasswordHash, u.Name, string(u.Role), string(u.Status), u.IsActive, now, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.CreatedAt = now
	u.UpdatedAt = now
	u.LoginCount = 0
	return nil
}

// UserUpdate lists the columns a partial update may change.  Nil fields
// are left untouched.
type UserUpdate struct {
	Email  *string
	Name   *string
	Role   *model.Role
	Status *model.Status
}

// Update applies a partial update.  Changing Status also sets is_active.
func (r *UserRepo) Update(ctx context.Context, id uint64, upd UserUpdate) error {
	sets := []string{}
	args := []any{}
	if upd.Email != nil {
		sets = append(sets, "email=?")
		args = append(args, strings.ToLower(strings.TrimSpace(*upd.Email)))
	}
	if upd.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, *upd.Name)
	}
	if upd.Role != nil {
		sets = append(sets, "role=?")
		args = append(args, string(*upd.Role))
	}
	if upd.Status != nil {
		sets = append(sets, "status=?", "is_active=?")
		args = append(args, string(*upd.Status), upd.Status.IsActive())
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at=?")
	args = append(args, r.now(), id)

	return r.exec(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
}

// SetStatus moves the user to status, keeping is_active in sync.
func (r *UserRepo) SetStatus(ctx context.Context, id uint64, status model.Status) error {
	return r.Update(ctx, id, UserUpdate{Status: &status})
}

// UpdatePassword replaces the stored hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	return r.exec(ctx, "UPDATE users SET password_hash=?, updated_at=? WHERE id=?", hash, r.now(), id)
}

// RecordLogin stamps last_login, bumps login_count and stores the client
// address when one is known.
func (r *UserRepo) RecordLogin(ctx context.Context, id uint64, ip string, at time.Time) error {
	return r.exec(ctx,
		"UPDATE users SET last_login=?, login_count=login_count+1, last_ip=COALESCE(NULLIF(?, ''), last_ip), updated_at=? WHERE id=?",
		at, ip, at, id)
}

// Delete removes the row.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	return r.exec(ctx, "DELETE FROM users WHERE id=?", id)
}

// exec runs a single-row statement and reports ErrUserNotFound when the
// row does not exist.  MySQL reports 0 affected rows for a no-op update,
// so a miss is confirmed with a lookup before it is reported.
func (r *UserRepo) exec(ctx context.Context, q string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var one int
	err = r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=?", args[len(args)-1]).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	return err
}
