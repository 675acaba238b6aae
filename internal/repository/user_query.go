package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/account-service/internal/model"
)

// SortColumns whitelists the columns a listing may be ordered by.
var SortColumns = map[string]bool{
	"id":         true,
	"name":       true,
	"email":      true,
	"created_at": true,
	"updated_at": true,
}

// UserQuery defines filters, ordering and pagination for listing users.
// Page is 1-based; callers normalize values before querying.
type UserQuery struct {
	Search    string
	Role      model.Role
	Status    model.Status
	SortBy    string
	SortOrder string
	Page      int
	PerPage   int
}

// likePattern escapes LIKE wildcards in a user-supplied term.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}

// List returns one page of users plus the total number of matches.
func (r *UserRepo) List(ctx context.Context, q UserQuery) ([]model.User, int64, error) {
	where := []string{}
	args := []any{}

	if s := strings.TrimSpace(q.Search); s != "" {
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(email) LIKE ?)")
		p := likePattern(s)
		args = append(args, p, p)
	}
	if q.Role != "" {
		where = append(where, "role = ?")
		args = append(args, string(q.Role))
	}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(q.Status))
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortBy := q.SortBy
	if !SortColumns[sortBy] {
		sortBy = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(q.SortOrder, "asc") {
		order = "ASC"
	}

	dataSQL := "SELECT " + userColumns + " FROM users WHERE " + cond +
		" ORDER BY " + sortBy + " " + order + ", id " + order + " LIMIT ? OFFSET ?"
	argsData := append(append([]any{}, args...), q.PerPage, (q.Page-1)*q.PerPage)

	users, err := r.queryUsers(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Search matches term against name and email, newest first.
func (r *UserRepo) Search(ctx context.Context, term string, limit int) ([]model.User, error) {
	p := likePattern(strings.TrimSpace(term))
	return r.queryUsers(ctx,
		"SELECT "+userColumns+" FROM users WHERE LOWER(name) LIKE ? OR LOWER(email) LIKE ? ORDER BY created_at DESC, id DESC LIMIT ?",
		p, p, limit)
}

func (r *UserRepo) queryUsers(ctx context.Context, q string, args ...any) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UserStats aggregates account counts.
type UserStats struct {
	TotalUsers            int64 `json:"total_users"`
	ActiveUsers           int64 `json:"active_users"`
	InactiveUsers         int64 `json:"inactive_users"`
	PendingUsers          int64 `json:"pending_users"`
	SuspendedUsers        int64 `json:"suspended_users"`
	AdminUsers            int64 `json:"admin_users"`
	DeveloperUsers        int64 `json:"developer_users"`
	UserUsers             int64 `json:"user_users"`
	UsersCreatedToday     int64 `json:"users_created_today"`
	UsersCreatedThisWeek  int64 `json:"users_created_this_week"`
	UsersCreatedThisMonth int64 `json:"users_created_this_month"`
}

// StatsWindows returns the UTC start of the day, ISO week (Monday) and
// month containing now.
func StatsWindows(now time.Time) (day, week, month time.Time) {
	now = now.UTC()
	day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	week = day.AddDate(0, 0, -offset)
	month = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return day, week, month
}

// Stats counts users by status, role and creation window in one pass.
func (r *UserRepo) Stats(ctx context.Context, now time.Time) (UserStats, error) {
	day, week, month := StatsWindows(now)
	const q = `SELECT
			COUNT(*),
			COALESCE(SUM(is_active = 1), 0),
			COALESCE(SUM(is_active = 0), 0),
			COALESCE(SUM(status = 'pending'), 0),
			COALESCE(SUM(status = 'suspended'), 0),
			COALESCE(SUM(role = 'admin'), 0),
			COALESCE(SUM(role = 'developer'), 0),
			COALESCE(SUM(role = 'user'), 0),
			COALESCE(SUM(created_at >= ?), 0),
			COALESCE(SUM(created_at >= ?), 0),
			COALESCE(SUM(created_at >= ?), 0)
		FROM users`
	var s UserStats
	err := r.DB.QueryRowContext(ctx, q, day, week, month).Scan(
		&s.TotalUsers, &s.ActiveUsers, &s.InactiveUsers, &s.PendingUsers, &s.SuspendedUsers,
		&s.AdminUsers, &s.DeveloperUsers, &s.UserUsers,
		&s.UsersCreatedToday, &s.UsersCreatedThisWeek, &s.UsersCreatedThisMonth)
	return s, err
}
