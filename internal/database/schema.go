package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the tables the service owns.  Statements are idempotent
// so Migrate can run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		name          VARCHAR(255) NOT NULL,
		role          VARCHAR(20)  NOT NULL DEFAULT 'developer',
		status        VARCHAR(20)  NOT NULL DEFAULT 'active',
		is_active     TINYINT(1)   NOT NULL DEFAULT 1,
		created_at    DATETIME     NOT NULL,
		updated_at    DATETIME     NOT NULL,
		last_login    DATETIME     NULL,
		login_count   INT UNSIGNED NOT NULL DEFAULT 0,
		last_ip       VARCHAR(45)  NULL,
		UNIQUE KEY uq_users_email (email),
		KEY idx_users_role (role),
		KEY idx_users_status (status),
		KEY idx_users_created_at (created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS revoked_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		jti        VARCHAR(64)  NOT NULL,
		token_type VARCHAR(10)  NOT NULL,
		user_id    BIGINT UNSIGNED NOT NULL,
		revoked_at DATETIME     NOT NULL,
		expires_at DATETIME     NOT NULL,
		UNIQUE KEY uq_revoked_tokens_jti (jti),
		KEY idx_revoked_tokens_expires_at (expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
