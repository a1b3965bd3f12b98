// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

// PostgreSQL implementations of the auth storage contracts.
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types to avoid leaking storage implementation details.

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phamanh/verano/internal/platform/apperr"
	"github.com/phamanh/verano/internal/platform/dberr"
)

// userColumns is the canonical SELECT column list for users.account.
const userColumns = `
	id, username, email, passwordhash, role,
	loginattempts, accountlocked, lockuntil, lastlogin, passwordchangedat,
	createdat, updatedat`

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record into the users.account table.
//
// # Parameters
//   - ctx: Context for the database operation.
//   - user: The user entity to persist.
func (repository *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, username, email, passwordhash, role,
			loginattempts, accountlocked, lockuntil, lastlogin, passwordchangedat,
			createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.LoginAttempts,
		user.AccountLocked,
		user.LockUntil,
		user.LastLogin,
		user.PasswordChangedAt,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return dberr.Wrap(err, "postgres_user_repo_create")
	}

	return nil
}

// FindByEmail retrieves a user record by their unique email address.
//
// # Returns
//
// Returns [*User] if found, or [apperr.NotFound] if no account exists.
func (repository *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users.account WHERE email = $1`
	return repository.findOne(ctx, query, email, "User not found with this email")
}

// FindByUsername retrieves a user record by their unique username.
func (repository *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users.account WHERE username = $1`
	return repository.findOne(ctx, query, username, "User not found with this username")
}

// FindByID retrieves a user record by their unique ID.
func (repository *PostgresUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users.account WHERE id = $1`
	return repository.findOne(ctx, query, id, "User")
}

// findOne runs a single-row account lookup and maps no-rows to NotFound.
func (repository *PostgresUserRepository) findOne(ctx context.Context, query, arg, notFoundLabel string) (*User, error) {
	user := &User{}
	err := repository.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.LoginAttempts,
		&user.AccountLocked,
		&user.LockUntil,
		&user.LastLogin,
		&user.PasswordChangedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(notFoundLabel)
		}
		return nil, fmt.Errorf("postgres_user_repo_find_failed: %w", err)
	}

	return user, nil
}

// Update persists changes to a user's mutable profile fields.
func (repository *PostgresUserRepository) Update(ctx context.Context, user *User) error {
	const query = `
		UPDATE users.account
		SET username = $2, email = $3, updatedat = $4
		WHERE id = $1`

	user.UpdatedAt = time.Now()
	_, err := repository.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.UpdatedAt,
	)

	if err != nil {
		return dberr.Wrap(err, "postgres_user_repo_update")
	}

	return nil
}

// SaveLoginState writes the lockout counters and LastLogin in one atomic UPDATE.
func (repository *PostgresUserRepository) SaveLoginState(ctx context.Context, user *User) error {
	const query = `
		UPDATE users.account
		SET loginattempts = $2, accountlocked = $3, lockuntil = $4, lastlogin = $5, updatedat = $6
		WHERE id = $1`

	user.UpdatedAt = time.Now()
	_, err := repository.pool.Exec(ctx, query,
		user.ID,
		user.LoginAttempts,
		user.AccountLocked,
		user.LockUntil,
		user.LastLogin,
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_user_repo_save_login_state_failed: %w", err)
	}

	return nil
}

// UpdatePassword replaces the password hash and PasswordChangedAt together.
func (repository *PostgresUserRepository) UpdatePassword(ctx context.Context, userID, newHash string, changedAt time.Time) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, passwordchangedat = $3, updatedat = $4
		WHERE id = $1`

	_, err := repository.pool.Exec(ctx, query, userID, newHash, changedAt, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}

	return nil
}

// List returns a page of accounts ordered by creation time (newest first).
func (repository *PostgresUserRepository) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	total, err := repository.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	const query = `
		SELECT ` + userColumns + `
		FROM users.account
		ORDER BY createdat DESC
		LIMIT $1 OFFSET $2`

	rows, err := repository.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_user_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user := &User{}
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.PasswordHash,
			&user.Role,
			&user.LoginAttempts,
			&user.AccountLocked,
			&user.LockUntil,
			&user.LastLogin,
			&user.PasswordChangedAt,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("postgres_user_repo_list_scan_failed: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_user_repo_list_rows_failed: %w", err)
	}

	return users, total, nil
}

// Count returns the total number of accounts.
func (repository *PostgresUserRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM users.account`

	var total int
	if err := repository.pool.QueryRow(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("postgres_user_repo_count_failed: %w", err)
	}

	return total, nil
}

// CountCreatedBetween returns the number of accounts created in [from, to).
// A nil bound leaves that side of the window open.
func (repository *PostgresUserRepository) CountCreatedBetween(ctx context.Context, from, to *time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM users.account WHERE TRUE`
	var args []any
	argID := 1

	if from != nil {
		query += fmt.Sprintf(" AND createdat >= $%d", argID)
		args = append(args, *from)
		argID++
	}
	if to != nil {
		query += fmt.Sprintf(" AND createdat < $%d", argID)
		args = append(args, *to)
	}

	var total int
	if err := repository.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("postgres_user_repo_count_between_failed: %w", err)
	}

	return total, nil
}

// ── Refresh Token Repository ─────────────────────────────────────────────────

// PostgresRefreshTokenRepository implements the RefreshTokenRepository interface.
type PostgresRefreshTokenRepository struct {
	pool *pgxpool.Pool
}

// NewRefreshTokenRepository creates a new PostgreSQL implementation of RefreshTokenRepository.
func NewRefreshTokenRepository(pool *pgxpool.Pool) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{pool: pool}
}

// Create persists a new refresh token record into the users.refreshtoken table.
func (repository *PostgresRefreshTokenRepository) Create(ctx context.Context, token *RefreshToken) error {
	const query = `
		INSERT INTO users.refreshtoken (id, userid, token, expiresat, createdat)
		VALUES ($1, $2, $3, $4, $5)`

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(ctx, query,
		token.ID,
		token.UserID,
		token.Token,
		token.ExpiresAt,
		token.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_create_failed: %w", err)
	}

	return nil
}

// Consume atomically removes and returns the unexpired record for the token.
//
// # Single Winner
//
// DELETE ... RETURNING is one statement, so of two concurrent exchanges of
// the same token exactly one receives the row; the other sees no rows and
// must treat the token as invalid.
func (repository *PostgresRefreshTokenRepository) Consume(ctx context.Context, tokenString string) (*RefreshToken, error) {
	const query = `
		DELETE FROM users.refreshtoken
		WHERE token = $1 AND expiresat > NOW()
		RETURNING id, userid, token, expiresat, createdat`

	token := &RefreshToken{}
	err := repository.pool.QueryRow(ctx, query, tokenString).Scan(
		&token.ID,
		&token.UserID,
		&token.Token,
		&token.ExpiresAt,
		&token.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Refresh token")
		}
		return nil, fmt.Errorf("postgres_refresh_token_repo_consume_failed: %w", err)
	}

	return token, nil
}

// Delete removes the record matching the token string, if any.
func (repository *PostgresRefreshTokenRepository) Delete(ctx context.Context, tokenString string) error {
	const query = `DELETE FROM users.refreshtoken WHERE token = $1`
	_, err := repository.pool.Exec(ctx, query, tokenString)
	if err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_delete_failed: %w", err)
	}
	return nil
}

// DeleteAllForUser removes every refresh token belonging to the user.
func (repository *PostgresRefreshTokenRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM users.refreshtoken WHERE userid = $1`
	_, err := repository.pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_delete_all_failed: %w", err)
	}
	return nil
}

// DeleteExpired permanently removes all tokens past their expiration date.
func (repository *PostgresRefreshTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM users.refreshtoken WHERE expiresat <= NOW()`
	tag, err := repository.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("postgres_refresh_token_repo_delete_expired_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
