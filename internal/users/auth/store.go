// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/phamanh/verano/internal/platform/sec"
)

// UserRepository defines the data access contract for user accounts.
//
// # Review Process
//
// This interface is placed in a separate file from user.go so entity changes
// and storage-contract changes can be reviewed independently by the team.
//
// # Implementations
//
// The canonical implementation for Verano is PostgreSQL ([PostgresUserRepository]).
type UserRepository interface {
	// FindByID returns the account with the given ID.
	//
	// Returns [apperr.NotFound] if the account does not exist.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByEmail returns the account with the given email.
	//
	// Returns [apperr.NotFound] if no user is registered with this email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByUsername returns the account with the given username.
	//
	// Returns [apperr.NotFound] if the username is available.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// Create persists a brand-new user account to the storage.
	//
	// Returns a wrapped error if a unique constraint (email/username) fails.
	Create(ctx context.Context, user *User) error

	// Update persists changes to mutable profile fields (Username, Email).
	// Passwords must be updated via [UpdatePassword].
	Update(ctx context.Context, user *User) error

	// SaveLoginState writes the lockout fields and LastLogin in one atomic
	// UPDATE. It is the only write performed on the login path, so concurrent
	// attempts never need in-process locking.
	SaveLoginState(ctx context.Context, user *User) error

	// UpdatePassword replaces the password hash and stamps PasswordChangedAt
	// in the same write, so there is no window in which old access tokens
	// remain valid against the new hash.
	UpdatePassword(ctx context.Context, userID, newHash string, changedAt time.Time) error

	// List returns a page of accounts ordered by creation time, plus the
	// total count. Used by the admin back-office.
	List(ctx context.Context, limit, offset int) ([]*User, int, error)

	// Count returns the total number of accounts.
	Count(ctx context.Context) (int, error)
}

// RefreshTokenRepository defines the data access contract for the persisted,
// single-use refresh tokens.
type RefreshTokenRepository interface {
	// Create persists a freshly issued refresh token.
	Create(ctx context.Context, token *RefreshToken) error

	// Consume atomically deletes the record matching the token string,
	// provided its persisted expiry is still in the future, and returns it.
	//
	// Returns [apperr.NotFound] if the token is unknown, already consumed, or
	// expired. Atomicity is what makes rotation single-winner: of two
	// concurrent exchanges of the same token, exactly one gets the record.
	Consume(ctx context.Context, token string) (*RefreshToken, error)

	// Delete removes the record matching the token string. Deleting an
	// unknown token is not an error (logout is idempotent).
	Delete(ctx context.Context, token string) error

	// DeleteAllForUser removes every refresh token belonging to the user.
	// Triggered by password changes to force re-login everywhere.
	DeleteAllForUser(ctx context.Context, userID string) error

	// DeleteExpired physically removes tokens whose ExpiresAt is in the past.
	// Intended to be called by a periodic background cleanup worker.
	DeleteExpired(ctx context.Context) (int64, error)
}

// SnapshotCache is the short-lived cache consulted by the session guard
// before falling back to PostgreSQL.
type SnapshotCache interface {
	// Get returns the cached snapshot, or (nil, nil) on a cache miss.
	// Errors indicate cache infrastructure failures, not misses.
	Get(ctx context.Context, userID string) (*sec.UserSnapshot, error)

	// Set stores the snapshot under the user's key for the given TTL.
	Set(ctx context.Context, userID string, snapshot *sec.UserSnapshot, ttl time.Duration) error

	// Delete evicts the snapshot. Called on password change so the guard's
	// issued-at check sees the new PasswordChangedAt immediately.
	Delete(ctx context.Context, userID string) error
}
