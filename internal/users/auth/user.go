// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

// Package auth owns the account and session lifecycle of the Verano storefront.
//
// # Architecture
//
// Entities in this package represent the "Truth" of the system.
// They have no dependencies on outer layers (like databases, APIs, or libraries).
// This makes the core logic highly testable and resilient to technology changes.
package auth

import (
	"time"

	"github.com/phamanh/verano/internal/platform/sec"
	"github.com/phamanh/verano/pkg/pointer"
)

// User represents a registered customer or administrator of the storefront.
//
// # Rules
//   - Email is unique and validated; it is the login identifier.
//   - Username is unique and URL-safe.
//   - PasswordHash is generated via Bcrypt exclusively via the auth Service.
//   - The lockout fields form a two-state machine (Active/Locked) evaluated
//     lazily at login time; no background process unlocks accounts.
type User struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"` // Explicitly omitted from JSON for security.
	Role         sec.Role `json:"role"`

	// LoginAttempts counts consecutive failed logins since the last success.
	LoginAttempts int `json:"-"`

	// AccountLocked marks the account as being in the penalty box. Always read
	// through [User.IsLockedAt]; the raw flag may be stale after LockUntil.
	AccountLocked bool `json:"-"`

	// LockUntil is when the penalty box opens. Nil when not locked.
	LockUntil *time.Time `json:"-"`

	// LastLogin is the time of the most recent successful login. Nil until the
	// first login.
	LastLogin *time.Time `json:"last_login,omitempty"`

	// PasswordChangedAt invalidates access tokens issued before the most
	// recent password change. Nil when the password has never been changed.
	PasswordChangedAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsLockedAt reports whether the account is inside its lockout window at the
// given instant.
//
// # Lazy Unlock
//
// A record whose LockUntil has passed is treated as unlocked even though the
// stored AccountLocked flag is still true. The flag is reset by the next
// recorded attempt, successful or not.
func (user *User) IsLockedAt(now time.Time) bool {
	return user.AccountLocked && user.LockUntil != nil && now.Before(*user.LockUntil)
}

// RecordLoginSuccess resets the lockout state machine to Active and stamps
// the login time.
func (user *User) RecordLoginSuccess(now time.Time) {
	user.LoginAttempts = 0
	user.AccountLocked = false
	user.LockUntil = nil
	user.LastLogin = pointer.To(now)
}

// RecordLoginFailure increments the failure counter and, once the threshold
// is reached, transitions the account to Locked.
//
// A failure arriving after the lockout window has passed restarts the
// counter: the penalty was served, so one wrong password must not re-lock
// the account for another full window.
//
// It returns true if this failure triggered (or re-triggered) the lock.
func (user *User) RecordLoginFailure(now time.Time) bool {
	if user.AccountLocked && user.LockUntil != nil && !now.Before(*user.LockUntil) {
		user.LoginAttempts = 0
		user.AccountLocked = false
		user.LockUntil = nil
	}

	user.LoginAttempts++

	if user.LoginAttempts >= MaxLoginAttempts {
		user.AccountLocked = true
		user.LockUntil = pointer.To(now.Add(LockoutDuration))
		return true
	}

	return false
}

// Snapshot projects the user into the minimal view the session guard needs.
func (user *User) Snapshot() *sec.UserSnapshot {
	snapshot := &sec.UserSnapshot{
		Identity: sec.Identity{
			UserID:   user.ID,
			Username: user.Username,
			Email:    user.Email,
			Role:     user.Role,
		},
	}
	if user.PasswordChangedAt != nil {
		snapshot.PasswordChangedAt = user.PasswordChangedAt.Unix()
	}
	return snapshot
}

// PublicProfile is the client-facing projection of a [User] returned by the
// auth endpoints.
type PublicProfile struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Role     sec.Role `json:"role"`
}

// Profile returns the client-facing projection of the user.
func (user *User) Profile() PublicProfile {
	return PublicProfile{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	}
}

// RefreshToken is a persisted, single-use credential.
//
// # Security Concept
//
// Access tokens are stateless and cannot be revoked before they expire. To
// mitigate this, Verano pairs short-lived access tokens with long-lived
// refresh tokens tracked in the database. A refresh token is consumed exactly
// once: rotation or logout deletes the record, and a deleted token is never
// accepted again even if its signature is still nominally valid.
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"-"` // The signed token string. Omitted for security.
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
