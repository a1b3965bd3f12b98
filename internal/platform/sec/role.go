// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package sec

// # User Roles

// Role represents the authorization level granted to an account.
//
// It is a closed enumeration: authorization decisions are expressed as
// allowed-set checks via [Role.In], never as ad hoc string comparison in
// handlers.
type Role string

const (
	// Unrestricted back-office access
	RoleAdmin Role = "admin"

	// Default role for standard registered customers
	RoleUser Role = "user"
)

// # Role Checks

// In reports whether the role is a member of the allowed set.
func (r Role) In(allowed ...Role) bool {
	for _, candidate := range allowed {
		if r == candidate {
			return true
		}
	}
	return false
}

// IsValid reports whether the role is one of the known enumeration values.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// ParseRole converts a stored string into a [Role], falling back to
// [RoleUser] for unknown values so a corrupted record never grants
// elevated access.
func ParseRole(raw string) Role {
	role := Role(raw)
	if !role.IsValid() {
		return RoleUser
	}
	return role
}

// # Resolved Identity

// Identity is the per-request acting user resolved by the session guard.
//
// It is built from the persisted user record (not only the token claims) so
// role changes and password rotations take effect immediately.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// UserSnapshot is the minimal persisted view of an account that the session
// guard needs on every request. It is what gets cached in Redis between
// database reads.
type UserSnapshot struct {
	Identity Identity `json:"identity"`

	// PasswordChangedAt invalidates access tokens issued before the account's
	// last password rotation. Zero when the password has never been changed.
	PasswordChangedAt int64 `json:"password_changed_at"`
}
