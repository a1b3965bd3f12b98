// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package auth

import "time"

// # Lockout State Machine

const (
	// MaxLoginAttempts is the number of consecutive failed logins that
	// transitions an account to Locked.
	MaxLoginAttempts = 5

	// LockoutDuration is how long the penalty box lasts. The lock is lifted
	// lazily at the next login attempt after this window.
	LockoutDuration = 15 * time.Minute
)

// # Guard Snapshot Cache

const (
	// SnapshotTTL bounds how stale the session guard's view of an account can
	// be. Password changes delete the cache entry eagerly, so the TTL only
	// covers writes that bypass this service.
	SnapshotTTL = 60 * time.Second
)
