// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/phamanh/verano/internal/client/api"
)

const (
	// refreshLead is how long before access expiry the rotation fires.
	refreshLead = 5 * time.Minute

	// refreshFloor is the minimum delay before a scheduled rotation, so a
	// nearly-expired token never causes a hot refresh loop.
	refreshFloor = 10 * time.Second

	// refreshTimeout bounds a background rotation request.
	refreshTimeout = 30 * time.Second
)

// Authenticator is the slice of the API client the session manager drives.
type Authenticator interface {
	Refresh(ctx context.Context, refreshToken string) (*api.Credentials, error)
	Logout(ctx context.Context, refreshToken string) error
}

// Manager owns the client session lifecycle.
//
// # Behavior
//
//   - Start resumes a persisted session, silently rotating an expired
//     access token. A rejected rotation clears the session; the user must
//     log in again.
//   - Every adopted pair schedules one background rotation shortly before
//     the access token expires.
//   - A failed background rotation clears the session rather than
//     retrying: the refresh token was consumed or rejected, so retry loops
//     cannot succeed and only hammer the server.
//   - Logout revokes server-side on a best-effort basis; the local session
//     is cleared even when the network call fails.
type Manager struct {
	auth   Authenticator
	store  Store
	sched  scheduler
	logger *slog.Logger

	// clock is swappable in tests.
	clock func() time.Time

	mu       sync.Mutex
	pair     Pair
	onChange func(Pair)
}

// NewManager constructs a session manager. The manager is inert until
// Start or Adopt is called.
func NewManager(auth Authenticator, store Store, logger *slog.Logger) *Manager {
	return &Manager{auth: auth, store: store, logger: logger, clock: time.Now}
}

// OnChange registers a callback invoked after every session change, with
// the new pair (zero on logout or invalidation). Used to keep other parts
// of the client, like the API transport, in sync.
func (manager *Manager) OnChange(callback func(Pair)) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	manager.onChange = callback
}

// Current returns the active pair and whether a session exists.
func (manager *Manager) Current() (Pair, bool) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return manager.pair, !manager.pair.Empty()
}

/*
Start resumes the persisted session, if any.

A pair whose access token is still valid is adopted as-is and its rotation
scheduled. An expired access token triggers an immediate silent rotation;
if the server rejects the refresh token, the stale session is cleared and
Start returns nil with no session, which is not an error.

Parameters:
  - ctx: context.Context (Bounds the silent rotation request)

Returns:
  - error: Storage failures only; authentication rejections clear silently
*/
func (manager *Manager) Start(ctx context.Context) error {
	stored, err := manager.store.Load()
	if err != nil {
		return err
	}
	if stored.Empty() {
		return nil
	}

	if stored.ExpiredAt(manager.clock()) {
		manager.logger.Info("session_resume_requires_rotation")
		manager.rotate(ctx, stored.RefreshToken)
		return nil
	}

	manager.adopt(stored, false)
	return nil
}

// Adopt installs a freshly issued credential pair, persists it, and
// schedules its rotation. Called after login or register.
func (manager *Manager) Adopt(credentials *api.Credentials) {
	manager.adopt(NewPair(credentials.Token, credentials.RefreshToken), true)
}

// Reconcile re-reads the persisted session and adopts it when another
// process rotated or cleared it underneath this one.
func (manager *Manager) Reconcile() error {
	stored, err := manager.store.Load()
	if err != nil {
		return err
	}

	manager.mu.Lock()
	same := stored.SameTokens(manager.pair)
	manager.mu.Unlock()
	if same {
		return nil
	}

	if stored.Empty() {
		manager.logger.Info("session_cleared_externally")
		manager.invalidate()
		return nil
	}

	manager.logger.Info("session_rotated_externally")
	manager.adopt(stored, false)
	return nil
}

/*
Logout ends the session.

The server-side revocation is best-effort: a network failure is logged and
swallowed, because the local session must die regardless and the refresh
token will age out server-side on its own.

Parameters:
  - ctx: context.Context (Bounds the revocation request)

Returns:
  - error: Local storage failures only
*/
func (manager *Manager) Logout(ctx context.Context) error {
	manager.sched.Stop()

	manager.mu.Lock()
	refreshToken := manager.pair.RefreshToken
	manager.mu.Unlock()

	if refreshToken != "" {
		if err := manager.auth.Logout(ctx, refreshToken); err != nil {
			manager.logger.Warn("logout_revocation_failed", "error", err)
		}
	}

	if err := manager.store.Clear(); err != nil {
		return err
	}
	manager.apply(Pair{})
	return nil
}

// Close stops the background scheduler without touching the persisted
// session. The pair stays on disk for the next Start.
func (manager *Manager) Close() {
	manager.sched.Stop()
}

// adopt installs a pair, optionally persisting it, and schedules rotation.
func (manager *Manager) adopt(pair Pair, persist bool) {
	if persist {
		if err := manager.store.Save(pair); err != nil {
			manager.logger.Warn("session_persist_failed", "error", err)
		}
	}
	manager.apply(pair)
	manager.scheduleRotation(pair)
}

// apply swaps the in-memory pair and fires the change callback.
func (manager *Manager) apply(pair Pair) {
	manager.mu.Lock()
	manager.pair = pair
	callback := manager.onChange
	manager.mu.Unlock()

	if callback != nil {
		callback(pair)
	}
}

// invalidate drops the session locally and on disk.
func (manager *Manager) invalidate() {
	manager.sched.Stop()
	if err := manager.store.Clear(); err != nil {
		manager.logger.Warn("session_clear_failed", "error", err)
	}
	manager.apply(Pair{})
}

// scheduleRotation arranges the next background refresh.
func (manager *Manager) scheduleRotation(pair Pair) {
	delay := rotationDelay(pair.ExpiresAt, manager.clock())

	manager.logger.Debug("session_rotation_scheduled", "delay", delay.String())
	manager.sched.Schedule(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		manager.rotate(ctx, pair.RefreshToken)
	})
}

// rotationDelay computes how long to wait before rotating a pair that
// expires at expiresAt: refreshLead before expiry, but never sooner than
// refreshFloor.
func rotationDelay(expiresAt, now time.Time) time.Duration {
	delay := expiresAt.Sub(now) - refreshLead
	if delay < refreshFloor {
		delay = refreshFloor
	}
	return delay
}

// rotate exchanges the refresh token for a new pair. Any failure ends the
// session: the token is single-use, so a retry can never succeed once the
// server has processed the first attempt.
func (manager *Manager) rotate(ctx context.Context, refreshToken string) {
	credentials, err := manager.auth.Refresh(ctx, refreshToken)
	if err != nil {
		manager.logger.Warn("session_rotation_failed", "error", err)
		manager.invalidate()
		return
	}

	manager.logger.Info("session_rotated")
	manager.adopt(NewPair(credentials.Token, credentials.RefreshToken), true)
}
