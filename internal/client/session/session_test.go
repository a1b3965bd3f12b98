// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phamanh/verano/internal/client/api"
	"github.com/phamanh/verano/internal/platform/sec"
)

// # Fakes and Fixtures

type fakeAuth struct {
	mu sync.Mutex

	refreshResult *api.Credentials
	refreshErr    error
	refreshCalls  []string

	logoutErr   error
	logoutCalls []string
}

func (auth *fakeAuth) Refresh(_ context.Context, refreshToken string) (*api.Credentials, error) {
	auth.mu.Lock()
	defer auth.mu.Unlock()

	auth.refreshCalls = append(auth.refreshCalls, refreshToken)
	if auth.refreshErr != nil {
		return nil, auth.refreshErr
	}
	return auth.refreshResult, nil
}

func (auth *fakeAuth) Logout(_ context.Context, refreshToken string) error {
	auth.mu.Lock()
	defer auth.mu.Unlock()

	auth.logoutCalls = append(auth.logoutCalls, refreshToken)
	return auth.logoutErr
}

var testTokens = func() *sec.TokenService {
	service, err := sec.NewTokenService([]byte("test-secret-at-least-32-bytes-long"), "verano.test")
	if err != nil {
		panic(err)
	}
	return service
}()

func mintAccessToken(t *testing.T, ttl time.Duration) string {
	t.Helper()

	token, err := testTokens.IssueAccessToken("user-1", ttl)
	require.NoError(t, err)
	return token
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type managerFixture struct {
	auth    *fakeAuth
	store   *MemoryStore
	manager *Manager

	mu      sync.Mutex
	changes []Pair
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()

	fixture := &managerFixture{
		auth:  &fakeAuth{},
		store: NewMemoryStore(),
	}
	fixture.manager = NewManager(fixture.auth, fixture.store, discardLogger())
	fixture.manager.OnChange(func(pair Pair) {
		fixture.mu.Lock()
		defer fixture.mu.Unlock()
		fixture.changes = append(fixture.changes, pair)
	})
	t.Cleanup(fixture.manager.Close)
	return fixture
}

func (fixture *managerFixture) lastChange(t *testing.T) Pair {
	t.Helper()

	fixture.mu.Lock()
	defer fixture.mu.Unlock()
	require.NotEmpty(t, fixture.changes)
	return fixture.changes[len(fixture.changes)-1]
}

// # Pair Tests

func TestNewPair_DecodesExpiry(t *testing.T) {
	pair := NewPair(mintAccessToken(t, time.Hour), "refresh-1")

	assert.WithinDuration(t, time.Now().Add(time.Hour), pair.ExpiresAt, time.Minute)
	assert.False(t, pair.ExpiredAt(time.Now()))
	assert.True(t, pair.ExpiredAt(time.Now().Add(2*time.Hour)))
}

func TestNewPair_UndecodableTokenIsExpired(t *testing.T) {
	pair := NewPair("not-a-jwt", "refresh-1")

	assert.True(t, pair.ExpiresAt.IsZero())
	assert.True(t, pair.ExpiredAt(time.Now()), "zero expiry forces rotation on resume")
	assert.False(t, pair.Empty(), "tokens are kept even when undecodable")
}

// # Rotation Timing Tests

func TestRotationDelay(t *testing.T) {
	now := time.Now()

	testCases := []struct {
		name      string
		expiresIn time.Duration
		want      time.Duration
	}{
		{name: "six_minutes_fires_in_one", expiresIn: 6 * time.Minute, want: time.Minute},
		{name: "two_minutes_hits_floor", expiresIn: 2 * time.Minute, want: refreshFloor},
		{name: "already_expired_hits_floor", expiresIn: -time.Minute, want: refreshFloor},
		{name: "one_hour_fires_at_fifty_five", expiresIn: time.Hour, want: 55 * time.Minute},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.want, rotationDelay(now.Add(testCase.expiresIn), now))
		})
	}
}

// # Manager Tests

func TestManager_Start_EmptyStore(t *testing.T) {
	fixture := newManagerFixture(t)

	require.NoError(t, fixture.manager.Start(context.Background()))

	_, active := fixture.manager.Current()
	assert.False(t, active)
	assert.Empty(t, fixture.auth.refreshCalls)
}

func TestManager_Start_ResumesValidSession(t *testing.T) {
	fixture := newManagerFixture(t)
	stored := NewPair(mintAccessToken(t, time.Hour), "refresh-1")
	require.NoError(t, fixture.store.Save(stored))

	require.NoError(t, fixture.manager.Start(context.Background()))

	current, active := fixture.manager.Current()
	assert.True(t, active)
	assert.Equal(t, stored.AccessToken, current.AccessToken)
	assert.Empty(t, fixture.auth.refreshCalls, "a live token is not rotated eagerly")
}

func TestManager_Start_RotatesExpiredSession(t *testing.T) {
	fixture := newManagerFixture(t)
	fixture.auth.refreshResult = &api.Credentials{
		Token:        mintAccessToken(t, time.Hour),
		RefreshToken: "refresh-2",
	}
	require.NoError(t, fixture.store.Save(NewPair(mintAccessToken(t, -time.Minute), "refresh-1")))

	require.NoError(t, fixture.manager.Start(context.Background()))

	assert.Equal(t, []string{"refresh-1"}, fixture.auth.refreshCalls)

	current, active := fixture.manager.Current()
	assert.True(t, active)
	assert.Equal(t, "refresh-2", current.RefreshToken)

	persisted, err := fixture.store.Load()
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", persisted.RefreshToken, "rotated pair is persisted")
}

func TestManager_Start_RejectedRotationClearsSession(t *testing.T) {
	fixture := newManagerFixture(t)
	fixture.auth.refreshErr = &api.APIError{Status: http.StatusUnauthorized, Code: "INVALID_TOKEN", Message: "Invalid or expired token"}
	require.NoError(t, fixture.store.Save(NewPair(mintAccessToken(t, -time.Minute), "refresh-1")))

	require.NoError(t, fixture.manager.Start(context.Background()), "a rejected resume is not an error")

	_, active := fixture.manager.Current()
	assert.False(t, active)

	persisted, err := fixture.store.Load()
	require.NoError(t, err)
	assert.True(t, persisted.Empty(), "stale session is wiped from storage")
	assert.True(t, fixture.lastChange(t).Empty(), "listeners learn about the invalidation")
}

func TestManager_Adopt(t *testing.T) {
	fixture := newManagerFixture(t)

	fixture.manager.Adopt(&api.Credentials{
		Token:        mintAccessToken(t, time.Hour),
		RefreshToken: "refresh-1",
	})

	current, active := fixture.manager.Current()
	assert.True(t, active)
	assert.Equal(t, "refresh-1", current.RefreshToken)

	persisted, err := fixture.store.Load()
	require.NoError(t, err)
	assert.Equal(t, current, persisted)
	assert.Equal(t, current, fixture.lastChange(t))
}

func TestManager_Logout_ClearsDespiteNetworkFailure(t *testing.T) {
	fixture := newManagerFixture(t)
	fixture.auth.logoutErr = errors.New("connection refused")
	fixture.manager.Adopt(&api.Credentials{
		Token:        mintAccessToken(t, time.Hour),
		RefreshToken: "refresh-1",
	})

	require.NoError(t, fixture.manager.Logout(context.Background()))

	assert.Equal(t, []string{"refresh-1"}, fixture.auth.logoutCalls, "revocation was attempted")

	_, active := fixture.manager.Current()
	assert.False(t, active)

	persisted, err := fixture.store.Load()
	require.NoError(t, err)
	assert.True(t, persisted.Empty())
}

func TestManager_Reconcile(t *testing.T) {
	fixture := newManagerFixture(t)
	fixture.manager.Adopt(&api.Credentials{
		Token:        mintAccessToken(t, time.Hour),
		RefreshToken: "refresh-1",
	})

	// Another process rotated the pair underneath us.
	external := NewPair(mintAccessToken(t, time.Hour), "refresh-2")
	require.NoError(t, fixture.store.Save(external))

	require.NoError(t, fixture.manager.Reconcile())
	current, _ := fixture.manager.Current()
	assert.Equal(t, "refresh-2", current.RefreshToken)

	// Another process logged out.
	require.NoError(t, fixture.store.Clear())
	require.NoError(t, fixture.manager.Reconcile())

	_, active := fixture.manager.Current()
	assert.False(t, active)
}

/*
TestManager_Reconcile_SameTokensDifferentTimeRepresentation verifies that a
persisted pair carrying the same tokens is recognized as unchanged even when
its ExpiresAt differs only in how the time is represented. The in-memory
expiry carries a monotonic reading and the local zone; a pair loaded from
disk does not. Neither difference means the session changed.
*/
func TestManager_Reconcile_SameTokensDifferentTimeRepresentation(t *testing.T) {
	fixture := newManagerFixture(t)
	fixture.manager.Adopt(&api.Credentials{
		Token:        mintAccessToken(t, time.Hour),
		RefreshToken: "refresh-1",
	})

	// Re-persist the same pair with its expiry shifted to a fixed zone, the
	// way a storage round trip would hand it back.
	current, _ := fixture.manager.Current()
	current.ExpiresAt = current.ExpiresAt.In(time.FixedZone("UTC+7", 7*3600))
	require.NoError(t, fixture.store.Save(current))

	fixture.mu.Lock()
	before := len(fixture.changes)
	fixture.mu.Unlock()

	require.NoError(t, fixture.manager.Reconcile())

	fixture.mu.Lock()
	after := len(fixture.changes)
	fixture.mu.Unlock()
	assert.Equal(t, before, after, "an unchanged session must not be re-adopted")

	reconciled, active := fixture.manager.Current()
	assert.True(t, active)
	assert.Equal(t, "refresh-1", reconciled.RefreshToken)
}

// # Store Tests

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")
	store := NewFileStore(path)

	// Absent file means no session.
	pair, err := store.Load()
	require.NoError(t, err)
	assert.True(t, pair.Empty())

	saved := NewPair(mintAccessToken(t, time.Hour), "refresh-1")
	require.NoError(t, store.Save(saved))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "tokens are owner-readable only")

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	require.NoError(t, store.Clear())
	pair, err = store.Load()
	require.NoError(t, err)
	assert.True(t, pair.Empty())

	assert.NoError(t, store.Clear(), "clearing twice is fine")
}

func TestFileStore_CorruptFileMeansNoSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	pair, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.True(t, pair.Empty())
}
