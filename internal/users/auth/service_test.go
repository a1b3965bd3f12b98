// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phamanh/verano/internal/platform/apperr"
	"github.com/phamanh/verano/internal/platform/sec"
	"github.com/phamanh/verano/internal/users/auth"
)

// ── In-Memory Fakes ──────────────────────────────────────────────────────────

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*auth.User // keyed by ID
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*auth.User)}
}

func (repo *memUserRepo) FindByID(_ context.Context, id string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if user, ok := repo.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, apperr.NotFound("User")
}

func (repo *memUserRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, user := range repo.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User not found with this email")
}

func (repo *memUserRepo) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, user := range repo.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User not found with this username")
}

func (repo *memUserRepo) Create(_ context.Context, user *auth.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	copied := *user
	repo.users[user.ID] = &copied
	return nil
}

func (repo *memUserRepo) Update(_ context.Context, user *auth.User) error {
	return repo.Create(context.Background(), user)
}

func (repo *memUserRepo) SaveLoginState(_ context.Context, user *auth.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	stored, ok := repo.users[user.ID]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.LoginAttempts = user.LoginAttempts
	stored.AccountLocked = user.AccountLocked
	stored.LockUntil = user.LockUntil
	stored.LastLogin = user.LastLogin
	return nil
}

func (repo *memUserRepo) UpdatePassword(_ context.Context, userID, newHash string, changedAt time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	stored, ok := repo.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.PasswordHash = newHash
	stored.PasswordChangedAt = &changedAt
	return nil
}

func (repo *memUserRepo) List(_ context.Context, limit, offset int) ([]*auth.User, int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var users []*auth.User
	for _, user := range repo.users {
		copied := *user
		users = append(users, &copied)
	}
	return users, len(repo.users), nil
}

func (repo *memUserRepo) Count(_ context.Context) (int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return len(repo.users), nil
}

// get returns the stored record for mutation by tests.
func (repo *memUserRepo) get(id string) *auth.User {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.users[id]
}

type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*auth.RefreshToken // keyed by token string
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[string]*auth.RefreshToken)}
}

func (repo *memTokenRepo) Create(_ context.Context, token *auth.RefreshToken) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	copied := *token
	repo.tokens[token.Token] = &copied
	return nil
}

func (repo *memTokenRepo) Consume(_ context.Context, tokenString string) (*auth.RefreshToken, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	token, ok := repo.tokens[tokenString]
	if !ok || !token.ExpiresAt.After(time.Now()) {
		return nil, apperr.NotFound("Refresh token")
	}
	delete(repo.tokens, tokenString)
	return token, nil
}

func (repo *memTokenRepo) Delete(_ context.Context, tokenString string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	delete(repo.tokens, tokenString)
	return nil
}

func (repo *memTokenRepo) DeleteAllForUser(_ context.Context, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for key, token := range repo.tokens {
		if token.UserID == userID {
			delete(repo.tokens, key)
		}
	}
	return nil
}

func (repo *memTokenRepo) DeleteExpired(_ context.Context) (int64, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var removed int64
	for key, token := range repo.tokens {
		if !token.ExpiresAt.After(time.Now()) {
			delete(repo.tokens, key)
			removed++
		}
	}
	return removed, nil
}

func (repo *memTokenRepo) count() int {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return len(repo.tokens)
}

type memSnapshotCache struct {
	mu      sync.Mutex
	entries map[string]*sec.UserSnapshot
}

func newMemSnapshotCache() *memSnapshotCache {
	return &memSnapshotCache{entries: make(map[string]*sec.UserSnapshot)}
}

func (cache *memSnapshotCache) Get(_ context.Context, userID string) (*sec.UserSnapshot, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return cache.entries[userID], nil
}

func (cache *memSnapshotCache) Set(_ context.Context, userID string, snapshot *sec.UserSnapshot, _ time.Duration) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.entries[userID] = snapshot
	return nil
}

func (cache *memSnapshotCache) Delete(_ context.Context, userID string) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	delete(cache.entries, userID)
	return nil
}

// ── Fixture ──────────────────────────────────────────────────────────────────

type fixture struct {
	service *auth.Service
	users   *memUserRepo
	tokens  *memTokenRepo
	cache   *memSnapshotCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tokenService, err := sec.NewTokenService([]byte("test-secret-at-least-32-bytes-long"), "verano.test")
	require.NoError(t, err)

	users := newMemUserRepo()
	tokens := newMemTokenRepo()
	cache := newMemSnapshotCache()

	return &fixture{
		service: auth.NewService(users, tokens, cache, tokenService, time.Hour, 7*24*time.Hour),
		users:   users,
		tokens:  tokens,
		cache:   cache,
	}
}

func (f *fixture) register(t *testing.T, email, password string) *auth.Credentials {
	t.Helper()
	credentials, err := f.service.Register(context.Background(), auth.RegisterInput{
		Username: "linh_tran",
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return credentials
}

// ── Registration ─────────────────────────────────────────────────────────────

/*
TestService_Register verifies the concrete enrollment scenario: a new account
receives both tokens, the default role, and a persisted refresh record.
*/
func TestService_Register(t *testing.T) {
	f := newFixture(t)

	credentials := f.register(t, "a@x.com", "Passw0rd!")

	assert.NotEmpty(t, credentials.AccessToken)
	assert.NotEmpty(t, credentials.RefreshToken)
	assert.Equal(t, sec.RoleUser, credentials.User.Role)
	assert.Equal(t, 1, f.tokens.count())

	// The stored password must never be the plain text
	stored := f.users.get(credentials.User.ID)
	require.NotNil(t, stored)
	assert.NotEqual(t, "Passw0rd!", stored.PasswordHash)
}

/*
TestService_Register_DuplicateEmail verifies that a taken email yields a
validation error and never creates a second record.
*/
func TestService_Register_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", "Passw0rd!")

	_, err := f.service.Register(context.Background(), auth.RegisterInput{
		Username: "someone_else",
		Email:    "a@x.com",
		Password: "Passw0rd!",
	})

	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.CodeOf(err))

	count, err := f.users.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// ── Login & Lockout ──────────────────────────────────────────────────────────

/*
TestService_Login verifies the happy path resets the failure counter and
stamps LastLogin.
*/
func TestService_Login(t *testing.T) {
	f := newFixture(t)
	registered := f.register(t, "a@x.com", "Passw0rd!")

	credentials, err := f.service.Login(context.Background(), auth.LoginInput{
		Email:    "a@x.com",
		Password: "Passw0rd!",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, credentials.AccessToken)
	assert.NotEqual(t, registered.RefreshToken, credentials.RefreshToken)

	stored := f.users.get(registered.User.ID)
	assert.Zero(t, stored.LoginAttempts)
	assert.NotNil(t, stored.LastLogin)
}

/*
TestService_Login_WrongPassword verifies the generic rejection and that the
same error is returned for unknown emails (no enumeration).
*/
func TestService_Login_WrongPassword(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", "Passw0rd!")

	_, err := f.service.Login(context.Background(), auth.LoginInput{Email: "a@x.com", Password: "wrong"})
	assert.Equal(t, "INVALID_CREDENTIALS", apperr.CodeOf(err))

	_, err = f.service.Login(context.Background(), auth.LoginInput{Email: "ghost@x.com", Password: "wrong"})
	assert.Equal(t, "INVALID_CREDENTIALS", apperr.CodeOf(err))
}

/*
TestService_Login_LockoutAfterFiveFailures walks the lockout state machine:
five consecutive failures lock the account, and the sixth attempt is rejected
with ACCOUNT_LOCKED even when the password is correct. Attempts made while
locked do not extend the lock.
*/
func TestService_Login_LockoutAfterFiveFailures(t *testing.T) {
	f := newFixture(t)
	registered := f.register(t, "a@x.com", "Passw0rd!")

	for attempt := 1; attempt <= 4; attempt++ {
		_, err := f.service.Login(context.Background(), auth.LoginInput{Email: "a@x.com", Password: "wrong"})
		assert.Equal(t, "INVALID_CREDENTIALS", apperr.CodeOf(err), "attempt %d", attempt)
	}

	// The 5th failure triggers the lock
	_, err := f.service.Login(context.Background(), auth.LoginInput{Email: "a@x.com", Password: "wrong"})
	assert.Equal(t, "ACCOUNT_LOCKED", apperr.CodeOf(err))

	stored := f.users.get(registered.User.ID)
	require.NotNil(t, stored.LockUntil)
	lockUntil := *stored.LockUntil

	// The 6th attempt with the CORRECT password is still rejected
	_, err = f.service.Login(context.Background(), auth.LoginInput{Email: "a@x.com", Password: "Passw0rd!"})
	assert.Equal(t, "ACCOUNT_LOCKED", apperr.CodeOf(err))

	// Rejected-while-locked attempts must not extend the window
	stored = f.users.get(registered.User.ID)
	assert.Equal(t, lockUntil, *stored.LockUntil)
	assert.Equal(t, 5, stored.LoginAttempts)
}

/*
TestService_Login_LazyUnlock verifies that once the lock window has passed, a
correct-password attempt succeeds without any background unlock job and
resets the failure counter to zero.
*/
func TestService_Login_LazyUnlock(t *testing.T) {
	f := newFixture(t)
	registered := f.register(t, "a@x.com", "Passw0rd!")

	// Put the stored record directly into an expired lock
	stored := f.users.get(registered.User.ID)
	expired := time.Now().Add(-1 * time.Minute)
	stored.AccountLocked = true
	stored.LockUntil = &expired
	stored.LoginAttempts = 5

	credentials, err := f.service.Login(context.Background(), auth.LoginInput{
		Email:    "a@x.com",
		Password: "Passw0rd!",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, credentials.AccessToken)

	stored = f.users.get(registered.User.ID)
	assert.Zero(t, stored.LoginAttempts)
	assert.False(t, stored.AccountLocked)
	assert.Nil(t, stored.LockUntil)
}

/*
TestService_Login_FailureAfterExpiredLockRestartsCounter verifies that a wrong
password presented after the lock window has passed counts as the first
failure of a fresh streak: the account served its penalty, so the attempt is
rejected as INVALID_CREDENTIALS rather than immediately re-locking.
*/
func TestService_Login_FailureAfterExpiredLockRestartsCounter(t *testing.T) {
	f := newFixture(t)
	registered := f.register(t, "a@x.com", "Passw0rd!")

	// Put the stored record directly into an expired lock at the threshold
	stored := f.users.get(registered.User.ID)
	expired := time.Now().Add(-1 * time.Minute)
	stored.AccountLocked = true
	stored.LockUntil = &expired
	stored.LoginAttempts = 5

	_, err := f.service.Login(context.Background(), auth.LoginInput{
		Email:    "a@x.com",
		Password: "wrong",
	})
	assert.Equal(t, "INVALID_CREDENTIALS", apperr.CodeOf(err))

	stored = f.users.get(registered.User.ID)
	assert.Equal(t, 1, stored.LoginAttempts)
	assert.False(t, stored.AccountLocked)
	assert.Nil(t, stored.LockUntil)
}

// ── Rotation ─────────────────────────────────────────────────────────────────

/*
TestService_Refresh_RotatesExactlyOnce verifies the single-use property:
login then refresh succeeds, and a second refresh with the now-rotated-away
token fails with INVALID_TOKEN.
*/
func TestService_Refresh_RotatesExactlyOnce(t *testing.T) {
	f := newFixture(t)
	registered := f.register(t, "a@x.com", "Passw0rd!")

	rotated, err := f.service.Refresh(context.Background(), registered.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.AccessToken)
	assert.NotEqual(t, registered.RefreshToken, rotated.RefreshToken)

	// Replaying the consumed token must fail
	_, err = f.service.Refresh(context.Background(), registered.RefreshToken)
	assert.Equal(t, "INVALID_TOKEN", apperr.CodeOf(err))

	// The replacement token still works
	_, err = f.service.Refresh(context.Background(), rotated.RefreshToken)
	assert.NoError(t, err)
}

/*
TestService_Refresh_ConcurrentSameToken races two exchanges of one token:
exactly one must win, the other must observe INVALID_TOKEN.
*/
func TestService_Refresh_ConcurrentSameToken(t *testing.T) {
	f := newFixture(t)
	registered := f.register(t, "a@x.com", "Passw0rd!")

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Refresh(context.Background(), registered.RefreshToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		if err == nil {
			wins++
		} else {
			assert.Equal(t, "INVALID_TOKEN", apperr.CodeOf(err))
			losses++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)
}

/*
TestService_Refresh_UnknownToken verifies that garbage and server-side
expired tokens are rejected with INVALID_TOKEN.
*/
func TestService_Refresh_UnknownToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Refresh(context.Background(), "not-a-real-token")
	assert.Equal(t, "INVALID_TOKEN", apperr.CodeOf(err))
}

/*
TestService_Refresh_DeletedUser verifies that a refresh token whose owning
account has disappeared is rejected.
*/
func TestService_Refresh_DeletedUser(t *testing.T) {
	f := newFixture(t)
	registered := f.register(t, "a@x.com", "Passw0rd!")

	f.users.mu.Lock()
	delete(f.users.users, registered.User.ID)
	f.users.mu.Unlock()

	_, err := f.service.Refresh(context.Background(), registered.RefreshToken)
	assert.Equal(t, "INVALID_TOKEN", apperr.CodeOf(err))
}

// ── Logout ───────────────────────────────────────────────────────────────────

/*
TestService_Logout verifies revocation: the token is gone afterwards, and
logging out twice (or with an unknown token) still succeeds.
*/
func TestService_Logout(t *testing.T) {
	f := newFixture(t)
	registered := f.register(t, "a@x.com", "Passw0rd!")

	require.NoError(t, f.service.Logout(context.Background(), registered.RefreshToken))
	assert.Zero(t, f.tokens.count())

	// Revoked token can no longer be rotated
	_, err := f.service.Refresh(context.Background(), registered.RefreshToken)
	assert.Equal(t, "INVALID_TOKEN", apperr.CodeOf(err))

	// Idempotency
	assert.NoError(t, f.service.Logout(context.Background(), registered.RefreshToken))
	assert.NoError(t, f.service.Logout(context.Background(), ""))
}

// ── Guard Snapshot ───────────────────────────────────────────────────────────

/*
TestService_GuardSnapshot verifies the read-through cache behavior and that
the snapshot carries the password-change watermark.
*/
func TestService_GuardSnapshot(t *testing.T) {
	f := newFixture(t)
	registered := f.register(t, "a@x.com", "Passw0rd!")

	snapshot, err := f.service.GuardSnapshot(context.Background(), registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, snapshot.Identity.UserID)
	assert.Zero(t, snapshot.PasswordChangedAt)

	// Second read must be served from the cache
	cached, err := f.cache.Get(context.Background(), registered.User.ID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, snapshot.Identity, cached.Identity)

	// Unknown accounts surface as errors so the guard rejects the token
	_, err = f.service.GuardSnapshot(context.Background(), "ghost")
	assert.Error(t, err)
}
