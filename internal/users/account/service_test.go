// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package account_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phamanh/verano/internal/platform/apperr"
	"github.com/phamanh/verano/internal/platform/sec"
	"github.com/phamanh/verano/internal/users/account"
	"github.com/phamanh/verano/internal/users/auth"
)

// ── Fakes ────────────────────────────────────────────────────────────────────

type stubUserRepo struct {
	byID      map[string]*auth.User
	passwords map[string]string // userID -> latest hash written
	changedAt map[string]time.Time
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byID:      make(map[string]*auth.User),
		passwords: make(map[string]string),
		changedAt: make(map[string]time.Time),
	}
}

func (repo *stubUserRepo) FindByID(_ context.Context, id string) (*auth.User, error) {
	if user, ok := repo.byID[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, apperr.NotFound("User")
}

func (repo *stubUserRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, user := range repo.byID {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User not found with this email")
}

func (repo *stubUserRepo) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	for _, user := range repo.byID {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User not found with this username")
}

func (repo *stubUserRepo) Create(_ context.Context, user *auth.User) error {
	copied := *user
	repo.byID[user.ID] = &copied
	return nil
}

func (repo *stubUserRepo) Update(_ context.Context, user *auth.User) error {
	copied := *user
	repo.byID[user.ID] = &copied
	return nil
}

func (repo *stubUserRepo) SaveLoginState(_ context.Context, user *auth.User) error { return nil }

func (repo *stubUserRepo) UpdatePassword(_ context.Context, userID, newHash string, changedAt time.Time) error {
	stored, ok := repo.byID[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.PasswordHash = newHash
	stored.PasswordChangedAt = &changedAt
	repo.passwords[userID] = newHash
	repo.changedAt[userID] = changedAt
	return nil
}

func (repo *stubUserRepo) List(_ context.Context, limit, offset int) ([]*auth.User, int, error) {
	return nil, len(repo.byID), nil
}

func (repo *stubUserRepo) Count(_ context.Context) (int, error) { return len(repo.byID), nil }

type stubTokenRepo struct {
	revokedUsers []string
}

func (repo *stubTokenRepo) Create(_ context.Context, _ *auth.RefreshToken) error { return nil }
func (repo *stubTokenRepo) Consume(_ context.Context, _ string) (*auth.RefreshToken, error) {
	return nil, apperr.NotFound("Refresh token")
}
func (repo *stubTokenRepo) Delete(_ context.Context, _ string) error { return nil }
func (repo *stubTokenRepo) DeleteAllForUser(_ context.Context, userID string) error {
	repo.revokedUsers = append(repo.revokedUsers, userID)
	return nil
}
func (repo *stubTokenRepo) DeleteExpired(_ context.Context) (int64, error) { return 0, nil }

type stubCache struct {
	evicted []string
}

func (cache *stubCache) Get(_ context.Context, _ string) (*sec.UserSnapshot, error) {
	return nil, nil
}
func (cache *stubCache) Set(_ context.Context, _ string, _ *sec.UserSnapshot, _ time.Duration) error {
	return nil
}
func (cache *stubCache) Delete(_ context.Context, userID string) error {
	cache.evicted = append(cache.evicted, userID)
	return nil
}

// ── Fixture ──────────────────────────────────────────────────────────────────

func newAccountFixture(t *testing.T) (*account.Service, *stubUserRepo, *stubTokenRepo, *stubCache) {
	t.Helper()

	users := newStubUserRepo()
	tokens := &stubTokenRepo{}
	cache := &stubCache{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return account.NewService(users, tokens, cache, logger), users, tokens, cache
}

func seedUser(t *testing.T, repo *stubUserRepo, id, email, password string) {
	t.Helper()
	hash, err := sec.HashPassword(password)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), &auth.User{
		ID:           id,
		Username:     "linh_tran",
		Email:        email,
		PasswordHash: hash,
		Role:         sec.RoleUser,
	}))
}

// ── Tests ────────────────────────────────────────────────────────────────────

/*
TestService_GetProfile verifies the lookup and the not-found propagation.
*/
func TestService_GetProfile(t *testing.T) {
	service, users, _, _ := newAccountFixture(t)
	seedUser(t, users, "user-1", "a@x.com", "Passw0rd!")

	user, err := service.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)

	_, err = service.GetProfile(context.Background(), "ghost")
	assert.Equal(t, "NOT_FOUND", apperr.CodeOf(err))
}

/*
TestService_UpdateProfile verifies partial updates, the email-uniqueness
rule, and the snapshot eviction.
*/
func TestService_UpdateProfile(t *testing.T) {
	service, users, _, cache := newAccountFixture(t)
	seedUser(t, users, "user-1", "a@x.com", "Passw0rd!")

	newEmail := "b@x.com"
	updated, err := service.UpdateProfile(context.Background(), "user-1", account.UpdateProfileInput{
		Email: &newEmail,
	})
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", updated.Email)
	assert.Equal(t, "linh_tran", updated.Username, "username untouched")
	assert.Contains(t, cache.evicted, "user-1")

	// A second account already holding the target email blocks the change
	seedUser(t, users, "user-2", "c@x.com", "Passw0rd!")
	taken := "b@x.com"
	_, err = service.UpdateProfile(context.Background(), "user-2", account.UpdateProfileInput{
		Email: &taken,
	})
	assert.Equal(t, "VALIDATION_ERROR", apperr.CodeOf(err))
}

/*
TestService_ChangePassword verifies the full rotation: current-password
check, hash replacement, PasswordChangedAt stamping, global refresh token
revocation, and snapshot eviction.
*/
func TestService_ChangePassword(t *testing.T) {
	service, users, tokens, cache := newAccountFixture(t)
	seedUser(t, users, "user-1", "a@x.com", "Passw0rd!")

	// Wrong current password
	err := service.ChangePassword(context.Background(), "user-1", "nope", "N3wPassw0rd!")
	assert.Equal(t, "INVALID_CREDENTIALS", apperr.CodeOf(err))
	assert.Empty(t, tokens.revokedUsers)

	// Correct rotation
	before := time.Now()
	err = service.ChangePassword(context.Background(), "user-1", "Passw0rd!", "N3wPassw0rd!")
	require.NoError(t, err)

	newHash := users.passwords["user-1"]
	assert.True(t, sec.CheckPasswordHash("N3wPassw0rd!", newHash))
	assert.False(t, sec.CheckPasswordHash("Passw0rd!", newHash))

	changedAt := users.changedAt["user-1"]
	assert.False(t, changedAt.Before(before.Truncate(time.Second)))

	assert.Contains(t, tokens.revokedUsers, "user-1")
	assert.Contains(t, cache.evicted, "user-1")
}
