// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phamanh/verano/internal/platform/apperr"
	"github.com/phamanh/verano/internal/platform/ctxutil"
	"github.com/phamanh/verano/internal/platform/sec"
	"github.com/phamanh/verano/pkg/uuid"
)

// TokenProvider defines the contract for generating and verifying security tokens.
type TokenProvider interface {
	// IssueAccessToken creates a signed, short-lived access token string.
	IssueAccessToken(userID string, timeToLive time.Duration) (string, error)

	// IssueRefreshToken creates a signed, long-lived refresh token string.
	// Persistence of the matching record is the caller's responsibility.
	IssueRefreshToken(userID string, timeToLive time.Duration) (string, error)

	// VerifyTokenOfKind checks signature, expiry, and the token kind claim.
	VerifyTokenOfKind(tokenString, kind string) (*sec.AuthClaims, error)
}

// Service implements the account and session lifecycle use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, lockout,
// or rotation logic must be reviewed by the security team.
type Service struct {
	users         UserRepository
	refreshTokens RefreshTokenRepository
	cache         SnapshotCache
	tokens        TokenProvider

	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService constructs a new auth [Service] with necessary dependencies.
func NewService(
	users UserRepository,
	refreshTokens RefreshTokenRepository,
	cache SnapshotCache,
	tokens TokenProvider,
	accessTTL, refreshTTL time.Duration,
) *Service {
	return &Service{
		users:         users,
		refreshTokens: refreshTokens,
		cache:         cache,
		tokens:        tokens,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// AccessTokenTTL returns the configured access token lifetime. The HTTP layer
// uses it to align the session cookie's expiry with the token's.
func (service *Service) AccessTokenTTL() time.Duration {
	return service.accessTTL
}

// Credentials is a freshly issued access/refresh token pair plus the owning
// account.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

// RegisterInput holds the data required to enroll a new customer.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register validates, hashes, and persists a brand new user account, then
// issues its first token pair.
//
// # Parameters
//   - ctx: Context for the database operation.
//   - input: The user-provided registration details.
//
// # Returns
//   - The issued [*Credentials] for the new account.
//   - Returns [apperr.ValidationError] if the email or username is taken.
//
// # Business Rules
//   - Emails must be unique.
//   - Usernames must be unique.
//   - Default role is always 'user'.
func (service *Service) Register(ctx context.Context, input RegisterInput) (*Credentials, error) {
	// ── 1. Uniqueness Checks ──────────────────────────────────────────────

	// A taken email is a validation failure (HTTP 400), matching what the
	// storefront's registration form expects to render inline.
	if _, err := service.users.FindByEmail(ctx, input.Email); err == nil {
		return nil, apperr.ValidationError("Email is already registered",
			apperr.FieldError{Field: "email", Message: "is already registered"})
	}

	if _, err := service.users.FindByUsername(ctx, input.Username); err == nil {
		return nil, apperr.ValidationError("Username is already taken",
			apperr.FieldError{Field: "username", Message: "is already taken"})
	}

	// ── 2. Security ───────────────────────────────────────────────────────

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// ── 3. Entity Construction ────────────────────────────────────────────

	user := &User{
		ID:           uuid.New(), // Time-sortable ID to prevent PG index fragmentation.
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Role:         sec.RoleUser, // Rule: Default role is always User
	}

	// ── 4. Persistence ────────────────────────────────────────────────────

	// The unique indexes are the authority; the checks above only produce
	// nicer errors. A losing race still surfaces as a 4xx via dberr.
	if err := service.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	// ── 5. First Session ──────────────────────────────────────────────────

	return service.issuePair(ctx, user)
}

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string
}

// Login validates user credentials against the lockout state machine and
// issues security tokens.
//
// # Parameters
//   - ctx: Context for the database operation.
//   - input: Contains Email and plain-text Password.
//
// # Returns
//   - The issued [*Credentials] on success.
//   - Returns [apperr.InvalidCredentials] if credentials do not match.
//   - Returns [apperr.AccountLocked] while inside the lockout window.
//
// # State Machine
//
// Active --5 consecutive failures--> Locked(15m) --window passes--> Active.
// The lock is evaluated lazily at read time; attempts made while locked are
// rejected without counting, so they never extend the lock.
func (service *Service) Login(ctx context.Context, input LoginInput) (*Credentials, error) {
	logger := ctxutil.GetLogger(ctx)
	now := time.Now()

	// ── 1. Fetch Account ──────────────────────────────────────────────────

	// Return generic unauthorized error to prevent email enumeration attacks.
	user, err := service.users.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, apperr.InvalidCredentials()
	}

	// ── 2. Lockout Gate ───────────────────────────────────────────────────

	if user.IsLockedAt(now) {
		logger.WarnContext(ctx, "login_rejected_account_locked",
			slog.String("user_id", user.ID),
			slog.Time("lock_until", *user.LockUntil),
		)
		return nil, apperr.AccountLocked()
	}

	// ── 3. Password Verification ──────────────────────────────────────────

	// Bcrypt comparison is constant-time, preventing timing attacks.
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		locked := user.RecordLoginFailure(now)

		if err := service.users.SaveLoginState(ctx, user); err != nil {
			return nil, fmt.Errorf("auth_service_login_state_failed: %w", err)
		}

		if locked {
			logger.WarnContext(ctx, "account_locked",
				slog.String("user_id", user.ID),
				slog.Int("attempts", user.LoginAttempts),
			)
			return nil, apperr.AccountLocked()
		}

		logger.WarnContext(ctx, "login_failed",
			slog.String("user_id", user.ID),
			slog.Int("attempts", user.LoginAttempts),
		)
		return nil, apperr.InvalidCredentials()
	}

	// ── 4. Success Transition ─────────────────────────────────────────────

	user.RecordLoginSuccess(now)
	if err := service.users.SaveLoginState(ctx, user); err != nil {
		return nil, fmt.Errorf("auth_service_login_state_failed: %w", err)
	}

	// ── 5. Token Issuance ─────────────────────────────────────────────────

	return service.issuePair(ctx, user)
}

// Refresh implements the refresh token rotation mechanism.
//
// It consumes the presented token (delete-on-use) and issues a fresh pair.
// The delete is atomic, so of two concurrent exchanges of the same token
// exactly one succeeds; the loser gets [apperr.InvalidToken]. This is the
// replay protection and must be preserved.
func (service *Service) Refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	logger := ctxutil.GetLogger(ctx)

	// ── 1. Consume the Persisted Record ───────────────────────────────────

	// The store is the authority: a token absent from it (rotated away,
	// revoked, or expired server-side) is invalid regardless of signature.
	record, err := service.refreshTokens.Consume(ctx, refreshToken)
	if err != nil {
		logger.WarnContext(ctx, "refresh_token_unknown_or_expired")
		return nil, apperr.InvalidToken()
	}

	// ── 2. Signature Verification ─────────────────────────────────────────

	if _, err := service.tokens.VerifyTokenOfKind(refreshToken, sec.KindRefresh); err != nil {
		logger.WarnContext(ctx, "refresh_token_signature_rejected",
			slog.String("error", err.Error()),
		)
		return nil, apperr.InvalidToken()
	}

	// ── 3. Load the Owning Account ────────────────────────────────────────

	user, err := service.users.FindByID(ctx, record.UserID)
	if err != nil {
		logger.WarnContext(ctx, "refresh_token_orphaned",
			slog.String("user_id", record.UserID),
		)
		return nil, apperr.InvalidToken()
	}

	// ── 4. Issue the Replacement Pair ─────────────────────────────────────

	return service.issuePair(ctx, user)
}

// Logout revokes the presented refresh token.
//
// # Idempotency
//
// Revoking a token that is unknown, expired, or already revoked is still a
// successful logout; only infrastructure failures surface as errors.
func (service *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if err := service.refreshTokens.Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	return nil
}

// GuardSnapshot resolves the account state the session guard needs, serving
// from the Redis snapshot cache when possible.
//
// It implements [middleware.UserSource].
func (service *Service) GuardSnapshot(ctx context.Context, userID string) (*sec.UserSnapshot, error) {
	logger := ctxutil.GetLogger(ctx)

	// ── 1. Cache Lookup (best effort) ─────────────────────────────────────

	snapshot, err := service.cache.Get(ctx, userID)
	if err != nil {
		// Cache trouble must not take down authentication; fall through to PG.
		logger.WarnContext(ctx, "snapshot_cache_read_failed", slog.String("error", err.Error()))
	}
	if snapshot != nil {
		return snapshot, nil
	}

	// ── 2. Authoritative Read ─────────────────────────────────────────────

	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	snapshot = user.Snapshot()

	// ── 3. Cache Fill (best effort) ───────────────────────────────────────

	if err := service.cache.Set(ctx, userID, snapshot, SnapshotTTL); err != nil {
		logger.WarnContext(ctx, "snapshot_cache_write_failed", slog.String("error", err.Error()))
	}

	return snapshot, nil
}

// PurgeExpiredTokens removes refresh tokens past their expiry. Called by the
// background cleanup worker.
func (service *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return service.refreshTokens.DeleteExpired(ctx)
}

// issuePair creates, persists, and returns a fresh access/refresh pair for
// the user.
func (service *Service) issuePair(ctx context.Context, user *User) (*Credentials, error) {
	accessToken, err := service.tokens.IssueAccessToken(user.ID, service.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	refreshToken, err := service.tokens.IssueRefreshToken(user.ID, service.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	record := &RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: time.Now().Add(service.refreshTTL),
	}
	if err := service.refreshTokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("auth_service_refresh_persist_failed: %w", err)
	}

	return &Credentials{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}
