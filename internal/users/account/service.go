// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phamanh/verano/internal/platform/apperr"
	"github.com/phamanh/verano/internal/platform/sec"
	"github.com/phamanh/verano/internal/users/auth"
)

// # Service Layer

// Service orchestrates business logic for the authenticated user's own
// account: profile reads, profile updates, and password rotation.
//
// It reuses the auth domain's storage contracts; accounts and sessions are
// one aggregate, split across packages only by use case.
type Service struct {
	users         auth.UserRepository
	refreshTokens auth.RefreshTokenRepository
	cache         auth.SnapshotCache
	logger        *slog.Logger
}

// NewService constructs a new [Service] with its repository dependencies.
func NewService(
	users auth.UserRepository,
	refreshTokens auth.RefreshTokenRepository,
	cache auth.SnapshotCache,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:         users,
		refreshTokens: refreshTokens,
		cache:         cache,
		logger:        logger,
	}
}

// # Profile Management

/*
GetProfile retrieves the full private identity of a user.

Parameters:
  - ctx: context.Context
  - userID: string

Returns:
  - *auth.User: The hydrated user profile
  - error: Not found or execution failures
*/
func (service *Service) GetProfile(ctx context.Context, userID string) (*auth.User, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_get_profile_failed: %w", err)
	}
	return user, nil
}

// UpdateProfileInput defines the mutable subset of user profile fields.
type UpdateProfileInput struct {
	Username *string
	Email    *string
}

/*
UpdateProfile applies a partial set of changes to a user's account identity.

Description: Fetches the existing user state, overrides provided fields, and
synchronizes the change to persistent storage. Changing the email re-checks
uniqueness against other accounts before writing.

Parameters:
  - ctx: context.Context
  - userID: string
  - input: UpdateProfileInput

Returns:
  - *auth.User: The updated user profile
  - error: Update or storage failures
*/
func (service *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*auth.User, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_update_lookup_failed: %w", err)
	}

	// Business: a new email must not belong to another account
	if input.Email != nil && *input.Email != user.Email {
		if existing, err := service.users.FindByEmail(ctx, *input.Email); err == nil && existing.ID != userID {
			return nil, apperr.ValidationError("Email is already in use",
				apperr.FieldError{Field: "email", Message: "is already in use"})
		}
		user.Email = *input.Email
	}

	// Apply delta updates
	if input.Username != nil {
		user.Username = *input.Username
	}

	// Persist changes
	if err := service.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("account_service_update_failed: %w", err)
	}

	// Evict the guard's snapshot so the new identity is visible immediately
	_ = service.cache.Delete(ctx, userID)

	service.logger.Info("user_profile_updated", slog.String("user_id", userID))

	return user, nil
}

// # Password Rotation

/*
ChangePassword verifies the current password and replaces it, stamping
PasswordChangedAt so the session guard rejects every access token issued
before this moment.

Description: As a security event response, all of the user's refresh tokens
are revoked and the guard snapshot is evicted, forcing re-login everywhere.

Parameters:
  - ctx: context.Context
  - userID: string
  - currentPassword: string
  - newPassword: string

Returns:
  - error: InvalidCredentials if the current password does not match,
    or storage failures
*/
func (service *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("account_service_password_lookup_failed: %w", err)
	}

	if !sec.CheckPasswordHash(currentPassword, user.PasswordHash) {
		// Same code as a failed login, but the message names the field since
		// the caller is already authenticated (no enumeration risk here).
		return &apperr.AppError{
			Code:       "INVALID_CREDENTIALS",
			Message:    "Current password is incorrect",
			HTTPStatus: http.StatusUnauthorized,
		}
	}

	newHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("account_service_password_hash_failed: %w", err)
	}

	changedAt := time.Now()
	if err := service.users.UpdatePassword(ctx, userID, newHash, changedAt); err != nil {
		return fmt.Errorf("account_service_password_update_failed: %w", err)
	}

	// Security event response: revoke every refresh token and make the
	// guard's next lookup see the new PasswordChangedAt watermark.
	if err := service.refreshTokens.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("account_service_password_revoke_failed: %w", err)
	}
	if err := service.cache.Delete(ctx, userID); err != nil {
		service.logger.Warn("snapshot_cache_evict_failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	service.logger.Info("user_password_changed", slog.String("user_id", userID))

	return nil
}
