// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phamanh/verano/internal/platform/apperr"
	"github.com/phamanh/verano/internal/platform/constants"
	"github.com/phamanh/verano/internal/platform/ctxutil"
	"github.com/phamanh/verano/internal/platform/respond"
	"github.com/phamanh/verano/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify access tokens in the guard.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from [sec.TokenService],
// allowing us to easily inject mocks during unit testing.
type TokenVerifier interface {
	VerifyTokenOfKind(tokenString, kind string) (*sec.AuthClaims, error)
}

// UserSource resolves the persisted state of an account for the guard.
//
// Implementations are expected to be cheap per call (the auth service backs
// this with a short-lived Redis snapshot in front of PostgreSQL).
type UserSource interface {
	GuardSnapshot(ctx context.Context, userID string) (*sec.UserSnapshot, error)
}

// Authenticate is the session guard: it extracts, verifies, and resolves the
// access token on every request.
//
// # Flow
//  1. Read 'Authorization: Bearer <token>', falling back to the 'jwt' cookie.
//  2. If absent, the request proceeds as anonymous.
//  3. Verify the JWT signature, expiry, and access kind via [TokenVerifier].
//  4. Resolve the CURRENT account state via [UserSource]; a token for a
//     deleted account is rejected even if cryptographically valid.
//  5. Reject tokens issued before the account's last password change.
//  6. Inject the resolved [*sec.Identity] into the request context.
//
// # Parameters
//   - verifier: The TokenVerifier instance.
//   - users: The UserSource used to load the acting account.
//
// # Returns
//   - An [http.Handler] middleware.
func Authenticate(verifier TokenVerifier, users UserSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Token Extraction ───────────────────────────────────────────
			tokenStr, present, err := extractToken(request)
			if err != nil {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
				return
			}
			if !present {
				next.ServeHTTP(writer, request)
				return
			}

			logger := ctxutil.GetLogger(request.Context())

			// ── 2. Token Verification ─────────────────────────────────────────
			claims, err := verifier.VerifyTokenOfKind(tokenStr, sec.KindAccess)
			if err != nil {
				// Both failure classes collapse to the same 401 for the
				// client, but expired tokens are routine while malformed
				// ones may indicate probing.
				event := "access_token_malformed"
				if isExpired(err) {
					event = "access_token_expired"
				}
				logger.WarnContext(request.Context(), event, slog.String("error", err.Error()))

				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			// ── 3. Account Resolution ─────────────────────────────────────────
			snapshot, err := users.GuardSnapshot(request.Context(), claims.UserID())
			if err != nil {
				respond.Error(writer, request, apperr.Unauthorized("Account no longer exists"))
				return
			}

			// ── 4. Password Rotation Check ────────────────────────────────────
			// Second precision on both sides; a token minted in the same
			// second as the change remains valid.
			if snapshot.PasswordChangedAt > 0 && claims.IssuedAt != nil &&
				claims.IssuedAt.Unix() < snapshot.PasswordChangedAt {
				logger.WarnContext(request.Context(), "access_token_predates_password_change",
					slog.String("user_id", claims.UserID()),
				)
				respond.Error(writer, request, apperr.Unauthorized("Password was changed recently, please log in again"))
				return
			}

			// ── 5. Context Injection ──────────────────────────────────────────
			identity := snapshot.Identity
			ctx := ctxutil.WithIdentity(request.Context(), &identity)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
//
// # Flow
//  1. Check if [*sec.Identity] exists in context.
//  2. If missing, abort with HTTP 401 Unauthorized.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		identity := ctxutil.GetIdentity(request.Context())
		if identity == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireRole blocks requests whose authenticated user is not in the allowed
// role set.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate]. It automatically
// implies [RequireAuth] so you don't need to mount both.
//
// # Flow
//  1. Check if [*sec.Identity] exists in context (implies AuthN).
//  2. Check membership of the user's role in the allowed set via [sec.Role.In].
//  3. If not a member, abort with HTTP 403 Forbidden.
func RequireRole(allowed ...sec.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			identity := ctxutil.GetIdentity(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if identity == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !identity.Role.In(allowed...) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// # Guard Helpers

// extractToken pulls the raw access token from the request, preferring the
// Authorization header and falling back to the session cookie set for
// browser clients.
func extractToken(request *http.Request) (token string, present bool, err error) {
	authHeader := request.Header.Get(constants.HeaderAuthorization)
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			return "", false, errors.New("middleware: invalid authorization header format")
		}
		return parts[1], true, nil
	}

	cookie, cookieErr := request.Cookie(constants.AccessTokenCookieName)
	if cookieErr != nil || cookie.Value == "" {
		return "", false, nil
	}
	return cookie.Value, true, nil
}

// isExpired reports whether a verification error is the expiry class.
func isExpired(err error) bool {
	return errors.Is(err, sec.ErrTokenExpired)
}
