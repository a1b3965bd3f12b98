// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

// HTTP delivery layer for the auth use cases.
//
// # Architecture
//
// Handlers act as the "gatekeepers" to the system. They are responsible for:
//   - JSON Request parsing and strict input validation.
//   - Mapping HTTP contexts to service layer method calls.
//   - Standardizing JSON response formats via the [respond] package.
//
// They contain NO business logic or database queries.

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/phamanh/verano/internal/platform/constants"
	requestutil "github.com/phamanh/verano/internal/platform/request"
	"github.com/phamanh/verano/internal/platform/respond"
	"github.com/phamanh/verano/internal/platform/validate"
)

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler manages the session lifecycle entry points: registration,
// login, token rotation, and logout.
type Handler struct {
	authService   *Service
	secureCookies bool
}

// NewHandler constructs a new [Handler] with its service dependency.
//
// secureCookies should be true in production so the session cookie is only
// sent over HTTPS.
func NewHandler(service *Service, secureCookies bool) *Handler {
	return &Handler{authService: service, secureCookies: secureCookies}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /register : Creates a new account and its first session.
//   - POST /login    : Authenticates and returns a token pair.
//   - POST /refresh  : Rotates a refresh token into a new pair.
//   - POST /logout   : Revokes a refresh token and clears the cookie.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)

	return router
}

// tokenResponse is the wire shape shared by register, login, and refresh.
//
// The field names (token/refreshToken) are a frozen contract with the SPA
// and the Go client; do not rename them to snake_case.
type tokenResponse struct {
	Token        string         `json:"token"`
	RefreshToken string         `json:"refreshToken"`
	User         *PublicProfile `json:"user,omitempty"`
}

// registerRequest represents the JSON payload expected for account creation.
type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// register handles POST /api/v1/auth/register requests.
//
// # Returns
//   - Writes HTTP 201 Created on success with the token pair and profile.
//   - Writes HTTP 400 Bad Request on validation failure or duplicate email.
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input registerRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	// ── 2. Boundary Validation ────────────────────────────────────────────

	validator := &validate.Validator{}
	validator.
		Required("username", input.Username).
		MinLen("username", input.Username, 3).
		MaxLen("username", input.Username, 30).
		Username("username", input.Username).
		Required("email", input.Email).
		Email("email", input.Email).
		Required("password", input.Password).
		Password("password", input.Password).
		Match("confirmPassword", input.ConfirmPassword, input.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	credentials, err := handler.authService.Register(request.Context(), RegisterInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
	})

	// Service handles uniqueness checks and Bcrypt hashing. If it fails, we
	// pass the domain error to the respond helper which maps it to the
	// correct HTTP status code.
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 4. Presentation Output ────────────────────────────────────────────

	handler.setSessionCookie(writer, credentials.AccessToken)

	profile := credentials.User.Profile()
	respond.JSON(writer, http.StatusCreated, tokenResponse{
		Token:        credentials.AccessToken,
		RefreshToken: credentials.RefreshToken,
		User:         &profile,
	})
}

// loginRequest represents the JSON payload expected for authentication.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login handles POST /api/v1/auth/login requests.
//
// # Returns
//   - Writes HTTP 200 OK on success with the token pair and profile.
//   - Writes HTTP 401 INVALID_CREDENTIALS for bad credentials.
//   - Writes HTTP 401 ACCOUNT_LOCKED while inside the lockout window.
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	// ── 2. Boundary Validation ────────────────────────────────────────────

	if input.Email == "" || input.Password == "" {
		respond.Error(writer, request, validate.RequiredError("email/password", "are required"))
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	credentials, err := handler.authService.Login(request.Context(), LoginInput{
		Email:    input.Email,
		Password: input.Password,
	})

	if err != nil {
		// 401 without leaking whether the email exists.
		respond.Error(writer, request, err)
		return
	}

	// ── 4. Presentation Output ────────────────────────────────────────────

	handler.setSessionCookie(writer, credentials.AccessToken)

	profile := credentials.User.Profile()
	respond.JSON(writer, http.StatusOK, tokenResponse{
		Token:        credentials.AccessToken,
		RefreshToken: credentials.RefreshToken,
		User:         &profile,
	})
}

// refreshRequest represents the JSON payload for token rotation.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refresh handles POST /api/v1/auth/refresh requests.
//
// # Returns
//   - Writes HTTP 200 OK with a fresh token pair.
//   - Writes HTTP 401 INVALID_TOKEN for unknown/expired/rotated tokens.
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input refreshRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.RefreshToken == "" {
		respond.Error(writer, request, validate.RequiredError("refreshToken", "is required"))
		return
	}

	// ── 2. Application Execution ──────────────────────────────────────────

	credentials, err := handler.authService.Refresh(request.Context(), input.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 3. Presentation Output ────────────────────────────────────────────

	handler.setSessionCookie(writer, credentials.AccessToken)

	// The rotation response intentionally omits the user object; callers
	// already hold the profile from login.
	respond.JSON(writer, http.StatusOK, tokenResponse{
		Token:        credentials.AccessToken,
		RefreshToken: credentials.RefreshToken,
	})
}

// logoutRequest represents the JSON payload for session termination.
type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// logout handles POST /api/v1/auth/logout requests.
//
// # Returns
//   - Writes HTTP 200 OK with a confirmation message. Presenting an unknown
//     or empty token still succeeds (idempotent logout).
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	var input logoutRequest
	// A missing or malformed body is tolerated; logout must always succeed.
	_ = requestutil.DecodeJSON(request, &input)

	if err := handler.authService.Logout(request.Context(), input.RefreshToken); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearSessionCookie(writer)

	respond.JSON(writer, http.StatusOK, map[string]string{
		constants.FieldMessage: "Successfully logged out",
	})
}

// setSessionCookie mirrors the access token into an httpOnly cookie for
// browser clients. The bearer header remains the primary transport.
func (handler *Handler) setSessionCookie(writer http.ResponseWriter, accessToken string) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.AccessTokenCookieName,
		Value:    accessToken,
		Path:     constants.AccessTokenCookiePath,
		Expires:  time.Now().Add(handler.authService.AccessTokenTTL()),
		HttpOnly: true,
		Secure:   handler.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearSessionCookie expires the session cookie immediately.
func (handler *Handler) clearSessionCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.AccessTokenCookieName,
		Value:    "",
		Path:     constants.AccessTokenCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   handler.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
