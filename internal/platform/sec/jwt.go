// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via small interfaces.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/phamanh/verano/pkg/uuid"
)

// # Verification Failure Classes

// Access and refresh token verification failures are collapsed into a single
// client-facing code, but the guard logs them distinctly. These sentinels
// carry that distinction.
var (
	// ErrTokenExpired marks a token whose signature is fine but whose exp
	// claim is in the past.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenMalformed marks a token that failed parsing or signature
	// verification.
	ErrTokenMalformed = errors.New("sec: token malformed")
)

// AuthClaims represents the payload embedded inside a Verano JWT.
//
// # Why so small?
//
// The subject carries the user ID and nothing else of consequence: the
// session guard resolves the full acting user from storage on every request,
// so role or email changes take effect without waiting for token expiry.
type AuthClaims struct {
	jwt.RegisteredClaims

	// TokenKind distinguishes access from refresh tokens so one can never be
	// replayed in place of the other.
	TokenKind string `json:"knd,omitempty"`
}

const (
	// KindAccess is the TokenKind claim value for access tokens.
	KindAccess = "access"

	// KindRefresh is the TokenKind claim value for refresh tokens.
	KindRefresh = "refresh"
)

// UserID returns the subject claim.
func (c *AuthClaims) UserID() string {
	return c.Subject
}

// TokenService handles generation and verification of JWT tokens using HS256
// with a shared server secret.
type TokenService struct {
	secret []byte
	issuer string
}

// NewTokenService creates a new TokenService.
func NewTokenService(secret []byte, issuer string) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("sec: empty JWT secret")
	}
	return &TokenService{secret: secret, issuer: issuer}, nil
}

// IssueAccessToken creates a new signed access token for a user.
//
// It is a pure function of the user ID and the current time; no side effects.
func (service *TokenService) IssueAccessToken(userID string, timeToLive time.Duration) (string, error) {
	return service.sign(userID, KindAccess, timeToLive)
}

// IssueRefreshToken creates a new signed refresh token string for a user.
//
// Persistence of the matching record is the caller's responsibility; the jti
// claim guarantees each issued string is unique even within the same second.
func (service *TokenService) IssueRefreshToken(userID string, timeToLive time.Duration) (string, error) {
	return service.sign(userID, KindRefresh, timeToLive)
}

// sign builds and signs the claim set shared by both token kinds.
func (service *TokenService) sign(userID, kind string, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			ID:        uuid.New(),
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		TokenKind: kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// VerifyToken checks the signature and validity of a JWT string.
//
// # Failure Classes
//
// The returned error wraps [ErrTokenExpired] when the token is
// well-formed but past its expiry, and [ErrTokenMalformed] for every other
// parse or signature failure. Callers surface both as 401 but log them
// differently.
func (service *TokenService) VerifyToken(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid claim shape", ErrTokenMalformed)
	}

	return claims, nil
}

// VerifyTokenOfKind verifies the token and additionally enforces the
// expected TokenKind claim.
func (service *TokenService) VerifyTokenOfKind(tokenString, kind string) (*AuthClaims, error) {
	claims, err := service.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenKind != kind {
		return nil, fmt.Errorf("%w: wrong token kind %q", ErrTokenMalformed, claims.TokenKind)
	}
	return claims, nil
}

// DecodeExpiryUnverified extracts the expiry and issued-at claims WITHOUT
// validating the signature.
//
// It exists for the client session manager, which needs the expiry of its
// own stored token to schedule refreshes; trust is not required because the
// server re-validates every token it receives.
func DecodeExpiryUnverified(tokenString string) (issuedAt, expiresAt time.Time, err error) {
	parser := jwt.NewParser()
	claims := &AuthClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: missing time claims", ErrTokenMalformed)
	}
	return claims.IssuedAt.Time, claims.ExpiresAt.Time, nil
}
