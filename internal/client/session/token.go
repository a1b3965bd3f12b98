// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

/*
Package session manages the client-side session lifecycle.

A session is a token pair: a short-lived access token presented on every
request and a long-lived refresh token that can mint a replacement pair.
The [Manager] keeps the pair fresh with a background scheduler, persists it
across process restarts through a [Store], and tears everything down on
logout.

The access token's expiry is read from its claims WITHOUT signature
verification. The client never trusts the token's content for
authorization; it only uses the timestamp to decide when to rotate, and the
server re-verifies everything.
*/
package session

import (
	"time"

	"github.com/phamanh/verano/internal/platform/sec"
)

// Pair is the client's token pair plus the decoded access token expiry.
type Pair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// NewPair builds a Pair from raw tokens, decoding the access token's expiry
// claim. The tokens are stored as-is even if the expiry cannot be decoded;
// a zero ExpiresAt is treated as already expired, forcing an immediate
// rotation on the next Start.
func NewPair(accessToken, refreshToken string) Pair {
	pair := Pair{AccessToken: accessToken, RefreshToken: refreshToken}

	if _, expiresAt, err := sec.DecodeExpiryUnverified(accessToken); err == nil {
		pair.ExpiresAt = expiresAt
	}
	return pair
}

// ExpiredAt reports whether the access token is unusable at the given time.
func (pair Pair) ExpiredAt(now time.Time) bool {
	return pair.ExpiresAt.IsZero() || !now.Before(pair.ExpiresAt)
}

// Empty reports whether the pair carries no session at all.
func (pair Pair) Empty() bool {
	return pair.AccessToken == "" && pair.RefreshToken == ""
}

// SameTokens reports whether other carries the same token strings. ExpiresAt
// is derived from the access token and is deliberately left out: a round trip
// through storage can change the time's internal representation without the
// session itself having changed.
func (pair Pair) SameTokens(other Pair) bool {
	return pair.AccessToken == other.AccessToken && pair.RefreshToken == other.RefreshToken
}
