// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

/*
Package api provides the Go client for the Verano storefront API.

It wraps a resty HTTP client and mirrors the server's wire contracts: the
auth endpoints exchange flat token payloads, while the catalogue and order
endpoints use the standard {"data": ...} envelope. Server-side failures are
surfaced as [*APIError] values carrying the machine-readable error code.

The client holds the current access token behind a mutex so the session
manager can rotate it from a background goroutine while requests are in
flight.
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// # Errors

// APIError is a structured failure returned by the storefront API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %s (%d %s)", e.Message, e.Status, e.Code)
}

// IsUnauthorized reports whether err is an API rejection with a 401 status.
func IsUnauthorized(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.Status == http.StatusUnauthorized
}

// # Wire Shapes

// Profile is the public account representation.
type Profile struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Credentials is the flat token payload the auth endpoints return.
type Credentials struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
	User         *Profile `json:"user,omitempty"`
}

// Product mirrors the catalogue entity. Price is in cents.
type Product struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Slug        string         `json:"slug"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Price       int64          `json:"price"`
	Details     map[string]any `json:"details"`
	IsActive    bool           `json:"isActive"`
}

// OrderItem is one purchased line with its price snapshot.
type OrderItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// Order mirrors the purchase aggregate.
type Order struct {
	ID            string      `json:"id"`
	UserID        string      `json:"userId"`
	Items         []OrderItem `json:"items"`
	Total         int64       `json:"total"`
	Status        string      `json:"status"`
	PaymentMethod string      `json:"paymentMethod"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// Meta is the pagination block of list responses.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
	Meta *Meta           `json:"meta"`
}

// # Client

// Config carries the client construction options.
type Config struct {
	// BaseURL is the API root, e.g. "https://verano.shop". Defaults to the
	// local development server.
	BaseURL string
	// Timeout bounds each request. Defaults to 15 seconds.
	Timeout time.Duration
}

// Client talks to the Verano storefront API.
type Client struct {
	http *resty.Client

	mu          sync.RWMutex
	accessToken string
}

// New constructs a storefront API client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

// SetAccessToken replaces the bearer token used for authenticated calls.
// An empty string drops authentication.
func (client *Client) SetAccessToken(token string) {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.accessToken = strings.TrimSpace(token)
}

// AccessToken returns the bearer token currently in use.
func (client *Client) AccessToken() string {
	client.mu.RLock()
	defer client.mu.RUnlock()
	return client.accessToken
}
