// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// RegisterInput is the sign-up payload.
type RegisterInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Register creates an account and adopts the returned access token.
func (client *Client) Register(ctx context.Context, input RegisterInput) (*Credentials, error) {
	return client.postCredentials(ctx, "/api/v1/auth/register", input)
}

// Login authenticates with email and password and adopts the returned
// access token.
func (client *Client) Login(ctx context.Context, email, password string) (*Credentials, error) {
	body := map[string]string{"email": email, "password": password}
	return client.postCredentials(ctx, "/api/v1/auth/login", body)
}

// Refresh rotates a refresh token into a fresh pair and adopts the new
// access token. The presented refresh token is consumed server-side whether
// this call's response arrives or not.
func (client *Client) Refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	body := map[string]string{"refreshToken": refreshToken}
	return client.postCredentials(ctx, "/api/v1/auth/refresh", body)
}

// Logout revokes the refresh token server-side and drops the local access
// token. The server treats unknown tokens as already logged out.
func (client *Client) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refreshToken": refreshToken}

	response, err := client.authed(ctx).SetBody(body).Post("/api/v1/auth/logout")
	if err != nil {
		return fmt.Errorf("logout request: %w", err)
	}
	if err := mapError(response); err != nil {
		return err
	}

	client.SetAccessToken("")
	return nil
}

// Me returns the authenticated account's profile.
func (client *Client) Me(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := client.getData(ctx, "/api/v1/users/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// postCredentials posts an auth payload and decodes the flat token body.
func (client *Client) postCredentials(ctx context.Context, path string, body any) (*Credentials, error) {
	response, err := client.http.R().SetContext(ctx).SetBody(body).Post(path)
	if err != nil {
		return nil, fmt.Errorf("auth request: %w", err)
	}
	if err := mapError(response); err != nil {
		return nil, err
	}

	var credentials Credentials
	if err := json.Unmarshal(response.Body(), &credentials); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}

	client.SetAccessToken(credentials.Token)
	return &credentials, nil
}

// authed returns a request carrying the current bearer token, if any.
func (client *Client) authed(ctx context.Context) *resty.Request {
	request := client.http.R().SetContext(ctx)
	if token := client.AccessToken(); token != "" {
		request.SetHeader("Authorization", "Bearer "+token)
	}
	return request
}

// getData performs an authenticated GET and unwraps the data envelope.
func (client *Client) getData(ctx context.Context, path string, query map[string]string, target any) error {
	request := client.authed(ctx)
	if len(query) > 0 {
		request.SetQueryParams(query)
	}

	response, err := request.Get(path)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	return decodeData(response, target, nil)
}

// decodeData unwraps {"data": ...} responses, optionally capturing meta.
func decodeData(response *resty.Response, target any, meta *Meta) error {
	if err := mapError(response); err != nil {
		return err
	}

	var envelope dataEnvelope
	if err := json.Unmarshal(response.Body(), &envelope); err != nil {
		return fmt.Errorf("decode response envelope: %w", err)
	}
	if meta != nil && envelope.Meta != nil {
		*meta = *envelope.Meta
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, target); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// mapError converts non-2xx responses into [*APIError] values.
func mapError(response *resty.Response) error {
	if response.StatusCode() >= http.StatusOK && response.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	apiError := &APIError{
		Status:  response.StatusCode(),
		Code:    "UNKNOWN",
		Message: http.StatusText(response.StatusCode()),
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(response.Body(), &envelope); err == nil && envelope.Error.Code != "" {
		apiError.Code = envelope.Error.Code
		apiError.Message = envelope.Error.Message
	}
	return apiError
}
