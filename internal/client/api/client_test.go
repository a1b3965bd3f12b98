// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// # Test Server

type recordedRequest struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func decodeBody(t *testing.T, request *http.Request) map[string]any {
	t.Helper()

	if request.Body == nil || request.ContentLength == 0 {
		return nil
	}
	var body map[string]any
	require.NoError(t, json.NewDecoder(request.Body).Decode(&body))
	return body
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recordedRequest) {
	t.Helper()

	var recorded []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		recorded = append(recorded, recordedRequest{
			method: request.Method,
			path:   request.URL.Path,
			auth:   request.Header.Get("Authorization"),
			body:   decodeBody(t, request),
		})
		handler(writer, request)
	}))
	t.Cleanup(server.Close)

	client := New(Config{BaseURL: server.URL, Timeout: 5 * time.Second})
	return client, &recorded
}

func writeJSON(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(payload)
}

// # Tests

func TestClient_Login_AdoptsAccessToken(t *testing.T) {
	client, recorded := newTestServer(t, func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(writer, http.StatusOK, map[string]any{
			"token":        "access-1",
			"refreshToken": "refresh-1",
			"user":         map[string]any{"id": "user-1", "username": "ana", "email": "ana@example.com", "role": "user"},
		})
	})

	credentials, err := client.Login(context.Background(), "ana@example.com", "Sup3r-secret")
	require.NoError(t, err)

	assert.Equal(t, "access-1", credentials.Token)
	assert.Equal(t, "refresh-1", credentials.RefreshToken)
	require.NotNil(t, credentials.User)
	assert.Equal(t, "ana", credentials.User.Username)

	assert.Equal(t, "access-1", client.AccessToken(), "token adopted for subsequent calls")

	request := (*recorded)[0]
	assert.Equal(t, http.MethodPost, request.method)
	assert.Equal(t, "/api/v1/auth/login", request.path)
	assert.Equal(t, map[string]any{"email": "ana@example.com", "password": "Sup3r-secret"}, request.body)
}

func TestClient_Login_MapsErrorEnvelope(t *testing.T) {
	client, _ := newTestServer(t, func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(writer, http.StatusUnauthorized, map[string]any{
			"error": map[string]any{"code": "INVALID_CREDENTIALS", "message": "Invalid email or password"},
		})
	})

	_, err := client.Login(context.Background(), "ana@example.com", "wrong")
	require.Error(t, err)

	var apiError *APIError
	require.ErrorAs(t, err, &apiError)
	assert.Equal(t, http.StatusUnauthorized, apiError.Status)
	assert.Equal(t, "INVALID_CREDENTIALS", apiError.Code)
	assert.Equal(t, "Invalid email or password", apiError.Message)
	assert.True(t, IsUnauthorized(err))
}

func TestClient_Refresh(t *testing.T) {
	client, recorded := newTestServer(t, func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(writer, http.StatusOK, map[string]any{
			"token":        "access-2",
			"refreshToken": "refresh-2",
		})
	})

	credentials, err := client.Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)

	assert.Equal(t, "refresh-2", credentials.RefreshToken)
	assert.Nil(t, credentials.User, "refresh responses carry no profile")
	assert.Equal(t, "access-2", client.AccessToken())
	assert.Equal(t, map[string]any{"refreshToken": "refresh-1"}, (*recorded)[0].body)
}

func TestClient_Logout_DropsToken(t *testing.T) {
	client, recorded := newTestServer(t, func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(writer, http.StatusOK, map[string]any{"message": "Successfully logged out"})
	})
	client.SetAccessToken("access-1")

	require.NoError(t, client.Logout(context.Background(), "refresh-1"))

	assert.Empty(t, client.AccessToken())
	assert.Equal(t, "Bearer access-1", (*recorded)[0].auth, "logout still presents the session")
}

func TestClient_Products_UnwrapsEnvelope(t *testing.T) {
	client, recorded := newTestServer(t, func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(writer, http.StatusOK, map[string]any{
			"data": []map[string]any{
				{"id": "prod-1", "name": "Keyboard", "price": 4999, "isActive": true},
			},
			"meta": map[string]any{"page": 2, "limit": 10, "total": 31, "total_pages": 4},
		})
	})

	products, meta, err := client.Products(context.Background(), ProductQuery{
		Category: "accessories",
		MaxPrice: 10000,
		Page:     2,
		Limit:    10,
	})
	require.NoError(t, err)

	require.Len(t, products, 1)
	assert.Equal(t, int64(4999), products[0].Price)
	assert.Equal(t, Meta{Page: 2, Limit: 10, Total: 31, TotalPages: 4}, meta)

	assert.Equal(t, "/api/v1/products", (*recorded)[0].path)
}

func TestClient_CreateOrder_SendsBearer(t *testing.T) {
	client, recorded := newTestServer(t, func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(writer, http.StatusCreated, map[string]any{
			"data": map[string]any{"id": "order-1", "total": 9998, "status": "processing"},
		})
	})
	client.SetAccessToken("access-1")

	created, err := client.CreateOrder(context.Background(), OrderInput{
		Items:         []OrderItemInput{{ProductID: "prod-1", Quantity: 2}},
		PaymentMethod: "card",
	})
	require.NoError(t, err)

	assert.Equal(t, "order-1", created.ID)
	assert.Equal(t, int64(9998), created.Total)
	assert.Equal(t, "Bearer access-1", (*recorded)[0].auth)
}
