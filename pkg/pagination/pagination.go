// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

// Package pagination standardizes page-based navigation across the list
// endpoints: how "page" and "limit" query parameters are read and clamped,
// and the metadata block list responses carry.
package pagination

import (
	"net/http"
	"strconv"
)

const (
	// DefaultPage is the starting page (1-indexed).
	DefaultPage = 1
	// DefaultLimit is the page size when the request does not name one.
	DefaultLimit = 20
	// MaxLimit caps the page size a client may request.
	MaxLimit = 100
)

// Params is a validated page request.
type Params struct {
	Page  int
	Limit int
}

// Offset returns the SQL OFFSET corresponding to the page.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// FromRequest reads "page" and "limit" from the query string. Missing,
// malformed or out-of-range values fall back to the defaults rather than
// erroring; a bad page number is never worth a 400.
func FromRequest(r *http.Request) Params {
	params := Params{
		Page:  intParam(r, "page", DefaultPage),
		Limit: intParam(r, "limit", DefaultLimit),
	}
	if params.Page < 1 {
		params.Page = DefaultPage
	}
	if params.Limit < 1 || params.Limit > MaxLimit {
		params.Limit = DefaultLimit
	}
	return params
}

func intParam(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// Meta is the pagination metadata block of list responses.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewMeta derives the metadata block for a page of a total result set.
func NewMeta(page, limit, total int) Meta {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Meta{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}
