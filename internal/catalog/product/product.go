// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

/*
Package product implements the storefront catalogue domain.

It owns the product aggregate: the sellable item with its category, pricing,
and free-form specification details. Prices are stored and transported as
integer cents to keep arithmetic exact across the order pipeline.

Removal from the catalogue is a soft operation (the item is deactivated, not
deleted) so that historical orders keep a resolvable product reference.
*/
package product

import (
	"time"

	"github.com/phamanh/verano/pkg/slug"
)

// # Domain Entities

// Product represents a single sellable item in the catalogue.
type Product struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Slug        string         `json:"slug"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Price       int64          `json:"price"`
	Details     map[string]any `json:"details"`
	IsActive    bool           `json:"isActive"`
	CreatedBy   string         `json:"createdBy"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Category is a distinct catalogue grouping exposed for storefront filters.
//
// Value is the machine-friendly form clients send back in list queries.
type Category struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CategoryValue derives the filterable value form of a category name.
func CategoryValue(name string) string {
	return slug.From(name)
}

// # Query Criteria

// Filter holds the optional criteria for catalogue listing.
//
// Nil pointer fields mean "not constrained". ActiveOnly is forced on for the
// public surface and relaxed only for administrative listings.
type Filter struct {
	Category   string
	MinPrice   *int64
	MaxPrice   *int64
	Query      string
	Sort       string
	Order      string
	ActiveOnly bool
}

// sortable is the whitelist of columns the listing may order by. Anything
// outside this set falls back to the default (newest first).
var sortable = map[string]string{
	"name":      "name",
	"price":     "price",
	"category":  "category",
	"createdAt": "createdat",
}

// SortColumn resolves the requested sort field to a safe column name.
//
// Returns the column and whether the direction should be descending. The
// direction only applies when an explicit sort field was recognised,
// mirroring the storefront contract where "sort" and "order" travel together.
func (filter Filter) SortColumn() (column string, descending bool) {
	if col, ok := sortable[filter.Sort]; ok {
		return col, filter.Order == "desc"
	}
	return "createdat", true
}
