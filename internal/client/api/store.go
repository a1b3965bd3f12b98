// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package api

import (
	"context"
	"fmt"
	"strconv"
)

// ProductQuery narrows the catalogue listing. Zero values are omitted.
type ProductQuery struct {
	Category string
	MinPrice int64
	MaxPrice int64
	Search   string
	Sort     string
	Order    string
	Page     int
	Limit    int
}

// Products returns a catalogue page with its pagination metadata.
func (client *Client) Products(ctx context.Context, query ProductQuery) ([]Product, Meta, error) {
	params := map[string]string{}
	if query.Category != "" {
		params["category"] = query.Category
	}
	if query.MinPrice > 0 {
		params["minPrice"] = strconv.FormatInt(query.MinPrice, 10)
	}
	if query.MaxPrice > 0 {
		params["maxPrice"] = strconv.FormatInt(query.MaxPrice, 10)
	}
	if query.Search != "" {
		params["search"] = query.Search
	}
	if query.Sort != "" {
		params["sort"] = query.Sort
		params["order"] = query.Order
	}
	if query.Page > 0 {
		params["page"] = strconv.Itoa(query.Page)
	}
	if query.Limit > 0 {
		params["limit"] = strconv.Itoa(query.Limit)
	}

	response, err := client.authed(ctx).SetQueryParams(params).Get("/api/v1/products")
	if err != nil {
		return nil, Meta{}, fmt.Errorf("list products: %w", err)
	}

	var products []Product
	var meta Meta
	if err := decodeData(response, &products, &meta); err != nil {
		return nil, Meta{}, err
	}
	return products, meta, nil
}

// Product returns a single catalogue entry.
func (client *Client) Product(ctx context.Context, id string) (*Product, error) {
	var found Product
	if err := client.getData(ctx, "/api/v1/products/"+id, nil, &found); err != nil {
		return nil, err
	}
	return &found, nil
}

// OrderInput is the checkout payload.
type OrderInput struct {
	Items         []OrderItemInput `json:"items"`
	PaymentMethod string           `json:"paymentMethod"`
}

// OrderItemInput requests one product line. Quantity zero means one.
type OrderItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity,omitempty"`
}

// CreateOrder places an order for the authenticated account.
func (client *Client) CreateOrder(ctx context.Context, input OrderInput) (*Order, error) {
	response, err := client.authed(ctx).SetBody(input).Post("/api/v1/orders")
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var created Order
	if err := decodeData(response, &created, nil); err != nil {
		return nil, err
	}
	return &created, nil
}

// Orders returns the authenticated account's orders, newest first.
func (client *Client) Orders(ctx context.Context, page, limit int) ([]Order, Meta, error) {
	params := map[string]string{}
	if page > 0 {
		params["page"] = strconv.Itoa(page)
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}

	response, err := client.authed(ctx).SetQueryParams(params).Get("/api/v1/orders")
	if err != nil {
		return nil, Meta{}, fmt.Errorf("list orders: %w", err)
	}

	var orders []Order
	var meta Meta
	if err := decodeData(response, &orders, &meta); err != nil {
		return nil, Meta{}, err
	}
	return orders, meta, nil
}

// CancelOrder cancels one of the authenticated account's orders.
func (client *Client) CancelOrder(ctx context.Context, id string) (*Order, error) {
	response, err := client.authed(ctx).Put("/api/v1/orders/" + id + "/cancel")
	if err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	var cancelled Order
	if err := decodeData(response, &cancelled, nil); err != nil {
		return nil, err
	}
	return &cancelled, nil
}
