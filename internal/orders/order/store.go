// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package order

import (
	"context"
	"time"
)

// # Order Data Access

// UserStats aggregates a customer's purchase history for admin views.
type UserStats struct {
	OrdersCount int   `json:"ordersCount"`
	TotalSpent  int64 `json:"totalSpent"`
}

// Repository defines the data access contract for the order domain.
type Repository interface {
	/*
		Create persists a new order and its line items atomically.

		Parameters:
		  - ctx: context.Context
		  - order: *Order (Aggregate with at least one item)

		Returns:
		  - error: Storage or constraint failures
	*/
	Create(ctx context.Context, order *Order) error

	/*
		FindByID returns the order with its line items hydrated.

		Parameters:
		  - ctx: context.Context
		  - id: string (UUID)

		Returns:
		  - *Order: The hydrated purchase aggregate
		  - error: apperr.NotFound if missing
	*/
	FindByID(ctx context.Context, id string) (*Order, error)

	/*
		ListForUser returns a customer's orders, newest first.

		Parameters:
		  - ctx: context.Context
		  - userID: string (UUID)
		  - status: Status (Empty string means all states)
		  - limit: int
		  - offset: int

		Returns:
		  - []*Order: The requested page of orders
		  - int: Total count matching the filter
		  - error: Database retrieval failures
	*/
	ListForUser(ctx context.Context, userID string, status Status, limit, offset int) ([]*Order, int, error)

	/*
		UpdateStatus persists an order's lifecycle fields.

		Parameters:
		  - ctx: context.Context
		  - order: *Order (Target ID with status and stamp fields set)

		Returns:
		  - error: apperr.NotFound if the row vanished, storage failures otherwise
	*/
	UpdateStatus(ctx context.Context, order *Order) error

	/*
		CountCreatedSince returns how many orders were created at or after since.

		Parameters:
		  - ctx: context.Context
		  - since: *time.Time (Nil counts every order)

		Returns:
		  - int: Matching order count
		  - error: Database retrieval failures
	*/
	CountCreatedSince(ctx context.Context, since *time.Time) (int, error)

	/*
		RevenueSince sums order totals created at or after since, in cents.
		Cancelled orders are excluded from revenue.

		Parameters:
		  - ctx: context.Context
		  - since: *time.Time (Nil sums every order)

		Returns:
		  - int64: Revenue in cents
		  - error: Database retrieval failures
	*/
	RevenueSince(ctx context.Context, since *time.Time) (int64, error)

	/*
		CountByStatus returns the order population grouped by lifecycle state.

		Parameters:
		  - ctx: context.Context

		Returns:
		  - map[Status]int: Order count per state; states with no orders are absent
		  - error: Database retrieval failures
	*/
	CountByStatus(ctx context.Context) (map[Status]int, error)

	/*
		StatsByUser returns per-customer order counts and lifetime spend.

		Parameters:
		  - ctx: context.Context
		  - userIDs: []string (Customers to aggregate; empty yields an empty map)

		Returns:
		  - map[string]UserStats: Keyed by user ID; absent customers have no orders
		  - error: Database retrieval failures
	*/
	StatsByUser(ctx context.Context, userIDs []string) (map[string]UserStats, error)
}
