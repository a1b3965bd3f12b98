// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

/*
Package order implements the storefront order domain.

An order captures an immutable snapshot of the purchased items: the product
name and unit price are copied at checkout time so later catalogue edits
never rewrite purchase history. Monetary amounts are integer cents.

# Lifecycle

Orders move through a small state machine:

	pending -> processing -> completed
	pending/processing    -> cancelled

Completed orders are terminal and cannot be cancelled. Entering the
completed or cancelled state stamps the corresponding timestamp exactly
once.
*/
package order

import "time"

// # Order Status

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// IsValid reports whether the status is one of the known lifecycle states.
func (status Status) IsValid() bool {
	switch status {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Statuses lists every valid status value, for boundary validation.
func Statuses() []string {
	return []string{
		string(StatusPending),
		string(StatusProcessing),
		string(StatusCompleted),
		string(StatusCancelled),
	}
}

// # Domain Entities

// Item is a single purchased line with its price snapshot.
type Item struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// Subtotal returns the line total in cents.
func (item Item) Subtotal() int64 {
	return item.Price * int64(item.Quantity)
}

// BillingAddress is the optional billing block attached at checkout.
type BillingAddress struct {
	Name       string `json:"name,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Order is the purchase aggregate.
type Order struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	Items          []Item          `json:"items"`
	Total          int64           `json:"total"`
	Status         Status          `json:"status"`
	PaymentMethod  string          `json:"paymentMethod"`
	PaymentDetails map[string]any  `json:"paymentDetails"`
	BillingAddress *BillingAddress `json:"billingAddress,omitempty"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
	CancelledAt    *time.Time      `json:"cancelledAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// SetStatus transitions the order and stamps completion or cancellation
// timestamps on first entry into those states.
func (order *Order) SetStatus(status Status, now time.Time) {
	order.Status = status

	if status == StatusCompleted && order.CompletedAt == nil {
		stamp := now
		order.CompletedAt = &stamp
	}
	if status == StatusCancelled && order.CancelledAt == nil {
		stamp := now
		order.CancelledAt = &stamp
	}
	order.UpdatedAt = now
}
