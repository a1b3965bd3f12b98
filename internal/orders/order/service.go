// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package order

import (
	"context"
	"fmt"
	"time"

	"github.com/phamanh/verano/internal/catalog/product"
	"github.com/phamanh/verano/internal/platform/apperr"
	"github.com/phamanh/verano/internal/platform/ctxutil"
	"github.com/phamanh/verano/internal/platform/sec"
	"github.com/phamanh/verano/pkg/pagination"
	"github.com/phamanh/verano/pkg/uuid"
)

// # Application Service

// ProductCatalog is the slice of the catalogue the checkout needs: price
// and availability resolution at order time.
type ProductCatalog interface {
	FindByID(ctx context.Context, id string) (*product.Product, error)
}

// Service implements the order use cases.
type Service struct {
	orders  Repository
	catalog ProductCatalog
}

// NewService constructs the order application service.
func NewService(orders Repository, catalog ProductCatalog) *Service {
	return &Service{orders: orders, catalog: catalog}
}

// ItemInput is one requested line at checkout. Quantity zero means one.
type ItemInput struct {
	ProductID string
	Quantity  int
}

// CreateInput carries the checkout payload.
type CreateInput struct {
	Items          []ItemInput
	PaymentMethod  string
	PaymentDetails map[string]any
	BillingAddress *BillingAddress
}

/*
Create places a new order for userID.

Every requested product is resolved against the catalogue at checkout time:
unknown or deactivated products reject the whole order. Prices and names
are snapshotted onto the line items, and the total is computed server-side
so the client-supplied payload can never influence the amount charged.

Parameters:
  - ctx: context.Context
  - userID: string (The purchasing customer)
  - input: CreateInput (Items, payment method, optional billing block)

Returns:
  - *Order: The persisted order in the processing state
  - error: Validation failures for unknown/unavailable products, storage failures
*/
func (service *Service) Create(ctx context.Context, userID string, input CreateInput) (*Order, error) {
	if len(input.Items) == 0 {
		return nil, apperr.ValidationError("Order must contain at least one item")
	}

	// ── 1. Catalogue Resolution ───────────────────────────────────────────

	items := make([]Item, 0, len(input.Items))
	var total int64

	for _, requested := range input.Items {
		if requested.Quantity < 0 {
			return nil, apperr.ValidationError(fmt.Sprintf("Quantity for product %s must be at least 1", requested.ProductID))
		}

		resolved, err := service.catalog.FindByID(ctx, requested.ProductID)
		if err != nil {
			if apperr.CodeOf(err) == "NOT_FOUND" {
				return nil, apperr.ValidationError(fmt.Sprintf("Product with ID %s not found", requested.ProductID))
			}
			return nil, err
		}
		if !resolved.IsActive {
			return nil, apperr.ValidationError(fmt.Sprintf("Product %s is no longer available", resolved.Name))
		}

		quantity := requested.Quantity
		if quantity == 0 {
			quantity = 1
		}

		line := Item{
			ProductID: resolved.ID,
			Name:      resolved.Name,
			Price:     resolved.Price,
			Quantity:  quantity,
		}
		items = append(items, line)
		total += line.Subtotal()
	}

	// ── 2. Aggregate Assembly ─────────────────────────────────────────────

	now := time.Now()
	created := &Order{
		ID:             uuid.New(),
		UserID:         userID,
		Items:          items,
		Total:          total,
		Status:         StatusProcessing,
		PaymentMethod:  input.PaymentMethod,
		PaymentDetails: input.PaymentDetails,
		BillingAddress: input.BillingAddress,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := service.orders.Create(ctx, created); err != nil {
		return nil, err
	}

	ctxutil.GetLogger(ctx).Info("order_created",
		"order_id", created.ID,
		"user_id", userID,
		"total", created.Total,
		"item_count", len(created.Items),
	)
	return created, nil
}

// ListForUser returns a page of the customer's own orders, newest first.
//
// status narrows the listing to one lifecycle state; empty means all.
func (service *Service) ListForUser(ctx context.Context, userID string, status Status, params pagination.Params) ([]*Order, pagination.Meta, error) {
	if status != "" && !status.IsValid() {
		return nil, pagination.Meta{}, apperr.ValidationError("Invalid status value", apperr.FieldError{
			Field:   "status",
			Message: "must be one of pending, processing, completed, cancelled",
		})
	}

	orders, total, err := service.orders.ListForUser(ctx, userID, status, params.Limit, params.Offset())
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	if orders == nil {
		orders = []*Order{}
	}
	return orders, pagination.NewMeta(params.Page, params.Limit, total), nil
}

// GetByID returns a single order, enforcing owner-or-admin visibility.
func (service *Service) GetByID(ctx context.Context, viewer *sec.Identity, id string) (*Order, error) {
	found, err := service.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !viewer.IsAdmin() && found.UserID != viewer.UserID {
		return nil, apperr.Forbidden("You do not have permission to view this order")
	}
	return found, nil
}

// Cancel transitions an order into the cancelled state.
//
// Owners and admins may cancel; completed orders are immutable and a second
// cancellation is rejected rather than silently absorbed.
func (service *Service) Cancel(ctx context.Context, actor *sec.Identity, id string) (*Order, error) {
	found, err := service.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && found.UserID != actor.UserID {
		return nil, apperr.Forbidden("You do not have permission to cancel this order")
	}
	if found.Status == StatusCompleted {
		return nil, apperr.ValidationError("Completed orders cannot be cancelled")
	}
	if found.Status == StatusCancelled {
		return nil, apperr.ValidationError("Order is already cancelled")
	}

	found.SetStatus(StatusCancelled, time.Now())
	if err := service.orders.UpdateStatus(ctx, found); err != nil {
		return nil, err
	}

	ctxutil.GetLogger(ctx).Info("order_cancelled", "order_id", found.ID, "user_id", actor.UserID)
	return found, nil
}

// UpdateStatus force-sets an order's lifecycle state. Admin surface only;
// the route guard enforces the role.
func (service *Service) UpdateStatus(ctx context.Context, id string, status Status) (*Order, error) {
	if !status.IsValid() {
		return nil, apperr.ValidationError("Invalid status value", apperr.FieldError{
			Field:   "status",
			Message: "must be one of pending, processing, completed, cancelled",
		})
	}

	found, err := service.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	found.SetStatus(status, time.Now())
	if err := service.orders.UpdateStatus(ctx, found); err != nil {
		return nil, err
	}

	ctxutil.GetLogger(ctx).Info("order_status_updated", "order_id", found.ID, "status", string(status))
	return found, nil
}
