// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package product

import (
	"context"
	"time"

	"github.com/phamanh/verano/internal/platform/ctxutil"
	"github.com/phamanh/verano/pkg/pagination"
	"github.com/phamanh/verano/pkg/slug"
	"github.com/phamanh/verano/pkg/uuid"
)

// # Application Service

// Service implements the catalogue use cases on top of the Repository.
type Service struct {
	products Repository
}

// NewService constructs the catalogue application service.
func NewService(products Repository) *Service {
	return &Service{products: products}
}

// CreateInput carries the attributes for a new catalogue entry.
type CreateInput struct {
	Name        string
	Category    string
	Description string
	Price       int64
	Details     map[string]any
}

// UpdateInput carries the optional attribute changes for an existing entry.
// Nil fields are left untouched.
type UpdateInput struct {
	Name        *string
	Category    *string
	Description *string
	Price       *int64
	Details     map[string]any
	IsActive    *bool
}

/*
List returns the storefront catalogue page matching the filter.

Only active products are visible on the public surface; the handler forces
ActiveOnly before calling.

Parameters:
  - ctx: context.Context
  - filter: Filter (category, price range, search, sorting)
  - params: pagination.Params

Returns:
  - []*Product: The requested page of products
  - pagination.Meta: Totals for the client's pager
  - error: Storage failures
*/
func (service *Service) List(ctx context.Context, filter Filter, params pagination.Params) ([]*Product, pagination.Meta, error) {
	products, total, err := service.products.List(ctx, filter, params.Limit, params.Offset())
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	if products == nil {
		products = []*Product{}
	}
	return products, pagination.NewMeta(params.Page, params.Limit, total), nil
}

// GetByID returns a single product by its identifier.
//
// Inactive products remain fetchable so order history pages can resolve
// their line items.
func (service *Service) GetByID(ctx context.Context, id string) (*Product, error) {
	return service.products.FindByID(ctx, id)
}

// GetCategories returns the distinct categories of active products, shaped
// for storefront filter widgets.
func (service *Service) GetCategories(ctx context.Context) ([]Category, error) {
	names, err := service.products.Categories(ctx)
	if err != nil {
		return nil, err
	}

	categories := make([]Category, 0, len(names))
	for _, name := range names {
		categories = append(categories, Category{Name: name, Value: CategoryValue(name)})
	}
	return categories, nil
}

// Create adds a new active product to the catalogue on behalf of actorID.
func (service *Service) Create(ctx context.Context, actorID string, input CreateInput) (*Product, error) {
	now := time.Now()

	details := input.Details
	if details == nil {
		details = map[string]any{}
	}

	created := &Product{
		ID:          uuid.New(),
		Name:        input.Name,
		Slug:        slug.From(input.Name),
		Category:    input.Category,
		Description: input.Description,
		Price:       input.Price,
		Details:     details,
		IsActive:    true,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := service.products.Create(ctx, created); err != nil {
		return nil, err
	}

	ctxutil.GetLogger(ctx).Info("product_created",
		"product_id", created.ID,
		"category", created.Category,
		"created_by", actorID,
	)
	return created, nil
}

// Update applies the non-nil fields of input to an existing product.
func (service *Service) Update(ctx context.Context, id string, input UpdateInput) (*Product, error) {
	existing, err := service.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		existing.Name = *input.Name
		existing.Slug = slug.From(*input.Name)
	}
	if input.Category != nil {
		existing.Category = *input.Category
	}
	if input.Description != nil {
		existing.Description = *input.Description
	}
	if input.Price != nil {
		existing.Price = *input.Price
	}
	if input.Details != nil {
		existing.Details = input.Details
	}
	if input.IsActive != nil {
		existing.IsActive = *input.IsActive
	}

	if err := service.products.Update(ctx, existing); err != nil {
		return nil, err
	}

	ctxutil.GetLogger(ctx).Info("product_updated", "product_id", existing.ID)
	return existing, nil
}

// Delete removes a product from the storefront by deactivating it.
func (service *Service) Delete(ctx context.Context, id string) error {
	if err := service.products.Deactivate(ctx, id); err != nil {
		return err
	}
	ctxutil.GetLogger(ctx).Info("product_deactivated", "product_id", id)
	return nil
}
