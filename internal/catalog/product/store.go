// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package product

import "context"

// # Product Data Access

// Repository defines the data access contract for the catalogue domain.
type Repository interface {
	/*
		List returns a filtered, paginated slice of products and the total count.

		Parameters:
		  - ctx: context.Context
		  - filter: Filter (category, price range, search, sorting)
		  - limit: int
		  - offset: int

		Returns:
		  - []*Product: Slice of matching catalogue records
		  - int: Total count of records matching the filter
		  - error: Database retrieval failures
	*/
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Product, int, error)

	/*
		FindByID returns the product with the given ID.

		Parameters:
		  - ctx: context.Context
		  - id: string (UUID)

		Returns:
		  - *Product: The hydrated catalogue entity
		  - error: apperr.NotFound if missing
	*/
	FindByID(ctx context.Context, id string) (*Product, error)

	/*
		Create persists a new product to the store.

		Parameters:
		  - ctx: context.Context
		  - product: *Product (Metadata and initial state)

		Returns:
		  - error: Storage or constraint failures
	*/
	Create(ctx context.Context, product *Product) error

	/*
		Update persists changes to an existing product's mutable fields.

		Parameters:
		  - ctx: context.Context
		  - product: *Product (Target ID and modified attributes)

		Returns:
		  - error: apperr.NotFound if the row vanished, storage failures otherwise
	*/
	Update(ctx context.Context, product *Product) error

	/*
		Deactivate flips the product's active flag off without row removal.

		Parameters:
		  - ctx: context.Context
		  - id: string (UUID)

		Returns:
		  - error: apperr.NotFound if missing, state update failures otherwise
	*/
	Deactivate(ctx context.Context, id string) error

	/*
		Categories returns the distinct category names of active products.

		Parameters:
		  - ctx: context.Context

		Returns:
		  - []string: Sorted distinct category names
		  - error: Database retrieval failures
	*/
	Categories(ctx context.Context) ([]string, error)
}
