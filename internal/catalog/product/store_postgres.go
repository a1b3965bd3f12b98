// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

// PostgreSQL implementation of the catalogue data access.
//
// # Query Strategy
//
// The listing query uses COUNT(*) OVER() so the total result count travels
// with the rows instead of requiring a second round-trip. Free-text search
// is a case-insensitive ILIKE over name and description, and the details
// column is JSONB so specification shapes can vary per category.

package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phamanh/verano/internal/platform/apperr"
	"github.com/phamanh/verano/internal/platform/dberr"
)

// PostgresProductRepository implements the Repository interface using pgx.
type PostgresProductRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL implementation of the Repository.
func NewRepository(pool *pgxpool.Pool) *PostgresProductRepository {
	return &PostgresProductRepository{pool: pool}
}

// List returns a filtered, paginated slice of products and the total count.
//
// The WHERE clause is built dynamically from the populated filter fields;
// every value travels as a bind parameter.
func (repository *PostgresProductRepository) List(ctx context.Context, filter Filter, limit, offset int) ([]*Product, int, error) {

	var queryBuilder strings.Builder
	var args []any
	argID := 1

	queryBuilder.WriteString(`
		SELECT
			id, name, slug, category, description, price, details,
			isactive, createdby, createdat, updatedat,
			COUNT(*) OVER() AS total_count
		FROM catalog.product
		WHERE TRUE`)

	if filter.ActiveOnly {
		queryBuilder.WriteString(" AND isactive = TRUE")
	}

	if filter.Category != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND lower(category) = lower($%d)", argID))
		args = append(args, filter.Category)
		argID++
	}

	if filter.MinPrice != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND price >= $%d", argID))
		args = append(args, *filter.MinPrice)
		argID++
	}

	if filter.MaxPrice != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND price <= $%d", argID))
		args = append(args, *filter.MaxPrice)
		argID++
	}

	if filter.Query != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", argID, argID))
		args = append(args, "%"+filter.Query+"%")
		argID++
	}

	column, descending := filter.SortColumn()
	direction := "ASC"
	if descending {
		direction = "DESC"
	}
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY %s %s", column, direction))

	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, limit, offset)

	rows, err := repository.pool.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []*Product
	var total int

	for rows.Next() {
		product, rowTotal, err := scanProductWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning product row: %w", err)
		}
		products = append(products, product)
		total = rowTotal
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating product rows: %w", err)
	}

	return products, total, nil
}

// FindByID returns the product with the given ID, active or not.
func (repository *PostgresProductRepository) FindByID(ctx context.Context, id string) (*Product, error) {
	const query = `
		SELECT
			id, name, slug, category, description, price, details,
			isactive, createdby, createdat, updatedat
		FROM catalog.product
		WHERE id = $1`

	product, err := scanProduct(repository.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Product")
		}
		return nil, fmt.Errorf("finding product by id: %w", err)
	}
	return product, nil
}

// Create persists a new product record into the catalog.product table.
func (repository *PostgresProductRepository) Create(ctx context.Context, product *Product) error {
	const query = `
		INSERT INTO catalog.product (
			id, name, slug, category, description, price, details,
			isactive, createdby, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	details, err := json.Marshal(product.Details)
	if err != nil {
		return fmt.Errorf("encoding product details: %w", err)
	}

	_, err = repository.pool.Exec(ctx, query,
		product.ID, product.Name, product.Slug, product.Category,
		product.Description, product.Price, details,
		product.IsActive, product.CreatedBy, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "creating product")
	}
	return nil
}

// Update persists the mutable fields of an existing product.
func (repository *PostgresProductRepository) Update(ctx context.Context, product *Product) error {
	const query = `
		UPDATE catalog.product
		SET name = $2, slug = $3, category = $4, description = $5,
		    price = $6, details = $7, isactive = $8, updatedat = NOW()
		WHERE id = $1`

	details, err := json.Marshal(product.Details)
	if err != nil {
		return fmt.Errorf("encoding product details: %w", err)
	}

	tag, err := repository.pool.Exec(ctx, query,
		product.ID, product.Name, product.Slug, product.Category,
		product.Description, product.Price, details, product.IsActive,
	)
	if err != nil {
		return dberr.Wrap(err, "updating product")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Product")
	}
	return nil
}

// Deactivate marks a product inactive so it disappears from the storefront
// while historical orders keep their reference.
func (repository *PostgresProductRepository) Deactivate(ctx context.Context, id string) error {
	const query = `
		UPDATE catalog.product
		SET isactive = FALSE, updatedat = NOW()
		WHERE id = $1`

	tag, err := repository.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivating product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Product")
	}
	return nil
}

// Categories returns the distinct category names of active products.
func (repository *PostgresProductRepository) Categories(ctx context.Context) ([]string, error) {
	const query = `
		SELECT DISTINCT category
		FROM catalog.product
		WHERE isactive = TRUE
		ORDER BY category ASC`

	rows, err := repository.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning category row: %w", err)
		}
		categories = append(categories, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category rows: %w", err)
	}

	return categories, nil
}

// # Row Scanning

func scanProduct(row pgx.Row) (*Product, error) {
	var product Product
	var details []byte

	err := row.Scan(
		&product.ID, &product.Name, &product.Slug, &product.Category,
		&product.Description, &product.Price, &details,
		&product.IsActive, &product.CreatedBy, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeDetails(details, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func scanProductWithTotal(rows pgx.Rows) (*Product, int, error) {
	var product Product
	var details []byte
	var total int

	err := rows.Scan(
		&product.ID, &product.Name, &product.Slug, &product.Category,
		&product.Description, &product.Price, &details,
		&product.IsActive, &product.CreatedBy, &product.CreatedAt, &product.UpdatedAt,
		&total,
	)
	if err != nil {
		return nil, 0, err
	}
	if err := decodeDetails(details, &product); err != nil {
		return nil, 0, err
	}
	return &product, total, nil
}

func decodeDetails(raw []byte, product *Product) error {
	if len(raw) == 0 {
		product.Details = map[string]any{}
		return nil
	}
	if err := json.Unmarshal(raw, &product.Details); err != nil {
		return fmt.Errorf("decoding product details: %w", err)
	}
	return nil
}
