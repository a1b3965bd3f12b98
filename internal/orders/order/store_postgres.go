// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

// PostgreSQL implementation of the order data access.
//
// # Query Strategy
//
// Line items live in orders.orderitem and are re-attached with a json_agg
// sub-select so a listing never pays an N+1 round-trip. Order creation
// writes the aggregate and its items inside a single transaction.

package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phamanh/verano/internal/platform/apperr"
	"github.com/phamanh/verano/internal/platform/dberr"
)

// PostgresOrderRepository implements the Repository interface using pgx.
type PostgresOrderRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL implementation of the Repository.
func NewRepository(pool *pgxpool.Pool) *PostgresOrderRepository {
	return &PostgresOrderRepository{pool: pool}
}

// itemsSubquery re-attaches line items as a JSON array, preserving the
// insertion order of the checkout payload.
const itemsSubquery = `
	COALESCE((
		SELECT json_agg(json_build_object(
			'productId', i.productid,
			'name', i.name,
			'price', i.price,
			'quantity', i.quantity
		) ORDER BY i.position)
		FROM orders.orderitem i
		WHERE i.orderid = o.id
	), '[]')`

// Create persists the order aggregate and its items in one transaction.
func (repository *PostgresOrderRepository) Create(ctx context.Context, order *Order) error {
	transaction, err := repository.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer func() { _ = transaction.Rollback(ctx) }()

	paymentDetails, billingAddress, err := encodeCheckoutBlobs(order)
	if err != nil {
		return err
	}

	const insertOrder = `
		INSERT INTO orders.order (
			id, userid, total, status, paymentmethod, paymentdetails,
			billingaddress, completedat, cancelledat, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = transaction.Exec(ctx, insertOrder,
		order.ID, order.UserID, order.Total, order.Status,
		order.PaymentMethod, paymentDetails, billingAddress,
		order.CompletedAt, order.CancelledAt, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "creating order")
	}

	const insertItem = `
		INSERT INTO orders.orderitem (orderid, position, productid, name, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for position, item := range order.Items {
		_, err = transaction.Exec(ctx, insertItem,
			order.ID, position, item.ProductID, item.Name, item.Price, item.Quantity,
		)
		if err != nil {
			return dberr.Wrap(err, "creating order item")
		}
	}

	if err := transaction.Commit(ctx); err != nil {
		return fmt.Errorf("committing order transaction: %w", err)
	}
	return nil
}

// FindByID returns the order with its line items hydrated.
func (repository *PostgresOrderRepository) FindByID(ctx context.Context, id string) (*Order, error) {
	query := fmt.Sprintf(`
		SELECT
			o.id, o.userid, o.total, o.status, o.paymentmethod, o.paymentdetails,
			o.billingaddress, o.completedat, o.cancelledat, o.createdat, o.updatedat,
			%s AS items
		FROM orders.order o
		WHERE o.id = $1`, itemsSubquery)

	found, err := scanOrder(repository.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Order")
		}
		return nil, fmt.Errorf("finding order by id: %w", err)
	}
	return found, nil
}

// ListForUser returns a customer's orders, newest first.
func (repository *PostgresOrderRepository) ListForUser(ctx context.Context, userID string, status Status, limit, offset int) ([]*Order, int, error) {
	var queryBuilder strings.Builder
	args := []any{userID}
	argID := 2

	queryBuilder.WriteString(fmt.Sprintf(`
		SELECT
			o.id, o.userid, o.total, o.status, o.paymentmethod, o.paymentdetails,
			o.billingaddress, o.completedat, o.cancelledat, o.createdat, o.updatedat,
			%s AS items,
			COUNT(*) OVER() AS total_count
		FROM orders.order o
		WHERE o.userid = $1`, itemsSubquery))

	if status != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND o.status = $%d", argID))
		args = append(args, status)
		argID++
	}

	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY o.createdat DESC LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, limit, offset)

	rows, err := repository.pool.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	var total int

	for rows.Next() {
		listed, rowTotal, err := scanOrderWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning order row: %w", err)
		}
		orders = append(orders, listed)
		total = rowTotal
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating order rows: %w", err)
	}

	return orders, total, nil
}

// UpdateStatus persists the lifecycle fields of an existing order.
func (repository *PostgresOrderRepository) UpdateStatus(ctx context.Context, order *Order) error {
	const query = `
		UPDATE orders.order
		SET status = $2, completedat = $3, cancelledat = $4, updatedat = $5
		WHERE id = $1`

	tag, err := repository.pool.Exec(ctx, query,
		order.ID, order.Status, order.CompletedAt, order.CancelledAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Order")
	}
	return nil
}

// CountCreatedSince returns how many orders were created at or after since.
func (repository *PostgresOrderRepository) CountCreatedSince(ctx context.Context, since *time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM orders.order`
	var args []any
	if since != nil {
		query += ` WHERE createdat >= $1`
		args = append(args, *since)
	}

	var count int
	if err := repository.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting orders: %w", err)
	}
	return count, nil
}

// RevenueSince sums non-cancelled order totals created at or after since.
func (repository *PostgresOrderRepository) RevenueSince(ctx context.Context, since *time.Time) (int64, error) {
	query := `SELECT COALESCE(SUM(total), 0) FROM orders.order WHERE status <> 'cancelled'`
	var args []any
	if since != nil {
		query += ` AND createdat >= $1`
		args = append(args, *since)
	}

	var revenue int64
	if err := repository.pool.QueryRow(ctx, query, args...).Scan(&revenue); err != nil {
		return 0, fmt.Errorf("summing revenue: %w", err)
	}
	return revenue, nil
}

// CountByStatus returns the order population grouped by lifecycle state.
func (repository *PostgresOrderRepository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	const query = `SELECT status, COUNT(*) FROM orders.order GROUP BY status`

	rows, err := repository.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("counting orders by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status counts: %w", err)
	}

	return counts, nil
}

// StatsByUser returns per-customer order counts and lifetime spend.
func (repository *PostgresOrderRepository) StatsByUser(ctx context.Context, userIDs []string) (map[string]UserStats, error) {
	stats := make(map[string]UserStats, len(userIDs))
	if len(userIDs) == 0 {
		return stats, nil
	}

	const query = `
		SELECT userid, COUNT(*), COALESCE(SUM(total), 0)
		FROM orders.order
		WHERE userid = ANY($1)
		GROUP BY userid`

	rows, err := repository.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("aggregating user order stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		var entry UserStats
		if err := rows.Scan(&userID, &entry.OrdersCount, &entry.TotalSpent); err != nil {
			return nil, fmt.Errorf("scanning user order stats: %w", err)
		}
		stats[userID] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user order stats: %w", err)
	}

	return stats, nil
}

// # Row Scanning

func scanOrder(row pgx.Row) (*Order, error) {
	var scanned Order
	var paymentDetails, billingAddress, items []byte

	err := row.Scan(
		&scanned.ID, &scanned.UserID, &scanned.Total, &scanned.Status,
		&scanned.PaymentMethod, &paymentDetails, &billingAddress,
		&scanned.CompletedAt, &scanned.CancelledAt, &scanned.CreatedAt, &scanned.UpdatedAt,
		&items,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeCheckoutBlobs(&scanned, paymentDetails, billingAddress, items); err != nil {
		return nil, err
	}
	return &scanned, nil
}

func scanOrderWithTotal(rows pgx.Rows) (*Order, int, error) {
	var scanned Order
	var paymentDetails, billingAddress, items []byte
	var total int

	err := rows.Scan(
		&scanned.ID, &scanned.UserID, &scanned.Total, &scanned.Status,
		&scanned.PaymentMethod, &paymentDetails, &billingAddress,
		&scanned.CompletedAt, &scanned.CancelledAt, &scanned.CreatedAt, &scanned.UpdatedAt,
		&items, &total,
	)
	if err != nil {
		return nil, 0, err
	}
	if err := decodeCheckoutBlobs(&scanned, paymentDetails, billingAddress, items); err != nil {
		return nil, 0, err
	}
	return &scanned, total, nil
}

func encodeCheckoutBlobs(order *Order) (paymentDetails, billingAddress []byte, err error) {
	details := order.PaymentDetails
	if details == nil {
		details = map[string]any{}
	}
	paymentDetails, err = json.Marshal(details)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding payment details: %w", err)
	}

	if order.BillingAddress != nil {
		billingAddress, err = json.Marshal(order.BillingAddress)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding billing address: %w", err)
		}
	}
	return paymentDetails, billingAddress, nil
}

func decodeCheckoutBlobs(order *Order, paymentDetails, billingAddress, items []byte) error {
	order.PaymentDetails = map[string]any{}
	if len(paymentDetails) > 0 {
		if err := json.Unmarshal(paymentDetails, &order.PaymentDetails); err != nil {
			return fmt.Errorf("decoding payment details: %w", err)
		}
	}

	if len(billingAddress) > 0 {
		order.BillingAddress = &BillingAddress{}
		if err := json.Unmarshal(billingAddress, order.BillingAddress); err != nil {
			return fmt.Errorf("decoding billing address: %w", err)
		}
	}

	order.Items = []Item{}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &order.Items); err != nil {
			return fmt.Errorf("decoding order items: %w", err)
		}
	}
	return nil
}
