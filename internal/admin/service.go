// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

/*
Package admin implements the back-office reporting surface.

It aggregates read models over the account and order stores: sign-up and
revenue statistics for the dashboard, and an enriched customer directory.
Every endpoint in this package requires the admin role; the router mounts
the whole subtree behind the role guard.
*/
package admin

import (
	"context"
	"math"
	"time"

	"github.com/phamanh/verano/internal/orders/order"
	"github.com/phamanh/verano/internal/platform/sec"
	"github.com/phamanh/verano/internal/users/auth"
	"github.com/phamanh/verano/pkg/pagination"
)

// # Read Model Contracts

// AccountDirectory is the slice of the account store the dashboard reads.
type AccountDirectory interface {
	List(ctx context.Context, limit, offset int) ([]*auth.User, int, error)
	Count(ctx context.Context) (int, error)
	CountCreatedBetween(ctx context.Context, from, to *time.Time) (int, error)
}

// OrderLedger is the slice of the order store the dashboard reads.
type OrderLedger interface {
	CountCreatedSince(ctx context.Context, since *time.Time) (int, error)
	CountByStatus(ctx context.Context) (map[order.Status]int, error)
	RevenueSince(ctx context.Context, since *time.Time) (int64, error)
	StatsByUser(ctx context.Context, userIDs []string) (map[string]order.UserStats, error)
}

// # Report Shapes

// UserGrowth carries percentage deltas for the sign-up dashboard.
type UserGrowth struct {
	LastMonth   float64 `json:"lastMonth"`
	LastQuarter float64 `json:"lastQuarter"`
}

// UserStatsReport is the sign-up statistics payload.
type UserStatsReport struct {
	TotalUsers        int        `json:"totalUsers"`
	NewUsersToday     int        `json:"newUsersToday"`
	NewUsersThisWeek  int        `json:"newUsersThisWeek"`
	NewUsersThisMonth int        `json:"newUsersThisMonth"`
	UserGrowth        UserGrowth `json:"userGrowth"`
}

// OrderStatsReport is the order and revenue statistics payload. Revenue is
// in cents and excludes cancelled orders.
type OrderStatsReport struct {
	TotalOrders      int                  `json:"totalOrders"`
	OrdersToday      int                  `json:"ordersToday"`
	OrdersThisWeek   int                  `json:"ordersThisWeek"`
	OrdersThisMonth  int                  `json:"ordersThisMonth"`
	OrdersByStatus   map[order.Status]int `json:"ordersByStatus"`
	TotalRevenue     int64                `json:"totalRevenue"`
	RevenueToday     int64                `json:"revenueToday"`
	RevenueThisWeek  int64                `json:"revenueThisWeek"`
	RevenueThisMonth int64                `json:"revenueThisMonth"`
}

// CustomerRow is one entry of the enriched customer directory.
type CustomerRow struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	IsAdmin     bool       `json:"isAdmin"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
	OrdersCount int        `json:"ordersCount"`
	TotalSpent  int64      `json:"totalSpent"`
}

// # Application Service

// Service implements the back-office reporting use cases.
type Service struct {
	accounts AccountDirectory
	ledger   OrderLedger

	// clock is swappable in tests; the dashboards bucket by wall time.
	clock func() time.Time
}

// NewService constructs the admin reporting service.
func NewService(accounts AccountDirectory, ledger OrderLedger) *Service {
	return &Service{accounts: accounts, ledger: ledger, clock: time.Now}
}

// reportWindows holds the bucket boundaries every dashboard report shares.
// The week starts on Sunday.
type reportWindows struct {
	today     time.Time
	week      time.Time
	month     time.Time
	lastMonth time.Time
	quarter   time.Time
}

func windowsAt(now time.Time) reportWindows {
	year, month, day := now.Date()
	today := time.Date(year, month, day, 0, 0, 0, 0, now.Location())

	return reportWindows{
		today:     today,
		week:      today.AddDate(0, 0, -int(now.Weekday())),
		month:     time.Date(year, month, 1, 0, 0, 0, 0, now.Location()),
		lastMonth: time.Date(year, month-1, 1, 0, 0, 0, 0, now.Location()),
		quarter:   time.Date(year, (month-1)/3*3+1, 1, 0, 0, 0, 0, now.Location()),
	}
}

/*
GetUserStats returns the sign-up dashboard report.

Growth percentages compare the current month against the previous one and
the total population against the sign-ups since the quarter began. When the
comparison window is empty, growth reports 100 rather than dividing by zero.

Parameters:
  - ctx: context.Context

Returns:
  - *UserStatsReport: Counts and growth percentages
  - error: Storage failures
*/
func (service *Service) GetUserStats(ctx context.Context) (*UserStatsReport, error) {
	windows := windowsAt(service.clock())

	totalUsers, err := service.accounts.Count(ctx)
	if err != nil {
		return nil, err
	}

	newToday, err := service.accounts.CountCreatedBetween(ctx, &windows.today, nil)
	if err != nil {
		return nil, err
	}
	newThisWeek, err := service.accounts.CountCreatedBetween(ctx, &windows.week, nil)
	if err != nil {
		return nil, err
	}
	newThisMonth, err := service.accounts.CountCreatedBetween(ctx, &windows.month, nil)
	if err != nil {
		return nil, err
	}
	lastMonth, err := service.accounts.CountCreatedBetween(ctx, &windows.lastMonth, &windows.month)
	if err != nil {
		return nil, err
	}
	sinceQuarter, err := service.accounts.CountCreatedBetween(ctx, &windows.quarter, nil)
	if err != nil {
		return nil, err
	}

	monthGrowth := 100.0
	if lastMonth > 0 {
		monthGrowth = round1(float64(newThisMonth) / float64(lastMonth) * 100)
	}
	quarterGrowth := 100.0
	if sinceQuarter > 0 {
		quarterGrowth = round1((float64(totalUsers)/float64(sinceQuarter) - 1) * 100)
	}

	return &UserStatsReport{
		TotalUsers:        totalUsers,
		NewUsersToday:     newToday,
		NewUsersThisWeek:  newThisWeek,
		NewUsersThisMonth: newThisMonth,
		UserGrowth: UserGrowth{
			LastMonth:   monthGrowth,
			LastQuarter: quarterGrowth,
		},
	}, nil
}

// GetOrderStats returns the order volume and revenue dashboard report.
func (service *Service) GetOrderStats(ctx context.Context) (*OrderStatsReport, error) {
	windows := windowsAt(service.clock())
	report := &OrderStatsReport{}

	buckets := []struct {
		since   *time.Time
		count   *int
		revenue *int64
	}{
		{nil, &report.TotalOrders, &report.TotalRevenue},
		{&windows.today, &report.OrdersToday, &report.RevenueToday},
		{&windows.week, &report.OrdersThisWeek, &report.RevenueThisWeek},
		{&windows.month, &report.OrdersThisMonth, &report.RevenueThisMonth},
	}

	for _, bucket := range buckets {
		count, err := service.ledger.CountCreatedSince(ctx, bucket.since)
		if err != nil {
			return nil, err
		}
		revenue, err := service.ledger.RevenueSince(ctx, bucket.since)
		if err != nil {
			return nil, err
		}
		*bucket.count = count
		*bucket.revenue = revenue
	}

	byStatus, err := service.ledger.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	report.OrdersByStatus = byStatus

	return report, nil
}

// ListCustomers returns a page of accounts enriched with purchase history.
//
// Password hashes and lockout bookkeeping never leave the account entity's
// json:"-" fields, so the row shape here is explicit.
func (service *Service) ListCustomers(ctx context.Context, params pagination.Params) ([]CustomerRow, pagination.Meta, error) {
	accounts, total, err := service.accounts.List(ctx, params.Limit, params.Offset())
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	userIDs := make([]string, 0, len(accounts))
	for _, account := range accounts {
		userIDs = append(userIDs, account.ID)
	}

	stats, err := service.ledger.StatsByUser(ctx, userIDs)
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	rows := make([]CustomerRow, 0, len(accounts))
	for _, account := range accounts {
		entry := stats[account.ID]
		rows = append(rows, CustomerRow{
			ID:          account.ID,
			Username:    account.Username,
			Email:       account.Email,
			IsAdmin:     account.Role == sec.RoleAdmin,
			CreatedAt:   account.CreatedAt,
			LastLogin:   account.LastLogin,
			OrdersCount: entry.OrdersCount,
			TotalSpent:  entry.TotalSpent,
		})
	}

	return rows, pagination.NewMeta(params.Page, params.Limit, total), nil
}

func round1(value float64) float64 {
	return math.Round(value*10) / 10
}
