// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phamanh/verano/internal/orders/order"
	"github.com/phamanh/verano/internal/platform/sec"
	"github.com/phamanh/verano/internal/users/auth"
	"github.com/phamanh/verano/pkg/pagination"
)

// # In-Memory Fakes

type fakeDirectory struct {
	accounts []*auth.User
}

func (directory *fakeDirectory) List(_ context.Context, limit, offset int) ([]*auth.User, int, error) {
	total := len(directory.accounts)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return directory.accounts[offset:end], total, nil
}

func (directory *fakeDirectory) Count(_ context.Context) (int, error) {
	return len(directory.accounts), nil
}

func (directory *fakeDirectory) CountCreatedBetween(_ context.Context, from, to *time.Time) (int, error) {
	count := 0
	for _, account := range directory.accounts {
		if from != nil && account.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && !account.CreatedAt.Before(*to) {
			continue
		}
		count++
	}
	return count, nil
}

type ledgerEntry struct {
	userID    string
	total     int64
	cancelled bool
	createdAt time.Time
}

type fakeLedger struct {
	entries []ledgerEntry
}

func (ledger *fakeLedger) CountCreatedSince(_ context.Context, since *time.Time) (int, error) {
	count := 0
	for _, entry := range ledger.entries {
		if since == nil || !entry.createdAt.Before(*since) {
			count++
		}
	}
	return count, nil
}

func (ledger *fakeLedger) RevenueSince(_ context.Context, since *time.Time) (int64, error) {
	var revenue int64
	for _, entry := range ledger.entries {
		if entry.cancelled {
			continue
		}
		if since == nil || !entry.createdAt.Before(*since) {
			revenue += entry.total
		}
	}
	return revenue, nil
}

func (ledger *fakeLedger) CountByStatus(_ context.Context) (map[order.Status]int, error) {
	counts := make(map[order.Status]int)
	for _, entry := range ledger.entries {
		if entry.cancelled {
			counts[order.StatusCancelled]++
		} else {
			counts[order.StatusProcessing]++
		}
	}
	return counts, nil
}

func (ledger *fakeLedger) StatsByUser(_ context.Context, userIDs []string) (map[string]order.UserStats, error) {
	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}

	stats := make(map[string]order.UserStats)
	for _, entry := range ledger.entries {
		if !wanted[entry.userID] {
			continue
		}
		row := stats[entry.userID]
		row.OrdersCount++
		row.TotalSpent += entry.total
		stats[entry.userID] = row
	}
	return stats, nil
}

// # Fixtures

// reportTime is a Saturday, so the Sunday week bucket opens on the 23rd.
var reportTime = time.Date(2026, time.August, 29, 15, 30, 0, 0, time.UTC)

func newReportService(directory *fakeDirectory, ledger *fakeLedger) *Service {
	service := NewService(directory, ledger)
	service.clock = func() time.Time { return reportTime }
	return service
}

func signup(id string, createdAt time.Time) *auth.User {
	return &auth.User{
		ID:        id,
		Username:  "user-" + id,
		Email:     id + "@example.com",
		Role:      sec.RoleUser,
		CreatedAt: createdAt,
	}
}

// # Tests

func TestWindowsAt(t *testing.T) {
	windows := windowsAt(reportTime)

	assert.Equal(t, time.Date(2026, time.August, 29, 0, 0, 0, 0, time.UTC), windows.today)
	assert.Equal(t, time.Date(2026, time.August, 23, 0, 0, 0, 0, time.UTC), windows.week, "week starts on Sunday")
	assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), windows.month)
	assert.Equal(t, time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC), windows.lastMonth)
	assert.Equal(t, time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC), windows.quarter, "Q3 opens in July")
}

func TestService_GetUserStats(t *testing.T) {
	directory := &fakeDirectory{accounts: []*auth.User{
		signup("a", reportTime.Add(-2*time.Hour)),                          // today
		signup("b", time.Date(2026, time.August, 24, 9, 0, 0, 0, time.UTC)), // this week
		signup("c", time.Date(2026, time.August, 5, 9, 0, 0, 0, time.UTC)),  // this month
		signup("d", time.Date(2026, time.July, 10, 9, 0, 0, 0, time.UTC)),   // last month
		signup("e", time.Date(2026, time.July, 20, 9, 0, 0, 0, time.UTC)),   // last month
		signup("f", time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)),   // before the quarter
	}}
	service := newReportService(directory, &fakeLedger{})

	report, err := service.GetUserStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, report.TotalUsers)
	assert.Equal(t, 1, report.NewUsersToday)
	assert.Equal(t, 2, report.NewUsersThisWeek)
	assert.Equal(t, 3, report.NewUsersThisMonth)

	// 3 sign-ups this month against 2 last month.
	assert.InDelta(t, 150.0, report.UserGrowth.LastMonth, 0.01)
	// 6 total against 5 since the quarter began.
	assert.InDelta(t, 20.0, report.UserGrowth.LastQuarter, 0.01)
}

func TestService_GetUserStats_EmptyComparisonWindows(t *testing.T) {
	service := newReportService(&fakeDirectory{}, &fakeLedger{})

	report, err := service.GetUserStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 100.0, report.UserGrowth.LastMonth, "empty windows never divide by zero")
	assert.Equal(t, 100.0, report.UserGrowth.LastQuarter)
}

func TestService_GetOrderStats(t *testing.T) {
	ledger := &fakeLedger{entries: []ledgerEntry{
		{userID: "a", total: 1000, createdAt: reportTime.Add(-time.Hour)},
		{userID: "a", total: 2000, createdAt: time.Date(2026, time.August, 25, 9, 0, 0, 0, time.UTC)},
		{userID: "b", total: 4000, createdAt: time.Date(2026, time.August, 2, 9, 0, 0, 0, time.UTC)},
		{userID: "b", total: 8000, createdAt: time.Date(2026, time.June, 2, 9, 0, 0, 0, time.UTC)},
		{userID: "b", total: 500, cancelled: true, createdAt: reportTime.Add(-time.Hour)},
	}}
	service := newReportService(&fakeDirectory{}, ledger)

	report, err := service.GetOrderStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.TotalOrders)
	assert.Equal(t, 2, report.OrdersToday)
	assert.Equal(t, 3, report.OrdersThisWeek)
	assert.Equal(t, 4, report.OrdersThisMonth)
	assert.Equal(t, map[order.Status]int{
		order.StatusProcessing: 4,
		order.StatusCancelled:  1,
	}, report.OrdersByStatus)

	assert.Equal(t, int64(15000), report.TotalRevenue, "cancelled orders carry no revenue")
	assert.Equal(t, int64(1000), report.RevenueToday)
	assert.Equal(t, int64(3000), report.RevenueThisWeek)
	assert.Equal(t, int64(7000), report.RevenueThisMonth)
}

func TestService_ListCustomers(t *testing.T) {
	bigSpender := signup("spender", reportTime.Add(-48*time.Hour))
	bigSpender.Role = sec.RoleAdmin
	lastSeen := reportTime.Add(-time.Hour)
	bigSpender.LastLogin = &lastSeen

	directory := &fakeDirectory{accounts: []*auth.User{
		bigSpender,
		signup("window-shopper", reportTime.Add(-24*time.Hour)),
	}}
	ledger := &fakeLedger{entries: []ledgerEntry{
		{userID: "spender", total: 4999, createdAt: reportTime.Add(-30 * time.Hour)},
		{userID: "spender", total: 2999, createdAt: reportTime.Add(-20 * time.Hour)},
		{userID: "someone-else", total: 99999, createdAt: reportTime},
	}}
	service := newReportService(directory, ledger)

	rows, meta, err := service.ListCustomers(context.Background(), pagination.Params{Page: 1, Limit: 20})
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, 2, meta.Total)

	assert.Equal(t, "spender", rows[0].ID)
	assert.True(t, rows[0].IsAdmin)
	assert.Equal(t, 2, rows[0].OrdersCount)
	assert.Equal(t, int64(7998), rows[0].TotalSpent)
	require.NotNil(t, rows[0].LastLogin)

	assert.Equal(t, "window-shopper", rows[1].ID)
	assert.Zero(t, rows[1].OrdersCount)
	assert.Zero(t, rows[1].TotalSpent)
}
