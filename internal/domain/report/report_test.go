package report

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxyglamour/storefront/internal/domain/order"
	"github.com/foxyglamour/storefront/internal/domain/visitor"
)

type mockRepo struct {
	since     time.Time
	sourceErr error
}

func (m *mockRepo) CountOrders(context.Context) (int, error) { return 4, nil }

func (m *mockRepo) Financials(context.Context) (Financials, error) {
	return Financials{
		Revenue: decimal.RequireFromString("5000"),
		Cost:    decimal.RequireFromString("3200.50"),
	}, nil
}

func (m *mockRepo) RecentOrders(_ context.Context, limit int) ([]order.Order, error) {
	return []order.Order{{ID: 4}, {ID: 3}}, nil
}

func (m *mockRepo) TopCustomers(_ context.Context, limit int) ([]Customer, error) {
	return []Customer{{Email: "a@example.com", Orders: 3}}, nil
}

func (m *mockRepo) UniqueVisitors(_ context.Context, since time.Time) (int, int, error) {
	m.since = since
	return 12, 9, nil
}

func (m *mockRepo) TopSources(_ context.Context, limit int) ([]Source, error) {
	return []Source{{Source: "facebook", Visits: 20}, {Visits: 5}}, m.sourceErr
}

func (m *mockRepo) RecentVisits(_ context.Context, limit int) ([]visitor.Visit, error) {
	return []visitor.Visit{{IP: "1.1.1.1"}}, nil
}

func TestDashboard(t *testing.T) {
	repo := &mockRepo{}
	loc := time.FixedZone("Asia/Dhaka", 6*60*60)
	svc := NewService(repo, loc)
	// 20:00 UTC on May 1 is already May 2 in Dhaka.
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC) }

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, d.TotalOrders)
	assert.True(t, decimal.RequireFromString("1799.50").Equal(d.Financials.Profit()))
	assert.Len(t, d.RecentOrders, 2)
	assert.Equal(t, 12, d.VisitorsToday)
	assert.Equal(t, 9, d.FirstVisitsToday)
	assert.Len(t, d.TopSources, 2)
	assert.Len(t, d.RecentVisits, 1)
	assert.True(t, time.Date(2026, 5, 2, 0, 0, 0, 0, loc).Equal(repo.since))
}

func TestDashboardError(t *testing.T) {
	svc := NewService(&mockRepo{sourceErr: errors.New("boom")}, nil)

	_, err := svc.Dashboard(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top sources")
}
