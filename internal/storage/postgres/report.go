package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foxyglamour/storefront/internal/domain/order"
	"github.com/foxyglamour/storefront/internal/domain/report"
	"github.com/foxyglamour/storefront/internal/domain/visitor"
)

const (
	countOrdersSQL = `SELECT count(*) FROM orders`

	financialsSQL = `SELECT
		COALESCE(sum(oi.price * oi.quantity), 0),
		COALESCE(sum(COALESCE(oi.cost_price, p.cost_price, 0) * oi.quantity), 0)
		FROM order_items oi LEFT JOIN products p ON p.id = oi.product_id`

	recentOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created DESC, id DESC LIMIT $1`

	topCustomersSQL = `SELECT email, count(*) AS n FROM orders
		GROUP BY email ORDER BY n DESC, email LIMIT $1`

	uniqueVisitorsSQL = `SELECT count(DISTINCT ip_address), count(*) FILTER (WHERE first_visit)
		FROM visitors WHERE created >= $1`

	topSourcesSQL = `SELECT COALESCE(utm_source, ''), count(*) AS n FROM visitors
		GROUP BY 1 ORDER BY n DESC, 1 LIMIT $1`

	recentVisitsSQL = `SELECT id, ip_address, user_agent, path, referer, utm_source, utm_medium,
		utm_campaign, first_visit, created
		FROM visitors ORDER BY created DESC, id DESC LIMIT $1`
)

var _ report.Repository = (*ReportRepository)(nil)

// ReportRepository runs the dashboard aggregates.
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository returns a ReportRepository that uses the given pool.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

func (r *ReportRepository) CountOrders(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countOrdersSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting orders: %w", err)
	}
	return n, nil
}

func (r *ReportRepository) Financials(ctx context.Context) (report.Financials, error) {
	var f report.Financials
	if err := r.pool.QueryRow(ctx, financialsSQL).Scan(&f.Revenue, &f.Cost); err != nil {
		return f, fmt.Errorf("summing financials: %w", err)
	}
	return f, nil
}

func (r *ReportRepository) RecentOrders(ctx context.Context, limit int) ([]order.Order, error) {
	return listOrders(ctx, r.pool, recentOrdersSQL, limit)
}

func (r *ReportRepository) TopCustomers(ctx context.Context, limit int) ([]report.Customer, error) {
	rows, err := r.pool.Query(ctx, topCustomersSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("top customers: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.Customer, error) {
		var c report.Customer
		err := row.Scan(&c.Email, &c.Orders)
		return c, err
	})
}

func (r *ReportRepository) UniqueVisitors(ctx context.Context, since time.Time) (unique, first int, err error) {
	if err := r.pool.QueryRow(ctx, uniqueVisitorsSQL, since).Scan(&unique, &first); err != nil {
		return 0, 0, fmt.Errorf("counting visitors: %w", err)
	}
	return unique, first, nil
}

func (r *ReportRepository) TopSources(ctx context.Context, limit int) ([]report.Source, error) {
	rows, err := r.pool.Query(ctx, topSourcesSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("top sources: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.Source, error) {
		var s report.Source
		err := row.Scan(&s.Source, &s.Visits)
		return s, err
	})
}

func (r *ReportRepository) RecentVisits(ctx context.Context, limit int) ([]visitor.Visit, error) {
	rows, err := r.pool.Query(ctx, recentVisitsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("recent visits: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (visitor.Visit, error) {
		var v visitor.Visit
		err := row.Scan(
			&v.ID, &v.IP, &v.UserAgent, &v.Path, &v.Referer, &v.UTMSource, &v.UTMMedium,
			&v.UTMCampaign, &v.FirstVisit, &v.Created,
		)
		return v, err
	})
}
