// Package report aggregates order and traffic figures for the admin
// dashboard.
package report

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/foxyglamour/storefront/internal/domain/order"
	"github.com/foxyglamour/storefront/internal/domain/visitor"
)

const (
	recentOrdersLimit = 10
	topCustomersLimit = 5
	topSourcesLimit   = 5
	recentVisitsLimit = 10
)

// Financials are revenue and cost of goods across all order lines.
type Financials struct {
	Revenue decimal.Decimal
	// Cost uses each line's captured cost price, falling back to the
	// product's current cost price for lines without one.
	Cost decimal.Decimal
}

// Profit is revenue minus cost.
func (f Financials) Profit() decimal.Decimal {
	return f.Revenue.Sub(f.Cost)
}

// Customer is an order count per email.
type Customer struct {
	Email  string
	Orders int
}

// Source is a visit count per UTM source. An empty Source means no
// utm_source was present.
type Source struct {
	Source string
	Visits int
}

// Repository provides the aggregate queries.
type Repository interface {
	CountOrders(ctx context.Context) (int, error)
	Financials(ctx context.Context) (Financials, error)
	RecentOrders(ctx context.Context, limit int) ([]order.Order, error)
	TopCustomers(ctx context.Context, limit int) ([]Customer, error)
	// UniqueVisitors counts distinct IPs and first visits since the time.
	UniqueVisitors(ctx context.Context, since time.Time) (unique, first int, err error)
	TopSources(ctx context.Context, limit int) ([]Source, error)
	RecentVisits(ctx context.Context, limit int) ([]visitor.Visit, error)
}

// Dashboard is the admin overview.
type Dashboard struct {
	TotalOrders      int
	Financials       Financials
	RecentOrders     []order.Order
	TopCustomers     []Customer
	VisitorsToday    int
	FirstVisitsToday int
	TopSources       []Source
	RecentVisits     []visitor.Visit
	GeneratedAt      time.Time
}

// Service builds dashboards.
type Service struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

// NewService creates a report Service. Days start at midnight in loc.
func NewService(repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc, now: time.Now}
}

// StartOfDay returns local midnight of t's day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Dashboard runs the aggregate queries concurrently.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now()
	out := &Dashboard{GeneratedAt: now}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TotalOrders, err = s.repo.CountOrders(ctx)
		if err != nil {
			return errors.Wrap(err, "count orders")
		}
		return nil
	})
	g.Go(func() (err error) {
		out.Financials, err = s.repo.Financials(ctx)
		if err != nil {
			return errors.Wrap(err, "financials")
		}
		return nil
	})
	g.Go(func() (err error) {
		out.RecentOrders, err = s.repo.RecentOrders(ctx, recentOrdersLimit)
		if err != nil {
			return errors.Wrap(err, "recent orders")
		}
		return nil
	})
	g.Go(func() (err error) {
		out.TopCustomers, err = s.repo.TopCustomers(ctx, topCustomersLimit)
		if err != nil {
			return errors.Wrap(err, "top customers")
		}
		return nil
	})
	g.Go(func() (err error) {
		out.VisitorsToday, out.FirstVisitsToday, err = s.repo.UniqueVisitors(ctx, StartOfDay(now, s.loc))
		if err != nil {
			return errors.Wrap(err, "unique visitors")
		}
		return nil
	})
	g.Go(func() (err error) {
		out.TopSources, err = s.repo.TopSources(ctx, topSourcesLimit)
		if err != nil {
			return errors.Wrap(err, "top sources")
		}
		return nil
	})
	g.Go(func() (err error) {
		out.RecentVisits, err = s.repo.RecentVisits(ctx, recentVisitsLimit)
		if err != nil {
			return errors.Wrap(err, "recent visits")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
