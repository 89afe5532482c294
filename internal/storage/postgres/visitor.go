package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foxyglamour/storefront/internal/domain/visitor"
)

const (
	recordVisitSQL = `INSERT INTO visitors (ip_address, user_agent, path, referer,
		utm_source, utm_medium, utm_campaign, first_visit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created`

	purgeVisitsSQL = `DELETE FROM visitors WHERE created < $1`
)

var _ visitor.Repository = (*VisitorRepository)(nil)

// VisitorRepository stores page views.
type VisitorRepository struct {
	pool *pgxpool.Pool
}

// NewVisitorRepository returns a VisitorRepository that uses the given pool.
func NewVisitorRepository(pool *pgxpool.Pool) *VisitorRepository {
	return &VisitorRepository{pool: pool}
}

// Record inserts a visit and fills its id and timestamp.
func (r *VisitorRepository) Record(ctx context.Context, v *visitor.Visit) error {
	err := r.pool.QueryRow(ctx, recordVisitSQL,
		v.IP, v.UserAgent, v.Path, v.Referer,
		v.UTMSource, v.UTMMedium, v.UTMCampaign, v.FirstVisit,
	).Scan(&v.ID, &v.Created)
	if err != nil {
		return fmt.Errorf("recording visit: %w", err)
	}
	return nil
}

// PurgeBefore deletes visits older than before and returns how many went.
func (r *VisitorRepository) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, purgeVisitsSQL, before)
	if err != nil {
		return 0, fmt.Errorf("purging visits: %w", err)
	}
	return tag.RowsAffected(), nil
}
