package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foxyglamour/storefront/internal/domain/courier"
)

// xmax is zero only for freshly inserted rows, which tells inserts apart
// from ON CONFLICT updates.
const (
	upsertCitySQL = `INSERT INTO pathao_cities (city_id, city_name, is_active) VALUES ($1, $2, $3)
		ON CONFLICT (city_id) DO UPDATE SET city_name = EXCLUDED.city_name, is_active = EXCLUDED.is_active
		RETURNING (xmax = 0)`

	upsertZoneSQL = `INSERT INTO pathao_zones (zone_id, zone_name, city_id, is_active) VALUES ($1, $2, $3, $4)
		ON CONFLICT (zone_id) DO UPDATE SET zone_name = EXCLUDED.zone_name,
			city_id = EXCLUDED.city_id, is_active = EXCLUDED.is_active
		RETURNING (xmax = 0)`

	upsertAreaSQL = `INSERT INTO pathao_areas (area_id, area_name, zone_id, is_active) VALUES ($1, $2, $3, $4)
		ON CONFLICT (area_id) DO UPDATE SET area_name = EXCLUDED.area_name,
			zone_id = EXCLUDED.zone_id, is_active = EXCLUDED.is_active
		RETURNING (xmax = 0)`

	listCitiesSQL = `SELECT city_id, city_name, is_active FROM pathao_cities
		WHERE is_active ORDER BY city_name`

	listZonesSQL = `SELECT zone_id, zone_name, city_id, is_active FROM pathao_zones
		WHERE city_id = $1 AND is_active ORDER BY zone_name`

	listAreasSQL = `SELECT area_id, area_name, zone_id, is_active FROM pathao_areas
		WHERE zone_id = $1 AND is_active ORDER BY area_name`
)

var _ courier.Locations = (*LocationRepository)(nil)

// LocationRepository stores synced courier cities, zones and areas.
type LocationRepository struct {
	pool *pgxpool.Pool
}

// NewLocationRepository returns a LocationRepository that uses the given pool.
func NewLocationRepository(pool *pgxpool.Pool) *LocationRepository {
	return &LocationRepository{pool: pool}
}

func (r *LocationRepository) UpsertCity(ctx context.Context, c courier.City) (bool, error) {
	var created bool
	if err := r.pool.QueryRow(ctx, upsertCitySQL, c.ID, c.Name, c.IsActive).Scan(&created); err != nil {
		return false, fmt.Errorf("upserting city %d: %w", c.ID, err)
	}
	return created, nil
}

func (r *LocationRepository) UpsertZone(ctx context.Context, z courier.Zone) (bool, error) {
	var created bool
	if err := r.pool.QueryRow(ctx, upsertZoneSQL, z.ID, z.Name, z.CityID, z.IsActive).Scan(&created); err != nil {
		return false, fmt.Errorf("upserting zone %d: %w", z.ID, err)
	}
	return created, nil
}

func (r *LocationRepository) UpsertArea(ctx context.Context, a courier.Area) (bool, error) {
	var created bool
	if err := r.pool.QueryRow(ctx, upsertAreaSQL, a.ID, a.Name, a.ZoneID, a.IsActive).Scan(&created); err != nil {
		return false, fmt.Errorf("upserting area %d: %w", a.ID, err)
	}
	return created, nil
}

func (r *LocationRepository) ListCities(ctx context.Context) ([]courier.City, error) {
	rows, err := r.pool.Query(ctx, listCitiesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing cities: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (courier.City, error) {
		var c courier.City
		err := row.Scan(&c.ID, &c.Name, &c.IsActive)
		return c, err
	})
}

func (r *LocationRepository) ListZones(ctx context.Context, cityID int) ([]courier.Zone, error) {
	rows, err := r.pool.Query(ctx, listZonesSQL, cityID)
	if err != nil {
		return nil, fmt.Errorf("listing zones of city %d: %w", cityID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (courier.Zone, error) {
		var z courier.Zone
		err := row.Scan(&z.ID, &z.Name, &z.CityID, &z.IsActive)
		return z, err
	})
}

func (r *LocationRepository) ListAreas(ctx context.Context, zoneID int) ([]courier.Area, error) {
	rows, err := r.pool.Query(ctx, listAreasSQL, zoneID)
	if err != nil {
		return nil, fmt.Errorf("listing areas of zone %d: %w", zoneID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (courier.Area, error) {
		var a courier.Area
		err := row.Scan(&a.ID, &a.Name, &a.ZoneID, &a.IsActive)
		return a, err
	})
}
