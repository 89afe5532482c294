// Package courier dispatches orders to Pathao and keeps delivery locations
// and parcel statuses in sync.
package courier

import (
	"context"
	"strings"

	"golang.org/x/text/cases"

	"github.com/foxyglamour/storefront/internal/domain/order"
	"github.com/foxyglamour/storefront/internal/pathao"
)

// City is a synced courier city.
type City struct {
	ID       int
	Name     string
	IsActive bool
}

// Zone is a synced courier zone.
type Zone struct {
	ID       int
	Name     string
	CityID   int
	IsActive bool
}

// Area is a synced courier area.
type Area struct {
	ID       int
	Name     string
	ZoneID   int
	IsActive bool
}

// Client is the subset of the Pathao client used here.
type Client interface {
	Configured() bool
	GetCities(ctx context.Context) ([]pathao.City, error)
	GetZones(ctx context.Context, cityID int) ([]pathao.Zone, error)
	GetAreas(ctx context.Context, zoneID int) ([]pathao.Area, error)
	CreateOrder(ctx context.Context, req pathao.ParcelRequest) (*pathao.ParcelResult, error)
	GetOrderStatus(ctx context.Context, consignmentID string) (*pathao.OrderInfo, error)
}

// Orders is the order persistence the dispatcher needs.
type Orders interface {
	Get(ctx context.Context, id int64) (*order.Order, error)
	// ListTrackable returns orders sent to the courier that have a
	// consignment id.
	ListTrackable(ctx context.Context) ([]order.Order, error)
	// MarkSent records the consignment only if the order is not yet sent,
	// returning ErrAlreadySent otherwise.
	MarkSent(ctx context.Context, id int64, consignmentID, status string) error
	SetCourierStatus(ctx context.Context, id int64, status string) error
}

// Locations stores synced cities, zones and areas. Upserts report whether
// the row was created.
type Locations interface {
	UpsertCity(ctx context.Context, c City) (bool, error)
	UpsertZone(ctx context.Context, z Zone) (bool, error)
	UpsertArea(ctx context.Context, a Area) (bool, error)
	ListCities(ctx context.Context) ([]City, error)
	ListZones(ctx context.Context, cityID int) ([]Zone, error)
	ListAreas(ctx context.Context, zoneID int) ([]Area, error)
}

// Well-known city ids used when an order has no explicit courier city.
var cityIDs = map[string]int{
	"dhaka":      1,
	"chittagong": 2,
	"chattogram": 2,
	"rajshahi":   3,
	"khulna":     4,
	"sylhet":     5,
	"rangpur":    6,
	"barisal":    7,
	"mymensingh": 8,
}

const defaultCityID = 1

// CityIDFromName maps a free-text city name to a courier city id,
// defaulting to Dhaka.
func CityIDFromName(name string) int {
	key := cases.Fold().String(strings.TrimSpace(name))
	if id, ok := cityIDs[key]; ok {
		return id
	}
	return defaultCityID
}
