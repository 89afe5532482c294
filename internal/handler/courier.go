package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/labstack/echo/v4"

	"github.com/foxyglamour/storefront/internal/domain/courier"
)

func intParam(c echo.Context, name string) (int, error) {
	id, err := idParam(c, name)
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

func (h *Handler) ListCities(c echo.Context) error {
	cities, err := h.Courier.Cities(c.Request().Context())
	if err != nil {
		return err
	}
	return respondList(c, "cities", len(cities), func(e *jx.Encoder, i int) {
		encodeLocation(e, cities[i].ID, cities[i].Name, "", 0)
	})
}

func (h *Handler) ListZones(c echo.Context) error {
	cityID, err := intParam(c, "id")
	if err != nil {
		return err
	}
	zones, err := h.Courier.Zones(c.Request().Context(), cityID)
	if err != nil {
		return err
	}
	return respondList(c, "zones", len(zones), func(e *jx.Encoder, i int) {
		encodeLocation(e, zones[i].ID, zones[i].Name, "city_id", zones[i].CityID)
	})
}

// ListAreas returns a zone's areas, fetching them from the courier the
// first time the zone is asked for.
func (h *Handler) ListAreas(c echo.Context) error {
	zoneID, err := intParam(c, "id")
	if err != nil {
		return err
	}
	areas, err := h.Courier.Areas(c.Request().Context(), zoneID)
	if err != nil {
		return err
	}
	return respondList(c, "areas", len(areas), func(e *jx.Encoder, i int) {
		encodeLocation(e, areas[i].ID, areas[i].Name, "zone_id", areas[i].ZoneID)
	})
}

type sendRequest struct {
	OrderIDs []int64 `json:"order_ids"`
}

// SendToCourier creates parcels for the given orders and reports each
// outcome.
func (h *Handler) SendToCourier(c echo.Context) error {
	var req sendRequest
	if err := c.Bind(&req); err != nil || len(req.OrderIDs) == 0 {
		return badRequest("order_ids is required")
	}
	results := h.Courier.SendMany(c.Request().Context(), req.OrderIDs)
	return respondList(c, "results", len(results), func(e *jx.Encoder, i int) {
		r := results[i]
		e.ObjStart()
		e.FieldStart("order_id")
		e.Int64(r.OrderID)
		e.FieldStart("outcome")
		e.Str(string(r.Outcome))
		e.FieldStart("message")
		e.Str(r.Message)
		e.ObjEnd()
	})
}

func (h *Handler) RefreshCourierStatuses(c echo.Context) error {
	res, err := h.Courier.RefreshStatuses(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("updated")
		e.Int(res.Updated)
		e.FieldStart("failed")
		e.Int(res.Failed)
		e.ObjEnd()
	})
}

type syncRequest struct {
	CitiesOnly bool `json:"cities_only"`
	CityID     int  `json:"city_id"`
}

// SyncLocations pulls cities and zones from the courier into the local
// tables.
func (h *Handler) SyncLocations(c echo.Context) error {
	var req syncRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	res, err := h.Courier.SyncLocations(c.Request().Context(), courier.SyncOptions{
		CitiesOnly: req.CitiesOnly,
		CityID:     req.CityID,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("cities_created")
		e.Int(res.CitiesCreated)
		e.FieldStart("cities_updated")
		e.Int(res.CitiesUpdated)
		e.FieldStart("zones_created")
		e.Int(res.ZonesCreated)
		e.FieldStart("zones_updated")
		e.Int(res.ZonesUpdated)
		e.FieldStart("zones_failed")
		e.Int(res.ZonesFailed)
		e.ObjEnd()
	})
}
