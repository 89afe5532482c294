package courier

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/foxyglamour/storefront/internal/domain/order"
	"github.com/foxyglamour/storefront/internal/pathao"
)

// Sentinel errors for dispatch.
var (
	ErrAlreadySent   = errors.New("order was already sent to the courier")
	ErrNotConfigured = errors.New("courier credentials are not configured")
)

// RejectedError is returned when the courier answers without success.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return "courier rejected the parcel"
	}
	return "courier rejected the parcel: " + e.Message
}

// Parcel defaults.
const (
	deliveryTypeNormal  = 48
	itemTypeParcel      = 2
	itemWeightKG        = 0.5
	maxDescriptionRunes = 500
	defaultStatus       = "Pending"
	zoneSyncConcurrency = 4
)

// Config holds merchant details sent with every parcel.
type Config struct {
	StoreID     int
	SenderName  string
	SenderPhone string
}

// Dispatcher sends orders to the courier and tracks them.
type Dispatcher struct {
	client    Client
	orders    Orders
	locations Locations
	cfg       Config
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(client Client, orders Orders, locations Locations, cfg Config) *Dispatcher {
	return &Dispatcher{
		client:    client,
		orders:    orders,
		locations: locations,
		cfg:       cfg,
	}
}

// BuildParcel maps an order to a parcel request.
func BuildParcel(o *order.Order, cfg Config) pathao.ParcelRequest {
	descriptions := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		descriptions = append(descriptions, fmt.Sprintf("%s x%d", it.ProductName, it.Quantity))
	}
	description := strings.Join(descriptions, ", ")
	if r := []rune(description); len(r) > maxDescriptionRunes {
		description = string(r[:maxDescriptionRunes])
	}

	var amount float64
	if o.PaymentMethod == order.PaymentCOD {
		amount = o.Total().InexactFloat64()
	}

	city := CityIDFromName(o.City)
	if o.Courier.CityID != nil {
		city = *o.Courier.CityID
	}

	return pathao.ParcelRequest{
		StoreID:            cfg.StoreID,
		MerchantOrderID:    strconv.FormatInt(o.ID, 10),
		SenderName:         cfg.SenderName,
		SenderPhone:        cfg.SenderPhone,
		RecipientName:      strings.TrimSpace(o.FirstName + " " + o.LastName),
		RecipientPhone:     o.Phone,
		RecipientAddress:   o.Address,
		RecipientCity:      city,
		RecipientZone:      orOne(o.Courier.ZoneID),
		RecipientArea:      orOne(o.Courier.AreaID),
		DeliveryType:       deliveryTypeNormal,
		ItemType:           itemTypeParcel,
		SpecialInstruction: fmt.Sprintf("Order #%d", o.ID),
		ItemQuantity:       o.ItemCount(),
		ItemWeight:         itemWeightKG,
		AmountToCollect:    amount,
		ItemDescription:    description,
	}
}

func orOne(v *int) int {
	if v == nil || *v == 0 {
		return 1
	}
	return *v
}

// Send books a parcel for the order and records the consignment.
func (d *Dispatcher) Send(ctx context.Context, orderID int64) error {
	if !d.client.Configured() {
		return ErrNotConfigured
	}
	o, err := d.orders.Get(ctx, orderID)
	if err != nil {
		return errors.Wrapf(err, "get order %d", orderID)
	}
	if o.Courier.Sent {
		return ErrAlreadySent
	}

	res, err := d.client.CreateOrder(ctx, BuildParcel(o, d.cfg))
	if err != nil {
		return err
	}
	if !res.Success() {
		return &RejectedError{Message: res.Message}
	}

	status := res.OrderStatus
	if status == "" {
		status = defaultStatus
	}
	if err := d.orders.MarkSent(ctx, o.ID, res.ConsignmentID, status); err != nil {
		if errors.Is(err, ErrAlreadySent) {
			// A concurrent send won; this consignment is a duplicate.
			zctx.From(ctx).Warn("Order already marked sent, duplicate consignment",
				zap.Int64("order_id", o.ID),
				zap.String("consignment_id", res.ConsignmentID),
			)
			return ErrAlreadySent
		}
		return errors.Wrapf(err, "mark order %d sent", o.ID)
	}
	zctx.From(ctx).Info("Order sent to courier",
		zap.Int64("order_id", o.ID),
		zap.String("consignment_id", res.ConsignmentID),
	)
	return nil
}

// Outcome classifies a bulk send result.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// SendResult reports one order of a bulk send.
type SendResult struct {
	OrderID int64
	Outcome Outcome
	Message string
}

// SendMany sends each order in turn. Already-sent orders are skipped.
func (d *Dispatcher) SendMany(ctx context.Context, ids []int64) []SendResult {
	out := make([]SendResult, 0, len(ids))
	for _, id := range ids {
		r := SendResult{OrderID: id, Outcome: OutcomeSent}
		switch err := d.Send(ctx, id); {
		case err == nil:
		case errors.Is(err, ErrAlreadySent):
			r.Outcome = OutcomeSkipped
			r.Message = fmt.Sprintf("Order #%d was already sent to Pathao", id)
		default:
			r.Outcome = OutcomeFailed
			r.Message = fmt.Sprintf("Order #%d: %s", id, err)
		}
		out = append(out, r)
	}
	return out
}

// RefreshResult counts a status refresh run.
type RefreshResult struct {
	Updated int
	Failed  int
}

// RefreshStatuses pulls the current courier status of every tracked order.
// Per-order failures are logged and counted.
func (d *Dispatcher) RefreshStatuses(ctx context.Context) (RefreshResult, error) {
	var res RefreshResult
	if !d.client.Configured() {
		return res, ErrNotConfigured
	}
	orders, err := d.orders.ListTrackable(ctx)
	if err != nil {
		return res, errors.Wrap(err, "list trackable orders")
	}

	lg := zctx.From(ctx)
	for _, o := range orders {
		info, err := d.client.GetOrderStatus(ctx, o.Courier.ConsignmentID)
		if err != nil {
			res.Failed++
			lg.Warn("Fetch courier status", zap.Int64("order_id", o.ID), zap.Error(err))
			continue
		}
		status := info.OrderStatus
		if status == "" {
			status = o.Courier.Status
		}
		if err := d.orders.SetCourierStatus(ctx, o.ID, status); err != nil {
			res.Failed++
			lg.Error("Store courier status", zap.Int64("order_id", o.ID), zap.Error(err))
			continue
		}
		res.Updated++
	}
	return res, nil
}

// SyncOptions narrows a location sync.
type SyncOptions struct {
	CitiesOnly bool
	// CityID limits zone sync to one city when non-zero.
	CityID int
}

// SyncResult counts created and updated location rows.
type SyncResult struct {
	CitiesCreated int
	CitiesUpdated int
	ZonesCreated  int
	ZonesUpdated  int
	ZonesFailed   int
}

// SyncLocations upserts cities, then zones for each city concurrently.
// A city whose zones fail to sync is logged and skipped.
func (d *Dispatcher) SyncLocations(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	var res SyncResult
	if !d.client.Configured() {
		return res, ErrNotConfigured
	}

	cities, err := d.client.GetCities(ctx)
	if err != nil {
		return res, errors.Wrap(err, "fetch cities")
	}
	for _, c := range cities {
		created, err := d.locations.UpsertCity(ctx, City{ID: c.ID, Name: c.Name, IsActive: true})
		if err != nil {
			return res, errors.Wrapf(err, "upsert city %d", c.ID)
		}
		if created {
			res.CitiesCreated++
		} else {
			res.CitiesUpdated++
		}
	}
	if opts.CitiesOnly {
		return res, nil
	}

	var (
		mu sync.Mutex
		lg = zctx.From(ctx)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(zoneSyncConcurrency)
	for _, c := range cities {
		if opts.CityID != 0 && c.ID != opts.CityID {
			continue
		}
		g.Go(func() error {
			created, updated, err := d.syncZones(gctx, c.ID)
			mu.Lock()
			defer mu.Unlock()
			res.ZonesCreated += created
			res.ZonesUpdated += updated
			if err != nil {
				res.ZonesFailed++
				lg.Warn("Sync zones", zap.Int("city_id", c.ID), zap.String("city", c.Name), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return res, ctx.Err()
}

func (d *Dispatcher) syncZones(ctx context.Context, cityID int) (created, updated int, err error) {
	zones, err := d.client.GetZones(ctx, cityID)
	if err != nil {
		return 0, 0, err
	}
	for _, z := range zones {
		isNew, err := d.locations.UpsertZone(ctx, Zone{ID: z.ID, Name: z.Name, CityID: cityID, IsActive: true})
		if err != nil {
			return created, updated, errors.Wrapf(err, "upsert zone %d", z.ID)
		}
		if isNew {
			created++
		} else {
			updated++
		}
	}
	return created, updated, nil
}

// Cities lists synced cities.
func (d *Dispatcher) Cities(ctx context.Context) ([]City, error) {
	return d.locations.ListCities(ctx)
}

// Zones lists synced zones of a city.
func (d *Dispatcher) Zones(ctx context.Context, cityID int) ([]Zone, error) {
	return d.locations.ListZones(ctx, cityID)
}

// Areas lists areas of a zone. Areas are not part of the bulk sync, so a
// zone without stored areas is fetched from the courier once and stored.
func (d *Dispatcher) Areas(ctx context.Context, zoneID int) ([]Area, error) {
	areas, err := d.locations.ListAreas(ctx, zoneID)
	if err != nil {
		return nil, errors.Wrap(err, "list areas")
	}
	if len(areas) > 0 || !d.client.Configured() {
		return areas, nil
	}

	fetched, err := d.client.GetAreas(ctx, zoneID)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch areas of zone %d", zoneID)
	}
	for _, a := range fetched {
		area := Area{ID: a.ID, Name: a.Name, ZoneID: zoneID, IsActive: true}
		if _, err := d.locations.UpsertArea(ctx, area); err != nil {
			return nil, errors.Wrapf(err, "upsert area %d", a.ID)
		}
		areas = append(areas, area)
	}
	return areas, nil
}
