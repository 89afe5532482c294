package pathao

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// City is a delivery city.
type City struct {
	ID   int
	Name string
}

// Zone is a delivery zone within a city.
type Zone struct {
	ID   int
	Name string
}

// Area is a delivery area within a zone.
type Area struct {
	ID                    int
	Name                  string
	HomeDeliveryAvailable bool
	PickupAvailable       bool
}

// Store is a merchant pickup store.
type Store struct {
	ID        int
	Name      string
	Address   string
	IsActive  bool
	CityID    int
	ZoneID    int
	IsDefault bool
}

// GetCities lists cities in Bangladesh.
func (c *Client) GetCities(ctx context.Context) ([]City, error) {
	var out []City
	err := c.list(ctx, "/countries/1/city-list", func(d *jx.Decoder, key string) (err error) {
		city := &out[len(out)-1]
		switch key {
		case "city_id":
			city.ID, err = looseInt(d)
		case "city_name":
			city.Name, err = looseString(d)
		default:
			err = d.Skip()
		}
		return err
	}, func() { out = append(out, City{}) })
	if err != nil {
		return nil, errors.Wrap(err, "get cities")
	}
	return out, nil
}

// GetZones lists zones of a city.
func (c *Client) GetZones(ctx context.Context, cityID int) ([]Zone, error) {
	var out []Zone
	err := c.list(ctx, "/cities/"+strconv.Itoa(cityID)+"/zone-list", func(d *jx.Decoder, key string) (err error) {
		zone := &out[len(out)-1]
		switch key {
		case "zone_id":
			zone.ID, err = looseInt(d)
		case "zone_name":
			zone.Name, err = looseString(d)
		default:
			err = d.Skip()
		}
		return err
	}, func() { out = append(out, Zone{}) })
	if err != nil {
		return nil, errors.Wrapf(err, "get zones of city %d", cityID)
	}
	return out, nil
}

// GetAreas lists areas of a zone.
func (c *Client) GetAreas(ctx context.Context, zoneID int) ([]Area, error) {
	var out []Area
	err := c.list(ctx, "/zones/"+strconv.Itoa(zoneID)+"/area-list", func(d *jx.Decoder, key string) (err error) {
		area := &out[len(out)-1]
		switch key {
		case "area_id":
			area.ID, err = looseInt(d)
		case "area_name":
			area.Name, err = looseString(d)
		case "home_delivery_available":
			area.HomeDeliveryAvailable, err = looseBool(d)
		case "pickup_available":
			area.PickupAvailable, err = looseBool(d)
		default:
			err = d.Skip()
		}
		return err
	}, func() { out = append(out, Area{}) })
	if err != nil {
		return nil, errors.Wrapf(err, "get areas of zone %d", zoneID)
	}
	return out, nil
}

// GetStores lists the merchant's stores.
func (c *Client) GetStores(ctx context.Context) ([]Store, error) {
	var out []Store
	err := c.list(ctx, "/stores", func(d *jx.Decoder, key string) (err error) {
		s := &out[len(out)-1]
		switch key {
		case "store_id":
			s.ID, err = looseInt(d)
		case "store_name":
			s.Name, err = looseString(d)
		case "store_address":
			s.Address, err = looseString(d)
		case "is_active":
			s.IsActive, err = looseBool(d)
		case "city_id":
			s.CityID, err = looseInt(d)
		case "zone_id":
			s.ZoneID, err = looseInt(d)
		case "is_default_store":
			s.IsDefault, err = looseBool(d)
		default:
			err = d.Skip()
		}
		return err
	}, func() { out = append(out, Store{}) })
	if err != nil {
		return nil, errors.Wrap(err, "get stores")
	}
	return out, nil
}

// list fetches a paginated-style payload and walks data.data. next is called
// before each element, field for every element key.
func (c *Client) list(ctx context.Context, path string, field func(d *jx.Decoder, key string) error, next func()) error {
	body, err := c.call(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		if key != "data" || d.Next() != jx.Object {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "data" || d.Next() != jx.Array {
				return d.Skip()
			}
			return d.Arr(func(d *jx.Decoder) error {
				next()
				return d.Obj(field)
			})
		})
	})
}

// ParcelRequest is a new delivery order.
type ParcelRequest struct {
	StoreID            int
	MerchantOrderID    string
	SenderName         string
	SenderPhone        string
	RecipientName      string
	RecipientPhone     string
	RecipientAddress   string
	RecipientCity      int
	RecipientZone      int
	RecipientArea      int
	DeliveryType       int
	ItemType           int
	SpecialInstruction string
	ItemQuantity       int
	ItemWeight         float64
	AmountToCollect    float64
	ItemDescription    string
}

// Encode writes the request body.
func (r ParcelRequest) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("store_id")
	e.Int(r.StoreID)
	e.FieldStart("merchant_order_id")
	e.Str(r.MerchantOrderID)
	e.FieldStart("sender_name")
	e.Str(r.SenderName)
	e.FieldStart("sender_phone")
	e.Str(r.SenderPhone)
	e.FieldStart("recipient_name")
	e.Str(r.RecipientName)
	e.FieldStart("recipient_phone")
	e.Str(r.RecipientPhone)
	e.FieldStart("recipient_address")
	e.Str(r.RecipientAddress)
	e.FieldStart("recipient_city")
	e.Int(r.RecipientCity)
	e.FieldStart("recipient_zone")
	e.Int(r.RecipientZone)
	e.FieldStart("recipient_area")
	e.Int(r.RecipientArea)
	e.FieldStart("delivery_type")
	e.Int(r.DeliveryType)
	e.FieldStart("item_type")
	e.Int(r.ItemType)
	e.FieldStart("special_instruction")
	e.Str(r.SpecialInstruction)
	e.FieldStart("item_quantity")
	e.Int(r.ItemQuantity)
	e.FieldStart("item_weight")
	e.Float64(r.ItemWeight)
	e.FieldStart("amount_to_collect")
	e.Float64(r.AmountToCollect)
	e.FieldStart("item_description")
	e.Str(r.ItemDescription)
	e.ObjEnd()
}

// ParcelResult is the create-order response.
type ParcelResult struct {
	Type          string
	Message       string
	ConsignmentID string
	OrderStatus   string
	DeliveryFee   float64
}

// Success reports whether the API accepted the parcel.
func (r *ParcelResult) Success() bool {
	return r.Type == "success"
}

// CreateOrder books a parcel.
func (c *Client) CreateOrder(ctx context.Context, req ParcelRequest) (*ParcelResult, error) {
	var e jx.Encoder
	req.Encode(&e)

	body, err := c.call(ctx, http.MethodPost, "/orders", e.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	var res ParcelResult
	if err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "type":
			res.Type, err = looseString(d)
		case "message":
			res.Message, err = looseString(d)
		case "data":
			if d.Next() != jx.Object {
				return d.Skip()
			}
			return d.Obj(func(d *jx.Decoder, key string) (err error) {
				switch key {
				case "consignment_id":
					res.ConsignmentID, err = looseString(d)
				case "order_status":
					res.OrderStatus, err = looseString(d)
				case "delivery_fee":
					var v any
					v, err = readLoose(d)
					res.DeliveryFee = toFloat(v)
				default:
					err = d.Skip()
				}
				return err
			})
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "decode create order")
	}
	return &res, nil
}

// OrderInfo is the tracking state of a parcel.
type OrderInfo struct {
	ConsignmentID string
	OrderStatus   string
	UpdatedAt     string
}

// GetOrderStatus fetches tracking state for a consignment.
func (c *Client) GetOrderStatus(ctx context.Context, consignmentID string) (*OrderInfo, error) {
	body, err := c.call(ctx, http.MethodGet, "/orders/"+url.PathEscape(consignmentID), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", consignmentID)
	}

	info := OrderInfo{ConsignmentID: consignmentID}
	if err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		if key != "data" || d.Next() != jx.Object {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) (err error) {
			switch key {
			case "order_status":
				info.OrderStatus, err = looseString(d)
			case "updated_at":
				info.UpdatedAt, err = looseString(d)
			default:
				err = d.Skip()
			}
			return err
		})
	}); err != nil {
		return nil, errors.Wrap(err, "decode order status")
	}
	return &info, nil
}
