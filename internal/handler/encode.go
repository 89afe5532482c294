package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/foxyglamour/storefront/internal/domain/account"
	"github.com/foxyglamour/storefront/internal/domain/cart"
	"github.com/foxyglamour/storefront/internal/domain/catalog"
	"github.com/foxyglamour/storefront/internal/domain/order"
	"github.com/foxyglamour/storefront/internal/domain/report"
	"github.com/foxyglamour/storefront/internal/domain/site"
	"github.com/foxyglamour/storefront/internal/domain/visitor"
)

func writeJSON(c echo.Context, status int, e *jx.Encoder) error {
	return c.Blob(status, echo.MIMEApplicationJSON, e.Bytes())
}

// respond encodes a single value with fn.
func respond(c echo.Context, status int, fn func(e *jx.Encoder)) error {
	var e jx.Encoder
	fn(&e)
	return writeJSON(c, status, &e)
}

// respondList encodes {"<field>": [...]} from n items.
func respondList(c echo.Context, field string, n int, item func(e *jx.Encoder, i int)) error {
	return respond(c, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart(field)
		e.ArrStart()
		for i := 0; i < n; i++ {
			item(e, i)
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Str(d.StringFixed(2))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeOptStr(e *jx.Encoder, s *string) {
	if s == nil {
		e.Null()
		return
	}
	e.Str(*s)
}

func encodeOptInt(e *jx.Encoder, v *int) {
	if v == nil {
		e.Null()
		return
	}
	e.Int(*v)
}

func encodeStrings(e *jx.Encoder, list []string) {
	e.ArrStart()
	for _, s := range list {
		e.Str(s)
	}
	e.ArrEnd()
}

func encodeCategory(e *jx.Encoder, c catalog.Category) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(c.ID)
	e.FieldStart("parent_id")
	if c.ParentID != nil {
		e.Int64(*c.ParentID)
	} else {
		e.Null()
	}
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("slug")
	e.Str(c.Slug)
	e.ObjEnd()
}

func encodeProduct(e *jx.Encoder, p catalog.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(p.ID)
	e.FieldStart("category_id")
	e.Int64(p.CategoryID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("slug")
	e.Str(p.Slug)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	encodeMoney(e, p.Price)
	e.FieldStart("net_price")
	encodeMoney(e, p.NetPrice())
	e.FieldStart("has_discount")
	e.Bool(p.HasDiscount())
	e.FieldStart("savings")
	encodeMoney(e, p.Savings())
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("is_available")
	e.Bool(p.IsAvailable)
	e.FieldStart("metal_type")
	e.Str(p.MetalType)
	e.FieldStart("gemstone")
	e.Str(p.Gemstone)
	e.FieldStart("weight_grams")
	if p.WeightGrams != nil {
		e.Str(p.WeightGrams.String())
	} else {
		e.Null()
	}
	e.FieldStart("is_adjustable")
	e.Bool(p.IsAdjustable)
	e.FieldStart("image")
	e.Str(p.Image)
	e.FieldStart("sizes")
	encodeStrings(e, p.SizeCodes)
	e.FieldStart("colors")
	encodeStrings(e, p.ColorCodes)
	e.FieldStart("updated")
	encodeTime(e, p.Updated)
	e.ObjEnd()
}

func encodeVariant(e *jx.Encoder, v catalog.Variant) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(v.ID)
	e.FieldStart("product_id")
	e.Int64(v.ProductID)
	e.FieldStart("size")
	e.Str(v.SizeCode)
	e.FieldStart("color")
	e.Str(v.ColorCode)
	e.FieldStart("stock")
	e.Int(v.Stock)
	e.ObjEnd()
}

func encodeCartView(e *jx.Encoder, v *cart.View) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range v.Items {
		e.ObjStart()
		e.FieldStart("key")
		e.Str(it.Key.String())
		e.FieldStart("product")
		encodeProduct(e, it.Product)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("size")
		e.Str(it.Key.Size)
		e.FieldStart("size_name")
		e.Str(it.SizeName)
		e.FieldStart("color")
		e.Str(it.Key.Color)
		e.FieldStart("color_name")
		e.Str(it.ColorName)
		e.FieldStart("unit_price")
		encodeMoney(e, it.UnitPrice)
		e.FieldStart("snapshot_price")
		encodeMoney(e, it.SnapshotPrice)
		e.FieldStart("price_changed")
		e.Bool(it.PriceChanged)
		e.FieldStart("total")
		encodeMoney(e, it.Total)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("count")
	e.Int(v.Count)
	e.FieldStart("subtotal")
	encodeMoney(e, v.Subtotal)
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(o.ID)
	e.FieldStart("user_id")
	if o.UserID != nil {
		e.Int64(*o.UserID)
	} else {
		e.Null()
	}
	e.FieldStart("first_name")
	e.Str(o.FirstName)
	e.FieldStart("last_name")
	e.Str(o.LastName)
	e.FieldStart("email")
	e.Str(o.Email)
	e.FieldStart("phone")
	e.Str(o.Phone)
	e.FieldStart("address")
	e.Str(o.Address)
	e.FieldStart("postal_code")
	e.Str(o.PostalCode)
	e.FieldStart("city")
	e.Str(o.City)
	e.FieldStart("shipping_zone")
	e.Str(string(o.ShippingZone))
	e.FieldStart("shipping_zone_label")
	e.Str(o.ShippingZone.Label())
	e.FieldStart("payment_method")
	e.Str(string(o.PaymentMethod))
	e.FieldStart("payment_method_label")
	e.Str(o.PaymentMethod.Label())
	e.FieldStart("payment_number")
	e.Str(o.PaymentNumber)
	e.FieldStart("transaction_id")
	e.Str(o.TransactionID)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("paid")
	e.Bool(o.Paid)

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Int64(it.ProductID)
		e.FieldStart("product_name")
		e.Str(it.ProductName)
		e.FieldStart("size")
		e.Str(it.Size)
		e.FieldStart("color")
		e.Str(it.Color)
		e.FieldStart("price")
		encodeMoney(e, it.Price)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("cost")
		encodeMoney(e, it.Cost())
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("subtotal")
	encodeMoney(e, o.Subtotal())
	e.FieldStart("shipping_cost")
	encodeMoney(e, o.ShippingCost)
	e.FieldStart("payment_discount")
	encodeMoney(e, o.PaymentDiscount)
	e.FieldStart("total")
	encodeMoney(e, o.Total())

	e.FieldStart("courier")
	e.ObjStart()
	e.FieldStart("sent")
	e.Bool(o.Courier.Sent)
	e.FieldStart("consignment_id")
	e.Str(o.Courier.ConsignmentID)
	e.FieldStart("status")
	e.Str(o.Courier.Status)
	e.FieldStart("city_id")
	encodeOptInt(e, o.Courier.CityID)
	e.FieldStart("zone_id")
	encodeOptInt(e, o.Courier.ZoneID)
	e.FieldStart("area_id")
	encodeOptInt(e, o.Courier.AreaID)
	e.ObjEnd()

	e.FieldStart("created")
	encodeTime(e, o.Created)
	e.FieldStart("updated")
	encodeTime(e, o.Updated)
	e.ObjEnd()
}

func encodeUser(e *jx.Encoder, u *account.User) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(u.ID)
	e.FieldStart("username")
	e.Str(u.Username)
	e.FieldStart("email")
	e.Str(u.Email)
	e.FieldStart("first_name")
	e.Str(u.FirstName)
	e.FieldStart("last_name")
	e.Str(u.LastName)
	e.FieldStart("created")
	encodeTime(e, u.Created)
	e.ObjEnd()
}

func encodeTheme(e *jx.Encoder, t *site.Theme) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(t.ID)
	e.FieldStart("name")
	e.Str(t.Name)
	e.FieldStart("is_active")
	e.Bool(t.IsActive)
	e.FieldStart("colors")
	e.ObjStart()
	for _, f := range []struct{ name, value string }{
		{"primary_color", t.PrimaryColor},
		{"text_color", t.TextColor},
		{"bg_color", t.BgColor},
		{"accent_color", t.AccentColor},
		{"promo_bg", t.PromoBg},
		{"button_bg_color", t.ButtonBgColor},
		{"button_text_color", t.ButtonTextColor},
		{"button_hover_bg_color", t.ButtonHoverBgColor},
		{"buy_now_bg_color", t.BuyNowBgColor},
		{"buy_now_text_color", t.BuyNowTextColor},
		{"buy_now_hover_bg_color", t.BuyNowHoverBgColor},
		{"buy_now_hover_text_color", t.BuyNowHoverText},
	} {
		e.FieldStart(f.name)
		e.Str(f.value)
	}
	e.ObjEnd()
	e.FieldStart("css_variables")
	e.Str(t.CSSVariables())
	e.ObjEnd()
}

func encodeHero(e *jx.Encoder, h *site.Hero) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(h.ID)
	e.FieldStart("title")
	e.Str(h.Title)
	e.FieldStart("subtitle")
	e.Str(h.Subtitle)
	e.FieldStart("image_url")
	e.Str(h.ImageURL)
	e.FieldStart("cta_text")
	e.Str(h.CTAText)
	e.FieldStart("cta_link")
	e.Str(h.CTALink)
	e.FieldStart("is_active")
	e.Bool(h.IsActive)
	e.ObjEnd()
}

func encodeLocation(e *jx.Encoder, id int, name string, parentField string, parentID int) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int(id)
	e.FieldStart("name")
	e.Str(name)
	if parentField != "" {
		e.FieldStart(parentField)
		e.Int(parentID)
	}
	e.ObjEnd()
}

func encodeVisit(e *jx.Encoder, v visitor.Visit) {
	e.ObjStart()
	e.FieldStart("ip")
	e.Str(v.IP)
	e.FieldStart("path")
	e.Str(v.Path)
	e.FieldStart("referer")
	e.Str(v.Referer)
	e.FieldStart("user_agent")
	e.Str(v.UserAgent)
	e.FieldStart("utm_source")
	encodeOptStr(e, v.UTMSource)
	e.FieldStart("utm_medium")
	encodeOptStr(e, v.UTMMedium)
	e.FieldStart("utm_campaign")
	encodeOptStr(e, v.UTMCampaign)
	e.FieldStart("first_visit")
	e.Bool(v.FirstVisit)
	e.FieldStart("created")
	encodeTime(e, v.Created)
	e.ObjEnd()
}

func encodeDashboard(e *jx.Encoder, d *report.Dashboard) {
	e.ObjStart()
	e.FieldStart("total_orders")
	e.Int(d.TotalOrders)
	e.FieldStart("revenue")
	encodeMoney(e, d.Financials.Revenue)
	e.FieldStart("cost")
	encodeMoney(e, d.Financials.Cost)
	e.FieldStart("profit")
	encodeMoney(e, d.Financials.Profit())

	e.FieldStart("recent_orders")
	e.ArrStart()
	for i := range d.RecentOrders {
		encodeOrder(e, &d.RecentOrders[i])
	}
	e.ArrEnd()

	e.FieldStart("top_customers")
	e.ArrStart()
	for _, c := range d.TopCustomers {
		e.ObjStart()
		e.FieldStart("email")
		e.Str(c.Email)
		e.FieldStart("orders")
		e.Int(c.Orders)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("visitors_today")
	e.Int(d.VisitorsToday)
	e.FieldStart("first_visits_today")
	e.Int(d.FirstVisitsToday)

	e.FieldStart("top_sources")
	e.ArrStart()
	for _, s := range d.TopSources {
		e.ObjStart()
		e.FieldStart("source")
		e.Str(s.Source)
		e.FieldStart("visits")
		e.Int(s.Visits)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("recent_visits")
	e.ArrStart()
	for _, v := range d.RecentVisits {
		encodeVisit(e, v)
	}
	e.ArrEnd()

	e.FieldStart("generated_at")
	encodeTime(e, d.GeneratedAt)
	e.ObjEnd()
}
