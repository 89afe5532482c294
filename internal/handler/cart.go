package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/labstack/echo/v4"

	"github.com/foxyglamour/storefront/internal/domain/cart"
	"github.com/foxyglamour/storefront/internal/domain/order"
)

type addItemRequest struct {
	ProductID int64  `json:"product_id" form:"product_id"`
	Quantity  *int   `json:"quantity" form:"quantity"`
	Size      string `json:"size" form:"size"`
	Color     string `json:"color" form:"color"`
	Override  bool   `json:"override" form:"override"`
}

type checkoutRequest struct {
	FirstName     string `json:"first_name" form:"first_name"`
	LastName      string `json:"last_name" form:"last_name"`
	Email         string `json:"email" form:"email"`
	Phone         string `json:"phone" form:"phone"`
	Address       string `json:"address" form:"address"`
	PostalCode    string `json:"postal_code" form:"postal_code"`
	City          string `json:"city" form:"city"`
	ShippingZone  string `json:"shipping_zone" form:"shipping_zone"`
	PaymentMethod string `json:"payment_method" form:"payment_method"`
	PaymentNumber string `json:"payment_number" form:"payment_number"`
	TransactionID string `json:"transaction_id" form:"transaction_id"`
	CourierCityID *int   `json:"pathao_city_id" form:"pathao_city_id"`
	CourierZoneID *int   `json:"pathao_zone_id" form:"pathao_zone_id"`
	CourierAreaID *int   `json:"pathao_area_id" form:"pathao_area_id"`
}

func (r *checkoutRequest) form() order.CheckoutForm {
	return order.CheckoutForm{
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		Phone:         r.Phone,
		Address:       r.Address,
		PostalCode:    r.PostalCode,
		City:          r.City,
		ShippingZone:  order.ShippingZone(r.ShippingZone),
		PaymentMethod: order.PaymentMethod(r.PaymentMethod),
		PaymentNumber: r.PaymentNumber,
		TransactionID: r.TransactionID,
		CourierCityID: r.CourierCityID,
		CourierZoneID: r.CourierZoneID,
		CourierAreaID: r.CourierAreaID,
	}
}

func (h *Handler) renderCart(c echo.Context, crt *cart.Cart, key *cart.Key) error {
	view, err := h.Carts.View(c.Request().Context(), crt)
	if err != nil {
		return errors.Wrap(err, "view cart")
	}
	return respond(c, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		if key != nil {
			e.FieldStart("key")
			e.Str(key.String())
		}
		e.FieldStart("cart")
		encodeCartView(e, view)
		e.ObjEnd()
	})
}

func (h *Handler) GetCart(c echo.Context) error {
	sess, err := getSession(c)
	if err != nil {
		return err
	}
	return h.renderCart(c, sess.cart(), nil)
}

// AddCartItem adds to or overrides a cart line. Quantity defaults to one.
func (h *Handler) AddCartItem(c echo.Context) error {
	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	sess, err := getSession(c)
	if err != nil {
		return err
	}
	crt := sess.cart()
	key, err := h.Carts.Add(c.Request().Context(), crt, cart.AddRequest{
		ProductID: req.ProductID,
		Quantity:  qty,
		Size:      req.Size,
		Color:     req.Color,
		Override:  req.Override,
	})
	if err != nil {
		return err
	}
	sess.setCart(crt)
	if err := sess.save(); err != nil {
		return err
	}
	return h.renderCart(c, crt, &key)
}

func (h *Handler) RemoveCartItem(c echo.Context) error {
	sess, err := getSession(c)
	if err != nil {
		return err
	}
	crt := sess.cart()
	if err := h.Carts.Remove(crt, c.Param("key")); err != nil {
		return err
	}
	sess.setCart(crt)
	if err := sess.save(); err != nil {
		return err
	}
	return h.renderCart(c, crt, nil)
}

// Checkout places an order from the session cart and empties the cart.
func (h *Handler) Checkout(c echo.Context) error {
	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	sess, err := getSession(c)
	if err != nil {
		return err
	}

	o, err := h.Orders.Checkout(c.Request().Context(), sess.cart(), req.form(), sess.userID())
	if err != nil {
		return err
	}
	sess.setCart(cart.New())
	sess.rememberOrder(o.ID)
	if err := sess.save(); err != nil {
		return err
	}
	return respond(c, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// GetOrder returns an order placed in this session or by the logged-in
// customer. Other orders are reported as missing.
func (h *Handler) GetOrder(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	sess, err := getSession(c)
	if err != nil {
		return err
	}
	uid := sess.userID()
	if !sess.ownsOrder(id) && uid == nil {
		return order.ErrNotFound
	}

	o, err := h.Orders.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !sess.ownsOrder(id) && (o.UserID == nil || *o.UserID != *uid) {
		return order.ErrNotFound
	}
	return respond(c, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}
