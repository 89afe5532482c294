package handler

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/foxyglamour/storefront/internal/domain/cart"
	"github.com/foxyglamour/storefront/internal/domain/wishlist"
)

// SessionName is the cookie holding the visitor session.
const SessionName = "storefront"

// Session value keys. Values are stored as gob-registered basic types.
const (
	sessCart     = "cart"
	sessWishlist = "wishlist"
	sessUser     = "user_id"
	sessOrders   = "orders"
)

// visitorSession wraps the gorilla session of the current request.
type visitorSession struct {
	c echo.Context
	s *sessions.Session
}

func getSession(c echo.Context) (*visitorSession, error) {
	s, err := session.Get(SessionName, c)
	if err != nil {
		// A cookie signed with a rotated secret cannot be decoded. The store
		// still returns a fresh session alongside the error.
		if s == nil {
			return nil, errors.Wrap(err, "get session")
		}
		zctx.From(c.Request().Context()).Debug("Discarding unreadable session", zap.Error(err))
	}
	return &visitorSession{c: c, s: s}, nil
}

func (v *visitorSession) save() error {
	if err := v.s.Save(v.c.Request(), v.c.Response()); err != nil {
		return errors.Wrap(err, "save session")
	}
	return nil
}

func (v *visitorSession) bytes(key string) []byte {
	switch raw := v.s.Values[key].(type) {
	case string:
		return []byte(raw)
	case []byte:
		return raw
	default:
		return nil
	}
}

// cart returns the session cart. An undecodable cart is replaced with an
// empty one.
func (v *visitorSession) cart() *cart.Cart {
	c, err := cart.Decode(v.bytes(sessCart))
	if err != nil {
		zctx.From(v.c.Request().Context()).Warn("Reset corrupt session cart", zap.Error(err))
		return cart.New()
	}
	return c
}

func (v *visitorSession) setCart(c *cart.Cart) {
	if c.IsEmpty() {
		delete(v.s.Values, sessCart)
		return
	}
	v.s.Values[sessCart] = string(c.Encode())
}

func (v *visitorSession) wishlist() *wishlist.List {
	l, err := wishlist.Decode(v.bytes(sessWishlist))
	if err != nil {
		zctx.From(v.c.Request().Context()).Warn("Reset corrupt session wishlist", zap.Error(err))
		return &wishlist.List{}
	}
	return l
}

func (v *visitorSession) setWishlist(l *wishlist.List) {
	v.s.Values[sessWishlist] = string(l.Encode())
}

// userID returns the logged-in customer, if any.
func (v *visitorSession) userID() *int64 {
	id, ok := v.s.Values[sessUser].(int64)
	if !ok || id <= 0 {
		return nil
	}
	return &id
}

func (v *visitorSession) login(id int64) {
	v.s.Values[sessUser] = id
}

func (v *visitorSession) logout() {
	delete(v.s.Values, sessUser)
}

// placedOrders are ids of orders checked out in this session.
func (v *visitorSession) placedOrders() []int64 {
	ids, _ := v.s.Values[sessOrders].([]int64)
	return ids
}

const maxRememberedOrders = 20

func (v *visitorSession) rememberOrder(id int64) {
	ids := append(v.placedOrders(), id)
	if len(ids) > maxRememberedOrders {
		ids = ids[len(ids)-maxRememberedOrders:]
	}
	v.s.Values[sessOrders] = ids
}

func (v *visitorSession) ownsOrder(id int64) bool {
	for _, placed := range v.placedOrders() {
		if placed == id {
			return true
		}
	}
	return false
}
