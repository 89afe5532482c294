package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/labstack/echo/v4"

	"github.com/foxyglamour/storefront/internal/domain/wishlist"
)

func (h *Handler) renderWishlist(c echo.Context, l *wishlist.List) error {
	products, err := h.Wishlists.Products(c.Request().Context(), l)
	if err != nil {
		return errors.Wrap(err, "wishlist products")
	}
	return respond(c, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("products")
		e.ArrStart()
		for _, p := range products {
			encodeProduct(e, p)
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}

func (h *Handler) GetWishlist(c echo.Context) error {
	sess, err := getSession(c)
	if err != nil {
		return err
	}
	return h.renderWishlist(c, sess.wishlist())
}

func (h *Handler) AddToWishlist(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	sess, err := getSession(c)
	if err != nil {
		return err
	}
	l := sess.wishlist()
	if err := h.Wishlists.Add(c.Request().Context(), l, id); err != nil {
		return err
	}
	sess.setWishlist(l)
	if err := sess.save(); err != nil {
		return err
	}
	return h.renderWishlist(c, l)
}

func (h *Handler) RemoveFromWishlist(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	sess, err := getSession(c)
	if err != nil {
		return err
	}
	l := sess.wishlist()
	if l.Remove(id) {
		sess.setWishlist(l)
		if err := sess.save(); err != nil {
			return err
		}
	}
	return h.renderWishlist(c, l)
}
