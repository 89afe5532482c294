package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/labstack/echo/v4"

	"github.com/foxyglamour/storefront/internal/domain/catalog"
)

const maxPageSize = 100

func idParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid " + name)
	}
	return id, nil
}

// page reads limit and offset query parameters.
func page(c echo.Context) (limit, offset int, err error) {
	if err := echo.QueryParamsBinder(c).
		Int("limit", &limit).
		Int("offset", &offset).
		BindError(); err != nil {
		return 0, 0, badRequest("invalid paging parameters")
	}
	if limit < 0 || offset < 0 {
		return 0, 0, badRequest("invalid paging parameters")
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit, offset, nil
}

func (h *Handler) ListCategories(c echo.Context) error {
	cats, err := h.Catalog.ListCategories(c.Request().Context())
	if err != nil {
		return errors.Wrap(err, "list categories")
	}
	return respondList(c, "categories", len(cats), func(e *jx.Encoder, i int) {
		encodeCategory(e, cats[i])
	})
}

// ListProducts lists available products, optionally within a category and
// matching a search query.
func (h *Handler) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	limit, offset, err := page(c)
	if err != nil {
		return err
	}

	var category *catalog.Category
	slug := c.QueryParam("category")
	if slug != "" {
		if category, err = h.Catalog.GetCategoryBySlug(ctx, slug); err != nil {
			return errors.Wrapf(err, "get category %q", slug)
		}
	}

	products, err := h.Catalog.ListProducts(ctx, catalog.Filter{
		CategorySlug: slug,
		Query:        c.QueryParam("q"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return errors.Wrap(err, "list products")
	}

	return respond(c, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("category")
		if category != nil {
			encodeCategory(e, *category)
		} else {
			e.Null()
		}
		e.FieldStart("products")
		e.ArrStart()
		for _, p := range products {
			encodeProduct(e, p)
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}

// GetProduct returns an available product with its variants. The slug must
// match the product.
func (h *Handler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	p, err := h.Catalog.GetProduct(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "get product %d", id)
	}
	if !p.IsAvailable || p.Slug != c.Param("slug") {
		return catalog.ErrNotFound
	}
	variants, err := h.Catalog.ListVariants(ctx, []int64{p.ID})
	if err != nil {
		return errors.Wrap(err, "list variants")
	}

	return respond(c, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("product")
		encodeProduct(e, *p)
		e.FieldStart("variants")
		e.ArrStart()
		for _, v := range variants {
			encodeVariant(e, v)
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}
