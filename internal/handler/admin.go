package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/foxyglamour/storefront/internal/domain/cart"
	"github.com/foxyglamour/storefront/internal/domain/catalog"
	"github.com/foxyglamour/storefront/internal/domain/order"
)

// APIKeyHeader carries the admin API key.
const APIKeyHeader = "api_key"

// RequireAPIKey rejects requests without a valid admin API key.
func (h *Handler) RequireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		info, err := h.Auth.Authenticate(req.Context(), req.Header.Get(APIKeyHeader))
		if err != nil {
			return err
		}
		ctx := zctx.With(req.Context(), zap.String("api_key", info.Name))
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

func (h *Handler) Dashboard(c echo.Context) error {
	d, err := h.Reports.Dashboard(c.Request().Context())
	if err != nil {
		return errors.Wrap(err, "dashboard")
	}
	return respond(c, http.StatusOK, func(e *jx.Encoder) {
		encodeDashboard(e, d)
	})
}

// AdminListOrders lists orders newest first, filtered by ?status=.
func (h *Handler) AdminListOrders(c echo.Context) error {
	limit, offset, err := page(c)
	if err != nil {
		return err
	}
	orders, err := h.Orders.List(c.Request().Context(), order.ListFilter{
		Status: order.Status(c.QueryParam("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return err
	}
	return respondList(c, "orders", len(orders), func(e *jx.Encoder, i int) {
		encodeOrder(e, &orders[i])
	})
}

func (h *Handler) AdminGetOrder(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	o, err := h.Orders.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

type updateOrderRequest struct {
	Status *string `json:"status"`
	Paid   *bool   `json:"paid"`
}

// AdminUpdateOrder changes status and paid flag. Cancelling restocks.
func (h *Handler) AdminUpdateOrder(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req updateOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	var upd order.UpdateRequest
	if req.Status != nil {
		s := order.Status(*req.Status)
		upd.Status = &s
	}
	upd.Paid = req.Paid

	o, err := h.Orders.Update(c.Request().Context(), id, upd)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

type stockRequest struct {
	Stock *int `json:"stock"`
}

func (h *Handler) SetStock(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req stockRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if req.Stock == nil || *req.Stock < 0 {
		return badRequest("stock must be a non-negative integer")
	}
	ctx := c.Request().Context()
	if err := h.Catalog.SetStock(ctx, id, *req.Stock); err != nil {
		return err
	}
	p, err := h.Catalog.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, func(e *jx.Encoder) {
		encodeProduct(e, *p)
	})
}

type variantRequest struct {
	Size  string `json:"size"`
	Color string `json:"color"`
	Stock *int   `json:"stock"`
}

// UpsertVariant sets the stock of one size/color combination. The codes
// must be offered by the product.
func (h *Handler) UpsertVariant(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req variantRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if req.Stock == nil || *req.Stock < 0 {
		return badRequest("stock must be a non-negative integer")
	}
	if req.Size == "" && req.Color == "" {
		return badRequest("size or color is required")
	}

	ctx := c.Request().Context()
	p, err := h.Catalog.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if req.Size != "" && !p.HasSize(req.Size) && !(p.IsAdjustable && req.Size == catalog.AdjustableSize) {
		return cart.ErrInvalidSize
	}
	if req.Color != "" && !p.HasColor(req.Color) {
		return cart.ErrInvalidColor
	}

	v, err := h.Catalog.UpsertVariant(ctx, catalog.Variant{
		ProductID: p.ID,
		SizeCode:  req.Size,
		ColorCode: req.Color,
		Stock:     *req.Stock,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, func(e *jx.Encoder) {
		encodeVariant(e, *v)
	})
}
