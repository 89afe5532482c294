package handler

import (
	"net/http"
	"sort"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/foxyglamour/storefront/internal/domain/account"
	"github.com/foxyglamour/storefront/internal/domain/auth"
	"github.com/foxyglamour/storefront/internal/domain/cart"
	"github.com/foxyglamour/storefront/internal/domain/catalog"
	"github.com/foxyglamour/storefront/internal/domain/courier"
	"github.com/foxyglamour/storefront/internal/domain/order"
	"github.com/foxyglamour/storefront/internal/domain/site"
	"github.com/foxyglamour/storefront/internal/pathao"
)

var errNotLoggedIn = errors.New("authentication required")

// apiError is the JSON error body: {"code": 422, "message": "...", "fields": {...}}.
type apiError struct {
	Code    int
	Message string
	Fields  map[string]string
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

// classify maps a domain error to its response. Unknown errors are 500.
func classify(err error) apiError {
	var (
		httpErr    *echo.HTTPError
		stockErr   *cart.StockError
		shortErr   *order.InsufficientStockError
		unavailErr *order.UnavailableError
		orderVal   *order.ValidationError
		accountVal *account.ValidationError
		siteVal    *site.ValidationError
		rejected   *courier.RejectedError
		upstream   *pathao.APIError
	)
	switch {
	case errors.As(err, &httpErr):
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(httpErr.Code)
		}
		return apiError{Code: httpErr.Code, Message: msg}
	case errors.As(err, &orderVal):
		return apiError{Code: http.StatusUnprocessableEntity, Message: "invalid checkout form", Fields: orderVal.Fields}
	case errors.As(err, &accountVal):
		return apiError{Code: http.StatusUnprocessableEntity, Message: "invalid registration", Fields: accountVal.Fields}
	case errors.As(err, &siteVal):
		return apiError{
			Code:    http.StatusUnprocessableEntity,
			Message: siteVal.Error(),
			Fields:  map[string]string{siteVal.Field: siteVal.Message},
		}
	case errors.As(err, &stockErr):
		return apiError{Code: http.StatusConflict, Message: stockErr.Error()}
	case errors.As(err, &shortErr):
		return apiError{Code: http.StatusConflict, Message: shortErr.Error()}
	case errors.As(err, &unavailErr):
		return apiError{Code: http.StatusConflict, Message: unavailErr.Error()}
	case errors.As(err, &rejected):
		return apiError{Code: http.StatusBadGateway, Message: rejected.Error()}
	case errors.As(err, &upstream):
		msg := upstream.Message
		if msg == "" {
			msg = upstream.Error()
		}
		return apiError{Code: http.StatusBadGateway, Message: msg}
	case errors.Is(err, cart.ErrProductUnavailable),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrCancelledIsFinal),
		errors.Is(err, courier.ErrAlreadySent):
		return apiError{Code: http.StatusConflict, Message: rootMessage(err)}
	case errors.Is(err, cart.ErrInvalidKey),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidSize),
		errors.Is(err, cart.ErrInvalidColor),
		errors.Is(err, order.ErrInvalidStatus):
		return apiError{Code: http.StatusBadRequest, Message: rootMessage(err)}
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, site.ErrNotFound),
		errors.Is(err, account.ErrNotFound):
		return apiError{Code: http.StatusNotFound, Message: "not found"}
	case errors.Is(err, account.ErrInvalidCredentials),
		errors.Is(err, auth.ErrUnauthorized),
		errors.Is(err, errNotLoggedIn):
		return apiError{Code: http.StatusUnauthorized, Message: rootMessage(err)}
	case errors.Is(err, courier.ErrNotConfigured):
		return apiError{Code: http.StatusServiceUnavailable, Message: courier.ErrNotConfigured.Error()}
	default:
		return apiError{Code: http.StatusInternalServerError, Message: "internal server error"}
	}
}

// rootMessage returns the innermost error text so wrapped sentinels read
// the same as the bare ones.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// ErrorHandler writes classified errors as JSON. It is installed as
// echo.Echo.HTTPErrorHandler.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	ae := classify(err)
	if ae.Code >= http.StatusInternalServerError {
		zctx.From(c.Request().Context()).Error("Request failed",
			zap.String("route", c.Path()),
			zap.Error(err),
		)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(ae.Code)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(ae.Code)
	e.FieldStart("message")
	e.Str(ae.Message)
	if len(ae.Fields) > 0 {
		names := make([]string, 0, len(ae.Fields))
		for name := range ae.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		e.FieldStart("fields")
		e.ObjStart()
		for _, name := range names {
			e.FieldStart(name)
			e.Str(ae.Fields[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()
	if err := c.Blob(ae.Code, echo.MIMEApplicationJSON, e.Bytes()); err != nil {
		zctx.From(c.Request().Context()).Warn("Write error response", zap.Error(err))
	}
}
