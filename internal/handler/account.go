package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/foxyglamour/storefront/internal/domain/account"
)

type registerRequest struct {
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	FirstName       string `json:"first_name" form:"first_name"`
	LastName        string `json:"last_name" form:"last_name"`
	Password        string `json:"password" form:"password"`
	PasswordConfirm string `json:"password_confirm" form:"password_confirm"`
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// RegisterAccount creates a customer and logs them in.
func (h *Handler) RegisterAccount(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	u, err := h.Accounts.Register(c.Request().Context(), account.RegisterRequest{
		Username:        req.Username,
		Email:           req.Email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		return err
	}
	if err := h.startSession(c, u); err != nil {
		return err
	}
	return respond(c, http.StatusCreated, func(e *jx.Encoder) {
		encodeUser(e, u)
	})
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	u, err := h.Accounts.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	if err := h.startSession(c, u); err != nil {
		return err
	}
	return respond(c, http.StatusOK, func(e *jx.Encoder) {
		encodeUser(e, u)
	})
}

func (h *Handler) startSession(c echo.Context, u *account.User) error {
	sess, err := getSession(c)
	if err != nil {
		return err
	}
	sess.login(u.ID)
	zctx.From(c.Request().Context()).Info("Customer logged in", zap.Int64("user_id", u.ID))
	return sess.save()
}

// Logout forgets the customer but keeps the cart.
func (h *Handler) Logout(c echo.Context) error {
	sess, err := getSession(c)
	if err != nil {
		return err
	}
	sess.logout()
	if err := sess.save(); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) currentUser(c echo.Context) (int64, error) {
	sess, err := getSession(c)
	if err != nil {
		return 0, err
	}
	uid := sess.userID()
	if uid == nil {
		return 0, errNotLoggedIn
	}
	return *uid, nil
}

func (h *Handler) Me(c echo.Context) error {
	uid, err := h.currentUser(c)
	if err != nil {
		return err
	}
	u, err := h.Accounts.Get(c.Request().Context(), uid)
	if errors.Is(err, account.ErrNotFound) {
		return errNotLoggedIn
	}
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, func(e *jx.Encoder) {
		encodeUser(e, u)
	})
}

// MyOrders lists the logged-in customer's orders, newest first.
func (h *Handler) MyOrders(c echo.Context) error {
	uid, err := h.currentUser(c)
	if err != nil {
		return err
	}
	orders, err := h.Orders.ListForUser(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return respondList(c, "orders", len(orders), func(e *jx.Encoder, i int) {
		encodeOrder(e, &orders[i])
	})
}
