package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/labstack/echo/v4"

	"github.com/foxyglamour/storefront/internal/domain/site"
)

type themeRequest struct {
	Name               string `json:"name"`
	PrimaryColor       string `json:"primary_color"`
	TextColor          string `json:"text_color"`
	BgColor            string `json:"bg_color"`
	AccentColor        string `json:"accent_color"`
	PromoBg            string `json:"promo_bg"`
	ButtonBgColor      string `json:"button_bg_color"`
	ButtonTextColor    string `json:"button_text_color"`
	ButtonHoverBgColor string `json:"button_hover_bg_color"`
	BuyNowBgColor      string `json:"buy_now_bg_color"`
	BuyNowTextColor    string `json:"buy_now_text_color"`
	BuyNowHoverBgColor string `json:"buy_now_hover_bg_color"`
	BuyNowHoverText    string `json:"buy_now_hover_text_color"`
	IsActive           bool   `json:"is_active"`
}

type heroRequest struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	ImageURL string `json:"image_url"`
	CTAText  string `json:"cta_text"`
	CTALink  string `json:"cta_link"`
	IsActive bool   `json:"is_active"`
}

// ActiveTheme returns the active theme, or the default palette.
func (h *Handler) ActiveTheme(c echo.Context) error {
	t, err := h.Site.ActiveTheme(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, func(e *jx.Encoder) {
		encodeTheme(e, t)
	})
}

func (h *Handler) ActiveHero(c echo.Context) error {
	hero, err := h.Site.ActiveHero(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, func(e *jx.Encoder) {
		encodeHero(e, hero)
	})
}

func (h *Handler) ListThemes(c echo.Context) error {
	themes, err := h.Site.Themes(c.Request().Context())
	if err != nil {
		return err
	}
	return respondList(c, "themes", len(themes), func(e *jx.Encoder, i int) {
		encodeTheme(e, &themes[i])
	})
}

// CreateTheme stores a theme. Empty colors take the default palette.
func (h *Handler) CreateTheme(c echo.Context) error {
	var req themeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	t := &site.Theme{
		Name:               req.Name,
		PrimaryColor:       req.PrimaryColor,
		TextColor:          req.TextColor,
		BgColor:            req.BgColor,
		AccentColor:        req.AccentColor,
		PromoBg:            req.PromoBg,
		ButtonBgColor:      req.ButtonBgColor,
		ButtonTextColor:    req.ButtonTextColor,
		ButtonHoverBgColor: req.ButtonHoverBgColor,
		BuyNowBgColor:      req.BuyNowBgColor,
		BuyNowTextColor:    req.BuyNowTextColor,
		BuyNowHoverBgColor: req.BuyNowHoverBgColor,
		BuyNowHoverText:    req.BuyNowHoverText,
		IsActive:           req.IsActive,
	}
	if err := h.Site.CreateTheme(c.Request().Context(), t); err != nil {
		return err
	}
	return respond(c, http.StatusCreated, func(e *jx.Encoder) {
		encodeTheme(e, t)
	})
}

func (h *Handler) ActivateTheme(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Site.ActivateTheme(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListHeroes(c echo.Context) error {
	heroes, err := h.Site.Heroes(c.Request().Context())
	if err != nil {
		return err
	}
	return respondList(c, "heroes", len(heroes), func(e *jx.Encoder, i int) {
		encodeHero(e, &heroes[i])
	})
}

func (h *Handler) CreateHero(c echo.Context) error {
	var req heroRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	hero := &site.Hero{
		Title:    req.Title,
		Subtitle: req.Subtitle,
		ImageURL: req.ImageURL,
		CTAText:  req.CTAText,
		CTALink:  req.CTALink,
		IsActive: req.IsActive,
	}
	if err := h.Site.CreateHero(c.Request().Context(), hero); err != nil {
		return err
	}
	return respond(c, http.StatusCreated, func(e *jx.Encoder) {
		encodeHero(e, hero)
	})
}

func (h *Handler) ActivateHero(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Site.ActivateHero(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
