// Package site holds storefront presentation settings: color themes and
// hero banners. At most one theme and one hero are active at a time.
package site

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no row (or no active row) exists.
var ErrNotFound = errors.New("not found")

// ValidationError reports an invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Theme is a named color palette.
type Theme struct {
	ID                 int64
	Name               string
	PrimaryColor       string
	TextColor          string
	BgColor            string
	AccentColor        string
	PromoBg            string
	ButtonBgColor      string
	ButtonTextColor    string
	ButtonHoverBgColor string
	BuyNowBgColor      string
	BuyNowTextColor    string
	BuyNowHoverBgColor string
	BuyNowHoverText    string
	IsActive           bool
}

// DefaultTheme is served when no theme is active.
func DefaultTheme() Theme {
	return Theme{
		Name:               "Default",
		PrimaryColor:       "#000000",
		TextColor:          "#333333",
		BgColor:            "#ffffff",
		AccentColor:        "#d4af37",
		PromoBg:            "#97a6f7",
		ButtonBgColor:      "#000000",
		ButtonTextColor:    "#ffffff",
		ButtonHoverBgColor: "#333333",
		BuyNowBgColor:      "#d4af37",
		BuyNowTextColor:    "#ffffff",
		BuyNowHoverBgColor: "#b8962e",
		BuyNowHoverText:    "#ffffff",
	}
}

func (t *Theme) colors() []struct {
	field string
	value *string
} {
	return []struct {
		field string
		value *string
	}{
		{"primary_color", &t.PrimaryColor},
		{"text_color", &t.TextColor},
		{"bg_color", &t.BgColor},
		{"accent_color", &t.AccentColor},
		{"promo_bg", &t.PromoBg},
		{"button_bg_color", &t.ButtonBgColor},
		{"button_text_color", &t.ButtonTextColor},
		{"button_hover_bg_color", &t.ButtonHoverBgColor},
		{"buy_now_bg_color", &t.BuyNowBgColor},
		{"buy_now_text_color", &t.BuyNowTextColor},
		{"buy_now_hover_bg_color", &t.BuyNowHoverBgColor},
		{"buy_now_hover_text_color", &t.BuyNowHoverText},
	}
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Normalize fills empty colors from DefaultTheme and trims the name.
func (t *Theme) Normalize() {
	t.Name = strings.TrimSpace(t.Name)
	def := DefaultTheme()
	defaults := def.colors()
	for i, c := range t.colors() {
		if strings.TrimSpace(*c.value) == "" {
			*c.value = *defaults[i].value
		}
	}
}

// Validate checks the name and that every color is a hex triplet.
func (t *Theme) Validate() error {
	if t.Name == "" {
		return &ValidationError{Field: "name", Message: "This field is required."}
	}
	for _, c := range t.colors() {
		if !hexColor.MatchString(*c.value) {
			return &ValidationError{Field: c.field, Message: fmt.Sprintf("%q is not a hex color.", *c.value)}
		}
	}
	return nil
}

// CSSVariables renders the palette as inline CSS custom properties.
func (t *Theme) CSSVariables() string {
	vars := []struct{ name, value string }{
		{"--primary-color", t.PrimaryColor},
		{"--text-color", t.TextColor},
		{"--bg-color", t.BgColor},
		{"--accent-color", t.AccentColor},
		{"--promo-bg", t.PromoBg},
		{"--btn-bg", t.ButtonBgColor},
		{"--btn-text", t.ButtonTextColor},
		{"--btn-hover-bg", t.ButtonHoverBgColor},
		{"--buy-now-bg", t.BuyNowBgColor},
		{"--buy-now-text", t.BuyNowTextColor},
		{"--buy-now-hover-bg", t.BuyNowHoverBgColor},
		{"--buy-now-hover-text", t.BuyNowHoverText},
	}
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = v.name + ": " + v.value + ";"
	}
	return strings.Join(parts, " ")
}

// Hero is a homepage banner.
type Hero struct {
	ID       int64
	Title    string
	Subtitle string
	ImageURL string
	CTAText  string
	CTALink  string
	IsActive bool
}

// Validate checks required hero fields.
func (h *Hero) Validate() error {
	h.Title = strings.TrimSpace(h.Title)
	if h.Title == "" {
		return &ValidationError{Field: "title", Message: "This field is required."}
	}
	if h.CTAText != "" && h.CTALink == "" {
		return &ValidationError{Field: "cta_link", Message: "A link is required when the button text is set."}
	}
	return nil
}

// ThemeRepository persists themes. Create and Activate keep at most one
// active row by deactivating the others in the same transaction.
type ThemeRepository interface {
	ListThemes(ctx context.Context) ([]Theme, error)
	CreateTheme(ctx context.Context, t *Theme) error
	ActivateTheme(ctx context.Context, id int64) error
	ActiveTheme(ctx context.Context) (*Theme, error)
}

// HeroRepository persists hero banners with the same single-active rule.
type HeroRepository interface {
	ListHeroes(ctx context.Context) ([]Hero, error)
	CreateHero(ctx context.Context, h *Hero) error
	ActivateHero(ctx context.Context, id int64) error
	ActiveHero(ctx context.Context) (*Hero, error)
}
