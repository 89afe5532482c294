// Package handler serves the storefront JSON API on echo.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/foxyglamour/storefront/internal/domain/account"
	"github.com/foxyglamour/storefront/internal/domain/auth"
	"github.com/foxyglamour/storefront/internal/domain/cart"
	"github.com/foxyglamour/storefront/internal/domain/catalog"
	"github.com/foxyglamour/storefront/internal/domain/courier"
	"github.com/foxyglamour/storefront/internal/domain/order"
	"github.com/foxyglamour/storefront/internal/domain/report"
	"github.com/foxyglamour/storefront/internal/domain/site"
	"github.com/foxyglamour/storefront/internal/domain/wishlist"
)

// Carts mutates and renders session carts.
type Carts interface {
	Add(ctx context.Context, c *cart.Cart, req cart.AddRequest) (cart.Key, error)
	Remove(c *cart.Cart, rawKey string) error
	View(ctx context.Context, c *cart.Cart) (*cart.View, error)
}

// Orders places and administers orders.
type Orders interface {
	Checkout(ctx context.Context, c *cart.Cart, form order.CheckoutForm, userID *int64) (*order.Order, error)
	Get(ctx context.Context, id int64) (*order.Order, error)
	List(ctx context.Context, f order.ListFilter) ([]order.Order, error)
	ListForUser(ctx context.Context, userID int64) ([]order.Order, error)
	Update(ctx context.Context, id int64, req order.UpdateRequest) (*order.Order, error)
}

// Courier dispatches parcels and serves synced locations.
type Courier interface {
	SendMany(ctx context.Context, ids []int64) []courier.SendResult
	RefreshStatuses(ctx context.Context) (courier.RefreshResult, error)
	SyncLocations(ctx context.Context, opts courier.SyncOptions) (courier.SyncResult, error)
	Cities(ctx context.Context) ([]courier.City, error)
	Zones(ctx context.Context, cityID int) ([]courier.Zone, error)
	Areas(ctx context.Context, zoneID int) ([]courier.Area, error)
}

// Site manages themes and hero sections.
type Site interface {
	Themes(ctx context.Context) ([]site.Theme, error)
	CreateTheme(ctx context.Context, t *site.Theme) error
	ActivateTheme(ctx context.Context, id int64) error
	ActiveTheme(ctx context.Context) (*site.Theme, error)
	Heroes(ctx context.Context) ([]site.Hero, error)
	CreateHero(ctx context.Context, h *site.Hero) error
	ActivateHero(ctx context.Context, id int64) error
	ActiveHero(ctx context.Context) (*site.Hero, error)
}

// Wishlists resolves session wishlists.
type Wishlists interface {
	Add(ctx context.Context, l *wishlist.List, productID int64) error
	Products(ctx context.Context, l *wishlist.List) ([]catalog.Product, error)
}

// Accounts registers and authenticates customers.
type Accounts interface {
	Register(ctx context.Context, req account.RegisterRequest) (*account.User, error)
	Login(ctx context.Context, username, password string) (*account.User, error)
	Get(ctx context.Context, id int64) (*account.User, error)
}

// Reports builds the admin dashboard.
type Reports interface {
	Dashboard(ctx context.Context) (*report.Dashboard, error)
}

// Authenticator checks admin API keys.
type Authenticator interface {
	Authenticate(ctx context.Context, key string) (*auth.APIKeyInfo, error)
}

// Deps are the services behind the API.
type Deps struct {
	Catalog   catalog.Repository
	Carts     Carts
	Orders    Orders
	Courier   Courier
	Site      Site
	Wishlists Wishlists
	Accounts  Accounts
	Reports   Reports
	Auth      Authenticator
}

// Config holds non-dependency settings.
type Config struct {
	// PublicBaseURL prefixes sitemap locations, e.g. https://shop.example.com.
	PublicBaseURL string
}

// Handler implements the HTTP API.
type Handler struct {
	Deps
	baseURL string
}

// New creates a Handler.
func New(deps Deps, cfg Config) *Handler {
	return &Handler{Deps: deps, baseURL: strings.TrimRight(cfg.PublicBaseURL, "/")}
}

// Mount registers every route on e. Session middleware must already be
// installed on e.
func (h *Handler) Mount(e *echo.Echo) {
	e.GET("/sitemap.xml", h.Sitemap)
	e.GET("/sitemap.xml.gz", h.SitemapGzip)
	e.GET("/robots.txt", h.Robots)

	api := e.Group("/api")
	api.GET("/categories", h.ListCategories)
	api.GET("/products", h.ListProducts)
	api.GET("/products/:id/:slug", h.GetProduct)

	api.GET("/cart", h.GetCart)
	api.POST("/cart/items", h.AddCartItem)
	api.DELETE("/cart/items/:key", h.RemoveCartItem)
	api.POST("/checkout", h.Checkout)
	api.GET("/orders/:id", h.GetOrder)

	api.GET("/wishlist", h.GetWishlist)
	api.POST("/wishlist/:id", h.AddToWishlist)
	api.DELETE("/wishlist/:id", h.RemoveFromWishlist)

	api.POST("/accounts/register", h.RegisterAccount)
	api.POST("/accounts/login", h.Login)
	api.POST("/accounts/logout", h.Logout)
	api.GET("/accounts/me", h.Me)
	api.GET("/accounts/orders", h.MyOrders)

	api.GET("/site/theme", h.ActiveTheme)
	api.GET("/site/hero", h.ActiveHero)

	api.GET("/courier/cities", h.ListCities)
	api.GET("/courier/cities/:id/zones", h.ListZones)
	api.GET("/courier/zones/:id/areas", h.ListAreas)

	admin := api.Group("/admin", h.RequireAPIKey)
	admin.GET("/dashboard", h.Dashboard)
	admin.GET("/orders", h.AdminListOrders)
	admin.GET("/orders/:id", h.AdminGetOrder)
	admin.PATCH("/orders/:id", h.AdminUpdateOrder)
	admin.POST("/orders/courier/send", h.SendToCourier)
	admin.POST("/orders/courier/refresh", h.RefreshCourierStatuses)
	admin.POST("/courier/sync", h.SyncLocations)
	admin.PUT("/products/:id/stock", h.SetStock)
	admin.PUT("/products/:id/variants", h.UpsertVariant)
	admin.GET("/themes", h.ListThemes)
	admin.POST("/themes", h.CreateTheme)
	admin.POST("/themes/:id/activate", h.ActivateTheme)
	admin.GET("/heroes", h.ListHeroes)
	admin.POST("/heroes", h.CreateHero)
	admin.POST("/heroes/:id/activate", h.ActivateHero)
}

// RouteFinder resolves the echo route pattern for r without serving it.
func RouteFinder(e *echo.Echo) func(r *http.Request) (string, bool) {
	return func(r *http.Request) (string, bool) {
		c := e.NewContext(r, nil)
		e.Router().Find(r.Method, r.URL.Path, c)
		path := c.Path()
		return path, path != ""
	}
}
