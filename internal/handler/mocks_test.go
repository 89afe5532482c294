package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/foxyglamour/storefront/internal/domain/account"
	"github.com/foxyglamour/storefront/internal/domain/auth"
	"github.com/foxyglamour/storefront/internal/domain/cart"
	"github.com/foxyglamour/storefront/internal/domain/catalog"
	"github.com/foxyglamour/storefront/internal/domain/courier"
	"github.com/foxyglamour/storefront/internal/domain/order"
	"github.com/foxyglamour/storefront/internal/domain/report"
	"github.com/foxyglamour/storefront/internal/domain/site"
	"github.com/foxyglamour/storefront/internal/domain/visitor"
	"github.com/foxyglamour/storefront/internal/domain/wishlist"
)

// --- Mock implementations ---

type mockCatalog struct {
	products   map[int64]catalog.Product
	variants   []catalog.Variant
	categories []catalog.Category
}

var _ catalog.Repository = (*mockCatalog)(nil)

func (m *mockCatalog) ListCategories(context.Context) ([]catalog.Category, error) {
	return m.categories, nil
}

func (m *mockCatalog) GetCategoryBySlug(_ context.Context, slug string) (*catalog.Category, error) {
	for _, c := range m.categories {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (m *mockCatalog) ListProducts(_ context.Context, f catalog.Filter) ([]catalog.Product, error) {
	var out []catalog.Product
	for id := int64(1); id <= int64(len(m.products))+10; id++ {
		p, ok := m.products[id]
		if !ok || (!p.IsAvailable && !f.IncludeUnavailable) {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *mockCatalog) GetProduct(_ context.Context, id int64) (*catalog.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (m *mockCatalog) GetProductsByIDs(_ context.Context, ids []int64) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCatalog) ListVariants(_ context.Context, ids []int64) ([]catalog.Variant, error) {
	var out []catalog.Variant
	for _, v := range m.variants {
		for _, id := range ids {
			if v.ProductID == id {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

func (m *mockCatalog) SizesByCodes(context.Context, []string) ([]catalog.Size, error) {
	return nil, nil
}

func (m *mockCatalog) ColorsByCodes(context.Context, []string) ([]catalog.Color, error) {
	return nil, nil
}

func (m *mockCatalog) SetStock(_ context.Context, id int64, stock int) error {
	p, ok := m.products[id]
	if !ok {
		return catalog.ErrNotFound
	}
	p.Stock = stock
	m.products[id] = p
	return nil
}

func (m *mockCatalog) UpsertVariant(_ context.Context, v catalog.Variant) (*catalog.Variant, error) {
	for i, cur := range m.variants {
		if cur.ProductID == v.ProductID && cur.SizeCode == v.SizeCode && cur.ColorCode == v.ColorCode {
			m.variants[i].Stock = v.Stock
			return &m.variants[i], nil
		}
	}
	v.ID = int64(len(m.variants) + 1)
	m.variants = append(m.variants, v)
	return &v, nil
}

type mockOrders struct {
	orders   map[int64]*order.Order
	nextID   int64
	checkout error
	lastCart *cart.Cart
	lastUser *int64
}

func (m *mockOrders) Checkout(_ context.Context, c *cart.Cart, form order.CheckoutForm, userID *int64) (*order.Order, error) {
	if m.checkout != nil {
		return nil, m.checkout
	}
	if c.IsEmpty() {
		return nil, order.ErrEmptyCart
	}
	m.lastCart, m.lastUser = c, userID
	m.nextID++
	o := &order.Order{
		ID:            m.nextID,
		UserID:        userID,
		FirstName:     form.FirstName,
		Phone:         form.Phone,
		ShippingZone:  order.ZoneInsideDhaka,
		PaymentMethod: order.PaymentCOD,
		ShippingCost:  order.ZoneInsideDhaka.Cost(),
		Status:        order.StatusPending,
	}
	for _, e := range c.Entries() {
		o.Items = append(o.Items, order.Item{ProductID: e.Key.ProductID, Price: e.Line.Price, Quantity: e.Line.Quantity})
	}
	if m.orders == nil {
		m.orders = make(map[int64]*order.Order)
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *mockOrders) Get(_ context.Context, id int64) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrders) List(_ context.Context, f order.ListFilter) ([]order.Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, order.ErrInvalidStatus
	}
	var out []order.Order
	for _, o := range m.orders {
		if f.Status == "" || o.Status == f.Status {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrders) ListForUser(_ context.Context, userID int64) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.orders {
		if o.UserID != nil && *o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrders) Update(_ context.Context, id int64, req order.UpdateRequest) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, order.ErrInvalidStatus
		}
		o.Status = *req.Status
	}
	if req.Paid != nil {
		o.Paid = *req.Paid
	}
	return o, nil
}

type mockAccounts struct {
	users map[string]*account.User
	pass  map[string]string
}

func (m *mockAccounts) Register(_ context.Context, req account.RegisterRequest) (*account.User, error) {
	if _, ok := m.users[req.Username]; ok {
		return nil, &account.ValidationError{Fields: map[string]string{"username": account.ErrUsernameTaken.Error()}}
	}
	u := &account.User{ID: int64(len(m.users) + 1), Username: req.Username, Email: req.Email}
	m.users[req.Username] = u
	m.pass[req.Username] = req.Password
	return u, nil
}

func (m *mockAccounts) Login(_ context.Context, username, password string) (*account.User, error) {
	u, ok := m.users[username]
	if !ok || m.pass[username] != password {
		return nil, account.ErrInvalidCredentials
	}
	return u, nil
}

func (m *mockAccounts) Get(_ context.Context, id int64) (*account.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, account.ErrNotFound
}

// mockReportRepo backs a real report.Service with an empty shop.
type mockReportRepo struct {
	orders int
}

func (m *mockReportRepo) CountOrders(context.Context) (int, error) { return m.orders, nil }

func (m *mockReportRepo) Financials(context.Context) (report.Financials, error) {
	return report.Financials{}, nil
}

func (m *mockReportRepo) RecentOrders(context.Context, int) ([]order.Order, error) { return nil, nil }

func (m *mockReportRepo) TopCustomers(context.Context, int) ([]report.Customer, error) {
	return nil, nil
}

func (m *mockReportRepo) UniqueVisitors(context.Context, time.Time) (int, int, error) {
	return 0, 0, nil
}

func (m *mockReportRepo) TopSources(context.Context, int) ([]report.Source, error) { return nil, nil }

func (m *mockReportRepo) RecentVisits(context.Context, int) ([]visitor.Visit, error) {
	return nil, nil
}

type mockAuth struct {
	key string
}

func (m *mockAuth) Authenticate(_ context.Context, key string) (*auth.APIKeyInfo, error) {
	if key == "" || key != m.key {
		return nil, auth.ErrUnauthorized
	}
	return &auth.APIKeyInfo{ID: "k1", Name: "ops"}, nil
}

type mockSite struct {
	themes []site.Theme
	hero   *site.Hero
}

func (m *mockSite) Themes(context.Context) ([]site.Theme, error) { return m.themes, nil }

func (m *mockSite) CreateTheme(_ context.Context, t *site.Theme) error {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return err
	}
	t.ID = int64(len(m.themes) + 1)
	m.themes = append(m.themes, *t)
	return nil
}

func (m *mockSite) ActivateTheme(_ context.Context, id int64) error {
	found := false
	for i := range m.themes {
		m.themes[i].IsActive = m.themes[i].ID == id
		found = found || m.themes[i].IsActive
	}
	if !found {
		return site.ErrNotFound
	}
	return nil
}

func (m *mockSite) ActiveTheme(context.Context) (*site.Theme, error) {
	for _, t := range m.themes {
		if t.IsActive {
			return &t, nil
		}
	}
	def := site.DefaultTheme()
	return &def, nil
}

func (m *mockSite) Heroes(context.Context) ([]site.Hero, error) { return nil, nil }

func (m *mockSite) CreateHero(context.Context, *site.Hero) error { return nil }

func (m *mockSite) ActivateHero(context.Context, int64) error { return site.ErrNotFound }

func (m *mockSite) ActiveHero(context.Context) (*site.Hero, error) {
	if m.hero == nil {
		return nil, site.ErrNotFound
	}
	return m.hero, nil
}

type mockCourier struct {
	sent []int64
}

func (m *mockCourier) SendMany(_ context.Context, ids []int64) []courier.SendResult {
	out := make([]courier.SendResult, len(ids))
	for i, id := range ids {
		m.sent = append(m.sent, id)
		out[i] = courier.SendResult{OrderID: id, Outcome: courier.OutcomeSent}
	}
	return out
}

func (m *mockCourier) RefreshStatuses(context.Context) (courier.RefreshResult, error) {
	return courier.RefreshResult{}, courier.ErrNotConfigured
}

func (m *mockCourier) SyncLocations(context.Context, courier.SyncOptions) (courier.SyncResult, error) {
	return courier.SyncResult{CitiesCreated: 2}, nil
}

func (m *mockCourier) Cities(context.Context) ([]courier.City, error) {
	return []courier.City{{ID: 1, Name: "Dhaka", IsActive: true}}, nil
}

func (m *mockCourier) Zones(_ context.Context, cityID int) ([]courier.Zone, error) {
	return []courier.Zone{{ID: 10, Name: "Gulshan", CityID: cityID, IsActive: true}}, nil
}

func (m *mockCourier) Areas(_ context.Context, zoneID int) ([]courier.Area, error) {
	return []courier.Area{{ID: 100, Name: "Gulshan 1", ZoneID: zoneID, IsActive: true}}, nil
}

// --- Helpers ---

func newRing() catalog.Product {
	return catalog.Product{
		ID:          1,
		CategoryID:  1,
		Name:        "Gold Ring",
		Slug:        "gold-ring",
		Price:       decimal.RequireFromString("1500"),
		Stock:       3,
		IsAvailable: true,
		SizeCodes:   []string{"6", "7"},
		ColorCodes:  []string{"gold"},
	}
}

type fixture struct {
	catalog  *mockCatalog
	orders   *mockOrders
	accounts *mockAccounts
	site     *mockSite
	courier  *mockCourier
	e        *echo.Echo
	cookies  []*http.Cookie
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat := &mockCatalog{
		products:   map[int64]catalog.Product{1: newRing()},
		categories: []catalog.Category{{ID: 1, Name: "Rings", Slug: "rings"}},
	}
	f := &fixture{
		catalog:  cat,
		orders:   &mockOrders{},
		accounts: &mockAccounts{users: map[string]*account.User{}, pass: map[string]string{}},
		site:     &mockSite{},
		courier:  &mockCourier{},
		e:        echo.New(),
	}
	f.e.HTTPErrorHandler = ErrorHandler
	f.e.Use(session.Middleware(sessions.NewCookieStore([]byte("test-session-secret"))))
	New(Deps{
		Catalog:   cat,
		Carts:     cart.NewService(cat),
		Orders:    f.orders,
		Courier:   f.courier,
		Site:      f.site,
		Wishlists: wishlist.NewService(cat),
		Accounts:  f.accounts,
		Reports:   report.NewService(&mockReportRepo{orders: 2}, nil),
		Auth:      &mockAuth{key: "secret"},
	}, Config{PublicBaseURL: "https://shop.test/"}).Mount(f.e)
	return f
}

// do sends a request carrying the cookies collected so far.
func (f *fixture) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	for _, c := range f.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		replaced := false
		for i, cur := range f.cookies {
			if cur.Name == c.Name {
				f.cookies[i] = c
				replaced = true
			}
		}
		if !replaced {
			f.cookies = append(f.cookies, c)
		}
	}
	return rec
}
