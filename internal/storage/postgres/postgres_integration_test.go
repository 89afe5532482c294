//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/foxyglamour/storefront/internal/domain/cart"
	"github.com/foxyglamour/storefront/internal/domain/catalog"
	"github.com/foxyglamour/storefront/internal/domain/courier"
	"github.com/foxyglamour/storefront/internal/domain/order"
	"github.com/foxyglamour/storefront/internal/domain/site"
	"github.com/foxyglamour/storefront/internal/domain/visitor"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "store",
				"POSTGRES_PASSWORD": "store",
				"POSTGRES_DB":       "store",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		return 1
	}
	defer func() { _ = c.Terminate(context.Background()) }()

	host, err := c.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "host: %v\n", err)
		return 1
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "mapped port: %v\n", err)
		return 1
	}

	dsn := fmt.Sprintf("postgres://store:store@%s:%s/store?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pool: %v\n", err)
		return 1
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "migrations: %v\n", err)
		return 1
	}
	return m.Run()
}

// seedProduct inserts a product with the given stock and sizes.
func seedProduct(t *testing.T, slug string, stock int, sizes ...string) *catalog.Product {
	t.Helper()
	ctx := context.Background()
	s := NewSeeder(testPool)

	cat := &catalog.Category{Name: "Rings", Slug: "rings"}
	require.NoError(t, s.UpsertCategory(ctx, cat))
	for _, code := range sizes {
		require.NoError(t, s.UpsertSize(ctx, &catalog.Size{Name: "Size " + code, Code: code}))
	}

	p := &catalog.Product{
		CategoryID:         cat.ID,
		Name:               "Product " + slug,
		Slug:               slug,
		Price:              decimal.NewFromInt(1000),
		CostPrice:          decimal.NewFromInt(600),
		Stock:              stock,
		DiscountPercentage: decimal.NewFromInt(10),
		IsAvailable:        true,
		SizeCodes:          sizes,
	}
	require.NoError(t, s.UpsertProduct(ctx, p))
	return p
}

func TestCatalogRepository(t *testing.T) {
	ctx := context.Background()
	p := seedProduct(t, "gold-ring", 5, "7", "8")
	repo := NewCatalogRepository(testPool)

	got, err := repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "gold-ring", got.Slug)
	assert.ElementsMatch(t, []string{"7", "8"}, got.SizeCodes)
	assert.True(t, got.NetPrice().Equal(decimal.NewFromInt(900)))

	_, err = repo.GetProduct(ctx, -1)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	list, err := repo.ListProducts(ctx, catalog.Filter{CategorySlug: "rings", Query: "gold"})
	require.NoError(t, err)
	require.NotEmpty(t, list)

	v, err := repo.UpsertVariant(ctx, catalog.Variant{ProductID: p.ID, SizeCode: "7", Stock: 2})
	require.NoError(t, err)
	v2, err := repo.UpsertVariant(ctx, catalog.Variant{ProductID: p.ID, SizeCode: "7", Stock: 3})
	require.NoError(t, err)
	assert.Equal(t, v.ID, v2.ID)
	assert.Equal(t, 3, v2.Stock)

	require.NoError(t, repo.SetStock(ctx, p.ID, 9))
	assert.ErrorIs(t, repo.SetStock(ctx, -1, 1), catalog.ErrNotFound)
}

func TestCheckoutNeverOversells(t *testing.T) {
	ctx := context.Background()
	p := seedProduct(t, "silver-ring", 2, "6")
	catalogRepo := NewCatalogRepository(testPool)
	orders := NewOrderRepository(testPool)
	svc := order.NewService(orders)

	form := order.CheckoutForm{
		FirstName:  "Nadia",
		Phone:      "01712345678",
		Address:    "House 1, Road 2",
		PostalCode: "1207",
		City:       "Dhaka",
	}

	c := cart.New()
	c.Add(cart.Key{ProductID: p.ID, Size: "6"}, 2, decimal.NewFromInt(900), false)
	placed, err := svc.Checkout(ctx, c, form, nil)
	require.NoError(t, err)
	require.Len(t, placed.Items, 1)
	assert.True(t, placed.Items[0].Price.Equal(decimal.NewFromInt(900)))
	require.NotNil(t, placed.Items[0].CostPrice)
	assert.True(t, placed.Items[0].CostPrice.Equal(decimal.NewFromInt(600)))

	after, err := catalogRepo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.Stock)

	again := cart.New()
	again.Add(cart.Key{ProductID: p.ID, Size: "6"}, 1, decimal.NewFromInt(900), false)
	_, err = svc.Checkout(ctx, again, form, nil)
	var stockErr *order.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)

	cancelled := order.StatusCancelled
	_, err = svc.Update(ctx, placed.ID, order.UpdateRequest{Status: &cancelled})
	require.NoError(t, err)
	restocked, err := catalogRepo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, restocked.Stock)

	loaded, err := orders.Get(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, loaded.Status)
	assert.True(t, loaded.Total().Equal(placed.Total()))

	require.NoError(t, orders.MarkSent(ctx, placed.ID, "DL123", "Pending"))
	assert.ErrorIs(t, orders.MarkSent(ctx, placed.ID, "DL124", "Pending"), courier.ErrAlreadySent)
	assert.ErrorIs(t, orders.MarkSent(ctx, placed.ID+1000, "DL125", "Pending"), order.ErrNotFound)
	require.NoError(t, orders.SetCourierStatus(ctx, placed.ID, "Delivered"))
	loaded, err = orders.Get(ctx, placed.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Courier.Sent)
	assert.Equal(t, "DL123", loaded.Courier.ConsignmentID)
	assert.Equal(t, "Delivered", loaded.Courier.Status)
}

func TestSiteSingleActive(t *testing.T) {
	ctx := context.Background()
	repo := NewSiteRepository(testPool)

	first := site.DefaultTheme()
	first.Name = "Gold"
	first.IsActive = true
	require.NoError(t, repo.CreateTheme(ctx, &first))

	second := site.DefaultTheme()
	second.Name = "Rose"
	second.IsActive = true
	require.NoError(t, repo.CreateTheme(ctx, &second))

	active, err := repo.ActiveTheme(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Rose", active.Name)

	require.NoError(t, repo.ActivateTheme(ctx, first.ID))
	themes, err := repo.ListThemes(ctx)
	require.NoError(t, err)
	activeCount := 0
	for _, th := range themes {
		if th.IsActive {
			activeCount++
			assert.Equal(t, first.ID, th.ID)
		}
	}
	assert.Equal(t, 1, activeCount)

	assert.ErrorIs(t, repo.ActivateTheme(ctx, -1), site.ErrNotFound)

	dup := site.DefaultTheme()
	dup.Name = "Gold"
	var verr *site.ValidationError
	assert.ErrorAs(t, repo.CreateTheme(ctx, &dup), &verr)
}

func TestLocationUpsertReportsCreated(t *testing.T) {
	ctx := context.Background()
	repo := NewLocationRepository(testPool)

	created, err := repo.UpsertCity(ctx, courier.City{ID: 1, Name: "Dhaka", IsActive: true})
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.UpsertCity(ctx, courier.City{ID: 1, Name: "Dhaka City", IsActive: true})
	require.NoError(t, err)
	assert.False(t, created)

	_, err = repo.UpsertZone(ctx, courier.Zone{ID: 10, Name: "Gulshan", CityID: 1, IsActive: true})
	require.NoError(t, err)
	zones, err := repo.ListZones(ctx, 1)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "Gulshan", zones[0].Name)
}

func TestVisitorsAndReport(t *testing.T) {
	ctx := context.Background()
	visits := NewVisitorRepository(testPool)
	reports := NewReportRepository(testPool)
	source := "facebook"

	since := time.Now().Add(-time.Minute)
	for _, v := range []visitor.Visit{
		{IP: "10.0.0.1", Path: "/", UTMSource: &source, FirstVisit: true},
		{IP: "10.0.0.1", Path: "/products"},
		{IP: "10.0.0.2", Path: "/", FirstVisit: true},
	} {
		require.NoError(t, visits.Record(ctx, &v))
		assert.NotZero(t, v.ID)
	}

	unique, first, err := reports.UniqueVisitors(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, 2, unique)
	assert.Equal(t, 2, first)

	sources, err := reports.TopSources(ctx, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, sources)

	n, err := visits.PurgeBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(3))
}
