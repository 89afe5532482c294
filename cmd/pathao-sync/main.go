// Command pathao-sync copies Pathao cities and zones into the database.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/foxyglamour/storefront/internal/app"
	"github.com/foxyglamour/storefront/internal/domain/courier"
	"github.com/foxyglamour/storefront/internal/storage/postgres"
)

type config struct {
	DatabaseURL string `usage:"PostgreSQL connection URL (STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	CitiesOnly  bool   `default:"false" usage:"Sync cities without zones" flag:"cities-only"`
	CityID      int    `default:"0" usage:"Sync zones of this city only" flag:"city-id"`
	Pathao      app.PathaoConfig
}

func loadConfig() (*config, error) {
	var cfg config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
		AllowUnknownFields: true,
		AllowUnknownEnvs:   true,
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set STORE_DATABASE_URL or DATABASE_URL")
	}
	return &cfg, nil
}

func main() {
	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		lg.Fatal("Config", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(zctx.Base(ctx, lg), cfg); err != nil {
		lg.Fatal("Sync failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config) error {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	d := app.NewDispatcher(cfg.Pathao, postgres.NewOrderRepository(pool), postgres.NewLocationRepository(pool))
	res, err := d.SyncLocations(ctx, courier.SyncOptions{
		CitiesOnly: cfg.CitiesOnly,
		CityID:     cfg.CityID,
	})
	if err != nil {
		return err
	}
	zctx.From(ctx).Info("Locations synced",
		zap.Int("cities_created", res.CitiesCreated),
		zap.Int("cities_updated", res.CitiesUpdated),
		zap.Int("zones_created", res.ZonesCreated),
		zap.Int("zones_updated", res.ZonesUpdated),
		zap.Int("zones_failed", res.ZonesFailed),
	)
	return nil
}
