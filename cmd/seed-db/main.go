package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/foxyglamour/storefront/internal/domain/auth"
	"github.com/foxyglamour/storefront/internal/domain/catalog"
	"github.com/foxyglamour/storefront/internal/domain/site"
	"github.com/foxyglamour/storefront/internal/storage/postgres"
)

type seedFile struct {
	Sizes      []catalog.Size  `json:"sizes"`
	Colors     []catalog.Color `json:"colors"`
	Categories []categoryJSON  `json:"categories"`
	Products   []productJSON   `json:"products"`
}

type categoryJSON struct {
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Parent string `json:"parent"`
}

type productJSON struct {
	Name               string           `json:"name"`
	Slug               string           `json:"slug"`
	Category           string           `json:"category"`
	Description        string           `json:"description"`
	Price              decimal.Decimal  `json:"price"`
	CostPrice          decimal.Decimal  `json:"cost_price"`
	Stock              int              `json:"stock"`
	DiscountPercentage decimal.Decimal  `json:"discount_percentage"`
	DiscountAmount     decimal.Decimal  `json:"discount_amount"`
	Unavailable        bool             `json:"unavailable"`
	MetalType          string           `json:"metal_type"`
	Gemstone           string           `json:"gemstone"`
	WeightGrams        *decimal.Decimal `json:"weight_grams"`
	IsAdjustable       bool             `json:"is_adjustable"`
	Image              string           `json:"image"`
	Sizes              []string         `json:"sizes"`
	Colors             []string         `json:"colors"`
}

func main() {
	var (
		databaseURL  string
		seedPath     string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/catalog.json", "path to catalog JSON, optionally .gz")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STORE_API_KEY_PEPPER env)")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if apiKey == "" {
		apiKey = os.Getenv("SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STORE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, seedPath, apiKey, apiKeyPepper); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, seedPath, apiKey, pepper string) error {
	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	data, err := readSeed(seedPath)
	if err != nil {
		return err
	}
	seeder := postgres.NewSeeder(pool)
	if err := seedCatalog(ctx, lg, seeder, data); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	theme := site.DefaultTheme()
	theme.IsActive = true
	if err := seeder.SeedTheme(ctx, theme); err != nil {
		return errors.Wrap(err, "seed theme")
	}

	if apiKey == "" {
		lg.Warn("No API key given, skipping admin key")
		return nil
	}
	keys := postgres.NewAPIKeyRepository(pool)
	if err := keys.Upsert(ctx, auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.Hash([]byte(pepper), apiKey),
		Name:    "Default admin key",
		Scopes:  []string{"admin"},
	}); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}
	lg.Info("Upserted API key", zap.String("id", "default"))
	return nil
}

func readSeed(path string) (*seedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open seed file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip")
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	var data seedFile
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, errors.Wrap(err, "parse seed file")
	}
	return &data, nil
}

func seedCatalog(ctx context.Context, lg *zap.Logger, s *postgres.Seeder, data *seedFile) error {
	for i := range data.Sizes {
		if err := s.UpsertSize(ctx, &data.Sizes[i]); err != nil {
			return err
		}
	}
	for i := range data.Colors {
		if err := s.UpsertColor(ctx, &data.Colors[i]); err != nil {
			return err
		}
	}

	categories := make(map[string]int64, len(data.Categories))
	for _, c := range data.Categories {
		cat := catalog.Category{Name: c.Name, Slug: c.Slug}
		if c.Parent != "" {
			parent, ok := categories[c.Parent]
			if !ok {
				return errors.Errorf("category %q: parent %q must be listed first", c.Slug, c.Parent)
			}
			cat.ParentID = &parent
		}
		if err := s.UpsertCategory(ctx, &cat); err != nil {
			return err
		}
		categories[c.Slug] = cat.ID
	}

	for _, p := range data.Products {
		categoryID, ok := categories[p.Category]
		if !ok {
			return errors.Errorf("product %q: unknown category %q", p.Slug, p.Category)
		}
		prod := catalog.Product{
			CategoryID:         categoryID,
			Name:               p.Name,
			Slug:               p.Slug,
			Description:        p.Description,
			Price:              p.Price,
			CostPrice:          p.CostPrice,
			Stock:              p.Stock,
			DiscountPercentage: p.DiscountPercentage,
			DiscountAmount:     p.DiscountAmount,
			IsAvailable:        !p.Unavailable,
			MetalType:          p.MetalType,
			Gemstone:           p.Gemstone,
			WeightGrams:        p.WeightGrams,
			IsAdjustable:       p.IsAdjustable,
			Image:              p.Image,
			SizeCodes:          p.Sizes,
			ColorCodes:         p.Colors,
		}
		if err := s.UpsertProduct(ctx, &prod); err != nil {
			return err
		}
		lg.Info("Upserted product", zap.Int64("id", prod.ID), zap.String("slug", prod.Slug))
	}
	lg.Info("Catalog seeded",
		zap.Int("sizes", len(data.Sizes)),
		zap.Int("colors", len(data.Colors)),
		zap.Int("categories", len(data.Categories)),
		zap.Int("products", len(data.Products)),
	)
	return nil
}
