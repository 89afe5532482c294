package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foxyglamour/storefront/internal/domain/catalog"
	"github.com/foxyglamour/storefront/internal/domain/site"
)

const (
	upsertCategorySQL = `INSERT INTO categories (parent_id, name, slug) VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE SET parent_id = EXCLUDED.parent_id, name = EXCLUDED.name
		RETURNING id`

	upsertSizeSQL = `INSERT INTO sizes (name, code) VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name RETURNING id`

	upsertColorSQL = `INSERT INTO colors (name, code, hex) VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, hex = EXCLUDED.hex RETURNING id`

	upsertProductSQL = `INSERT INTO products (category_id, name, slug, description, price, cost_price,
		stock, discount_percentage, discount_amount, is_available, metal_type, gemstone,
		weight_grams, is_adjustable, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (slug) DO UPDATE SET category_id = EXCLUDED.category_id, name = EXCLUDED.name,
			description = EXCLUDED.description, price = EXCLUDED.price, cost_price = EXCLUDED.cost_price,
			stock = EXCLUDED.stock, discount_percentage = EXCLUDED.discount_percentage,
			discount_amount = EXCLUDED.discount_amount, is_available = EXCLUDED.is_available,
			metal_type = EXCLUDED.metal_type, gemstone = EXCLUDED.gemstone,
			weight_grams = EXCLUDED.weight_grams, is_adjustable = EXCLUDED.is_adjustable,
			image = EXCLUDED.image, updated = now()
		RETURNING id`

	clearProductSizesSQL  = `DELETE FROM product_sizes WHERE product_id = $1`
	clearProductColorsSQL = `DELETE FROM product_colors WHERE product_id = $1`

	linkProductSizesSQL = `INSERT INTO product_sizes (product_id, size_id)
		SELECT $1, id FROM sizes WHERE code = ANY($2)`

	linkProductColorsSQL = `INSERT INTO product_colors (product_id, color_id)
		SELECT $1, id FROM colors WHERE code = ANY($2)`

	seedThemeSQL = `INSERT INTO themes (name, primary_color, text_color, bg_color, accent_color,
		promo_bg, button_bg_color, button_text_color, button_hover_bg_color, buy_now_bg_color,
		buy_now_text_color, buy_now_hover_bg_color, buy_now_hover_text_color, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14 AND NOT EXISTS (SELECT 1 FROM themes WHERE is_active))
		ON CONFLICT (name) DO NOTHING`
)

// Seeder writes reference and demo data. Every method is idempotent.
type Seeder struct {
	pool *pgxpool.Pool
}

// NewSeeder returns a Seeder that uses the given pool.
func NewSeeder(pool *pgxpool.Pool) *Seeder {
	return &Seeder{pool: pool}
}

// UpsertCategory stores c keyed by slug and fills its id.
func (s *Seeder) UpsertCategory(ctx context.Context, c *catalog.Category) error {
	if err := s.pool.QueryRow(ctx, upsertCategorySQL, c.ParentID, c.Name, c.Slug).Scan(&c.ID); err != nil {
		return fmt.Errorf("upserting category %q: %w", c.Slug, err)
	}
	return nil
}

// UpsertSize stores sz keyed by code and fills its id.
func (s *Seeder) UpsertSize(ctx context.Context, sz *catalog.Size) error {
	if err := s.pool.QueryRow(ctx, upsertSizeSQL, sz.Name, sz.Code).Scan(&sz.ID); err != nil {
		return fmt.Errorf("upserting size %q: %w", sz.Code, err)
	}
	return nil
}

// UpsertColor stores c keyed by code and fills its id.
func (s *Seeder) UpsertColor(ctx context.Context, c *catalog.Color) error {
	if err := s.pool.QueryRow(ctx, upsertColorSQL, c.Name, c.Code, c.Hex).Scan(&c.ID); err != nil {
		return fmt.Errorf("upserting color %q: %w", c.Code, err)
	}
	return nil
}

// UpsertProduct stores p keyed by slug and replaces its size and color links.
func (s *Seeder) UpsertProduct(ctx context.Context, p *catalog.Product) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, upsertProductSQL,
			p.CategoryID, p.Name, p.Slug, p.Description, p.Price, p.CostPrice,
			p.Stock, p.DiscountPercentage, p.DiscountAmount, p.IsAvailable, p.MetalType, p.Gemstone,
			p.WeightGrams, p.IsAdjustable, p.Image,
		).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("upserting product %q: %w", p.Slug, err)
		}
		for _, sql := range []string{clearProductSizesSQL, clearProductColorsSQL} {
			if _, err := tx.Exec(ctx, sql, p.ID); err != nil {
				return fmt.Errorf("clearing links of product %q: %w", p.Slug, err)
			}
		}
		if _, err := tx.Exec(ctx, linkProductSizesSQL, p.ID, nonNil(p.SizeCodes)); err != nil {
			return fmt.Errorf("linking sizes of product %q: %w", p.Slug, err)
		}
		if _, err := tx.Exec(ctx, linkProductColorsSQL, p.ID, nonNil(p.ColorCodes)); err != nil {
			return fmt.Errorf("linking colors of product %q: %w", p.Slug, err)
		}
		return nil
	})
}

// SeedTheme inserts t unless a theme with its name exists. It only becomes
// active when requested and no other theme is active.
func (s *Seeder) SeedTheme(ctx context.Context, t site.Theme) error {
	_, err := s.pool.Exec(ctx, seedThemeSQL,
		t.Name, t.PrimaryColor, t.TextColor, t.BgColor, t.AccentColor,
		t.PromoBg, t.ButtonBgColor, t.ButtonTextColor, t.ButtonHoverBgColor, t.BuyNowBgColor,
		t.BuyNowTextColor, t.BuyNowHoverBgColor, t.BuyNowHoverText, t.IsActive,
	)
	if err != nil {
		return fmt.Errorf("seeding theme %q: %w", t.Name, err)
	}
	return nil
}

func nonNil(codes []string) []string {
	if codes == nil {
		return []string{}
	}
	return codes
}
