package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foxyglamour/storefront/internal/domain/site"
)

const themeColumns = `id, name, primary_color, text_color, bg_color, accent_color, promo_bg,
	button_bg_color, button_text_color, button_hover_bg_color, buy_now_bg_color,
	buy_now_text_color, buy_now_hover_bg_color, buy_now_hover_text_color, is_active`

const (
	listThemesSQL  = `SELECT ` + themeColumns + ` FROM themes ORDER BY name`
	activeThemeSQL = `SELECT ` + themeColumns + ` FROM themes WHERE is_active`

	insertThemeSQL = `INSERT INTO themes (name, primary_color, text_color, bg_color, accent_color,
		promo_bg, button_bg_color, button_text_color, button_hover_bg_color, buy_now_bg_color,
		buy_now_text_color, buy_now_hover_bg_color, buy_now_hover_text_color, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	deactivateThemesSQL = `UPDATE themes SET is_active = FALSE WHERE is_active AND id <> $1`
	activateThemeSQL    = `UPDATE themes SET is_active = TRUE WHERE id = $1`

	heroColumns = `id, title, subtitle, image_url, cta_text, cta_link, is_active`

	listHeroesSQL = `SELECT ` + heroColumns + ` FROM hero_sections ORDER BY id DESC`
	activeHeroSQL = `SELECT ` + heroColumns + ` FROM hero_sections WHERE is_active`

	insertHeroSQL = `INSERT INTO hero_sections (title, subtitle, image_url, cta_text, cta_link, is_active)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	deactivateHeroesSQL = `UPDATE hero_sections SET is_active = FALSE WHERE is_active AND id <> $1`
	activateHeroSQL     = `UPDATE hero_sections SET is_active = TRUE WHERE id = $1`
)

var (
	_ site.ThemeRepository = (*SiteRepository)(nil)
	_ site.HeroRepository  = (*SiteRepository)(nil)
)

// SiteRepository stores themes and hero banners. Activation deactivates
// every sibling inside the same transaction so at most one row is active.
type SiteRepository struct {
	pool *pgxpool.Pool
}

// NewSiteRepository returns a SiteRepository that uses the given pool.
func NewSiteRepository(pool *pgxpool.Pool) *SiteRepository {
	return &SiteRepository{pool: pool}
}

func (r *SiteRepository) ListThemes(ctx context.Context) ([]site.Theme, error) {
	rows, err := r.pool.Query(ctx, listThemesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing themes: %w", err)
	}
	return pgx.CollectRows(rows, scanTheme)
}

func (r *SiteRepository) CreateTheme(ctx context.Context, t *site.Theme) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if t.IsActive {
			if _, err := tx.Exec(ctx, deactivateThemesSQL, int64(0)); err != nil {
				return fmt.Errorf("deactivating themes: %w", err)
			}
		}
		return tx.QueryRow(ctx, insertThemeSQL,
			t.Name, t.PrimaryColor, t.TextColor, t.BgColor, t.AccentColor,
			t.PromoBg, t.ButtonBgColor, t.ButtonTextColor, t.ButtonHoverBgColor, t.BuyNowBgColor,
			t.BuyNowTextColor, t.BuyNowHoverBgColor, t.BuyNowHoverText, t.IsActive,
		).Scan(&t.ID)
	})
	if isUniqueViolation(err) {
		return &site.ValidationError{Field: "name", Message: "A theme with that name already exists."}
	}
	if err != nil {
		return fmt.Errorf("creating theme: %w", err)
	}
	return nil
}

func (r *SiteRepository) ActivateTheme(ctx context.Context, id int64) error {
	return activate(ctx, r.pool, deactivateThemesSQL, activateThemeSQL, id)
}

func (r *SiteRepository) ActiveTheme(ctx context.Context) (*site.Theme, error) {
	rows, err := r.pool.Query(ctx, activeThemeSQL)
	if err != nil {
		return nil, fmt.Errorf("getting active theme: %w", err)
	}
	t, err := pgx.CollectExactlyOneRow(rows, scanTheme)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, site.ErrNotFound
		}
		return nil, fmt.Errorf("getting active theme: %w", err)
	}
	return &t, nil
}

func (r *SiteRepository) ListHeroes(ctx context.Context) ([]site.Hero, error) {
	rows, err := r.pool.Query(ctx, listHeroesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing heroes: %w", err)
	}
	return pgx.CollectRows(rows, scanHero)
}

func (r *SiteRepository) CreateHero(ctx context.Context, h *site.Hero) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if h.IsActive {
			if _, err := tx.Exec(ctx, deactivateHeroesSQL, int64(0)); err != nil {
				return fmt.Errorf("deactivating heroes: %w", err)
			}
		}
		return tx.QueryRow(ctx, insertHeroSQL,
			h.Title, h.Subtitle, h.ImageURL, h.CTAText, h.CTALink, h.IsActive,
		).Scan(&h.ID)
	})
	if err != nil {
		return fmt.Errorf("creating hero: %w", err)
	}
	return nil
}

func (r *SiteRepository) ActivateHero(ctx context.Context, id int64) error {
	return activate(ctx, r.pool, deactivateHeroesSQL, activateHeroSQL, id)
}

func (r *SiteRepository) ActiveHero(ctx context.Context) (*site.Hero, error) {
	rows, err := r.pool.Query(ctx, activeHeroSQL)
	if err != nil {
		return nil, fmt.Errorf("getting active hero: %w", err)
	}
	h, err := pgx.CollectExactlyOneRow(rows, scanHero)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, site.ErrNotFound
		}
		return nil, fmt.Errorf("getting active hero: %w", err)
	}
	return &h, nil
}

func activate(ctx context.Context, pool *pgxpool.Pool, deactivateSQL, activateSQL string, id int64) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deactivateSQL, id); err != nil {
			return fmt.Errorf("deactivating siblings of %d: %w", id, err)
		}
		tag, err := tx.Exec(ctx, activateSQL, id)
		if err != nil {
			return fmt.Errorf("activating %d: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return site.ErrNotFound
		}
		return nil
	})
}

func scanTheme(row pgx.CollectableRow) (site.Theme, error) {
	var t site.Theme
	err := row.Scan(
		&t.ID, &t.Name, &t.PrimaryColor, &t.TextColor, &t.BgColor, &t.AccentColor, &t.PromoBg,
		&t.ButtonBgColor, &t.ButtonTextColor, &t.ButtonHoverBgColor, &t.BuyNowBgColor,
		&t.BuyNowTextColor, &t.BuyNowHoverBgColor, &t.BuyNowHoverText, &t.IsActive,
	)
	return t, err
}

func scanHero(row pgx.CollectableRow) (site.Hero, error) {
	var h site.Hero
	err := row.Scan(&h.ID, &h.Title, &h.Subtitle, &h.ImageURL, &h.CTAText, &h.CTALink, &h.IsActive)
	return h, err
}
