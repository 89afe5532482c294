package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foxyglamour/storefront/internal/domain/catalog"
)

const productColumns = `p.id, p.category_id, p.name, p.slug, p.description, p.price, p.cost_price,
	p.stock, p.discount_percentage, p.discount_amount, p.is_available, p.metal_type,
	p.gemstone, p.weight_grams, p.is_adjustable, p.image, p.created, p.updated,
	ARRAY(SELECT s.code FROM product_sizes ps JOIN sizes s ON s.id = ps.size_id
		WHERE ps.product_id = p.id ORDER BY s.id),
	ARRAY(SELECT c.code FROM product_colors pc JOIN colors c ON c.id = pc.color_id
		WHERE pc.product_id = p.id ORDER BY c.id)`

const (
	listCategoriesSQL = `SELECT id, parent_id, name, slug FROM categories ORDER BY name`

	getCategoryBySlugSQL = `SELECT id, parent_id, name, slug FROM categories WHERE slug = $1`

	listProductsSQL = `SELECT ` + productColumns + `
		FROM products p
		WHERE ($1::text = '' OR p.category_id = (SELECT id FROM categories WHERE slug = $1))
		  AND ($2::text = '' OR p.name ILIKE '%' || $2 || '%'
			OR p.description ILIKE '%' || $2 || '%'
			OR p.metal_type ILIKE '%' || $2 || '%'
			OR p.gemstone ILIKE '%' || $2 || '%')
		  AND ($3::bool OR p.is_available)
		ORDER BY p.name, p.id
		LIMIT NULLIF($4::int, 0) OFFSET $5`

	getProductSQL = `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products p WHERE p.id = ANY($1) ORDER BY p.id`

	listVariantsSQL = `SELECT id, product_id, size_code, color_code, stock
		FROM product_variants WHERE product_id = ANY($1) ORDER BY id`

	sizesByCodesSQL = `SELECT id, name, code FROM sizes WHERE code = ANY($1)`

	colorsByCodesSQL = `SELECT id, name, code, hex FROM colors WHERE code = ANY($1)`

	setStockSQL = `UPDATE products SET stock = $2, updated = now() WHERE id = $1`

	upsertVariantSQL = `INSERT INTO product_variants (product_id, size_code, color_code, stock)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, size_code, color_code) DO UPDATE SET stock = EXCLUDED.stock
		RETURNING id, product_id, size_code, color_code, stock`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// ListCategories returns all categories ordered by name.
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, scanCategory)
}

// GetCategoryBySlug returns the category with the given slug.
func (r *CatalogRepository) GetCategoryBySlug(ctx context.Context, slug string) (*catalog.Category, error) {
	rows, err := r.pool.Query(ctx, getCategoryBySlugSQL, slug)
	if err != nil {
		return nil, fmt.Errorf("getting category %q: %w", slug, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting category %q: %w", slug, err)
	}
	return &c, nil
}

// ListProducts returns products matching the filter ordered by name.
func (r *CatalogRepository) ListProducts(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL,
		f.CategorySlug, f.Query, f.IncludeUnavailable, f.Limit, f.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetProduct returns a single product regardless of availability.
func (r *CatalogRepository) GetProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	return getProduct(ctx, r.pool, getProductSQL, id)
}

func getProduct(ctx context.Context, q querier, sql string, id int64) (*catalog.Product, error) {
	rows, err := q.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// GetProductsByIDs returns the products that exist among ids.
func (r *CatalogRepository) GetProductsByIDs(ctx context.Context, ids []int64) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListVariants returns the variants of the given products.
func (r *CatalogRepository) ListVariants(ctx context.Context, productIDs []int64) ([]catalog.Variant, error) {
	return listVariants(ctx, r.pool, listVariantsSQL, productIDs)
}

func listVariants(ctx context.Context, q querier, sql string, productIDs []int64) ([]catalog.Variant, error) {
	rows, err := q.Query(ctx, sql, productIDs)
	if err != nil {
		return nil, fmt.Errorf("listing variants: %w", err)
	}
	return pgx.CollectRows(rows, scanVariant)
}

// SizesByCodes returns the sizes with the given codes.
func (r *CatalogRepository) SizesByCodes(ctx context.Context, codes []string) ([]catalog.Size, error) {
	rows, err := r.pool.Query(ctx, sizesByCodesSQL, codes)
	if err != nil {
		return nil, fmt.Errorf("getting sizes: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Size, error) {
		var s catalog.Size
		err := row.Scan(&s.ID, &s.Name, &s.Code)
		return s, err
	})
}

// ColorsByCodes returns the colors with the given codes.
func (r *CatalogRepository) ColorsByCodes(ctx context.Context, codes []string) ([]catalog.Color, error) {
	rows, err := r.pool.Query(ctx, colorsByCodesSQL, codes)
	if err != nil {
		return nil, fmt.Errorf("getting colors: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Color, error) {
		var c catalog.Color
		err := row.Scan(&c.ID, &c.Name, &c.Code, &c.Hex)
		return c, err
	})
}

// SetStock overwrites product-level stock.
func (r *CatalogRepository) SetStock(ctx context.Context, productID int64, stock int) error {
	tag, err := r.pool.Exec(ctx, setStockSQL, productID, stock)
	if err != nil {
		return fmt.Errorf("setting stock for product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// UpsertVariant creates or updates the variant for its size/color pair.
func (r *CatalogRepository) UpsertVariant(ctx context.Context, v catalog.Variant) (*catalog.Variant, error) {
	rows, err := r.pool.Query(ctx, upsertVariantSQL, v.ProductID, v.SizeCode, v.ColorCode, v.Stock)
	if err != nil {
		return nil, fmt.Errorf("upserting variant for product %d: %w", v.ProductID, err)
	}
	out, err := pgx.CollectExactlyOneRow(rows, scanVariant)
	if err != nil {
		return nil, fmt.Errorf("upserting variant for product %d: %w", v.ProductID, err)
	}
	return &out, nil
}

func scanCategory(row pgx.CollectableRow) (catalog.Category, error) {
	var c catalog.Category
	err := row.Scan(&c.ID, &c.ParentID, &c.Name, &c.Slug)
	return c, err
}

func scanVariant(row pgx.CollectableRow) (catalog.Variant, error) {
	var v catalog.Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.SizeCode, &v.ColorCode, &v.Stock)
	return v, err
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.CostPrice,
		&p.Stock, &p.DiscountPercentage, &p.DiscountAmount, &p.IsAvailable, &p.MetalType,
		&p.Gemstone, &p.WeightGrams, &p.IsAdjustable, &p.Image, &p.Created, &p.Updated,
		&p.SizeCodes, &p.ColorCodes,
	)
	return p, err
}
