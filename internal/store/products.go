package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"shopsync/internal/models"
)

// flagColumns is the set of status fields UpdateProductFlags may touch.
// Anything else is rejected before any SQL is built.
var flagColumns = map[string]bool{
	"is_active":       true,
	"is_uploaded":     true,
	"has_image":       true,
	"has_description": true,
}

// UpsertProduct inserts the record or, when the SKU already exists,
// replaces the importer-owned descriptive columns only. Asset flags,
// lifecycle flags and created_at survive a re-import.
func (s *Store) UpsertProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (sku, product_name, category_path, size_cm, parts_count,
			color, material, thickness, price, last_modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (sku) DO UPDATE SET
			product_name = EXCLUDED.product_name,
			category_path = EXCLUDED.category_path,
			size_cm = EXCLUDED.size_cm,
			parts_count = EXCLUDED.parts_count,
			color = EXCLUDED.color,
			material = EXCLUDED.material,
			thickness = EXCLUDED.thickness,
			price = EXCLUDED.price,
			last_modified_at = NOW()
		RETURNING id, created_at, last_modified_at`

	return s.db.GetContext(ctx, p, query,
		p.SKU, p.Name, p.CategoryPath, p.SizeCM, p.PartsCount,
		p.Color, p.Material, p.Thickness, p.Price)
}

// GetProductBySKU retrieves a product by SKU
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE sku = $1", sku)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %s", sku)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListOptions filters ListProducts.
type ListOptions struct {
	ActiveOnly         bool
	UploadEligibleOnly bool
}

// ListProducts retrieves products ordered by (category_path, product_name).
// UploadEligibleOnly additionally requires both an image and a description.
func (s *Store) ListProducts(ctx context.Context, opts ListOptions) ([]models.Product, error) {
	query := "SELECT * FROM products"
	var where []string
	if opts.ActiveOnly || opts.UploadEligibleOnly {
		where = append(where, "is_active = TRUE")
	}
	if opts.UploadEligibleOnly {
		where = append(where, "has_image = TRUE", "has_description = TRUE")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY category_path, product_name"

	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products, query)
	return products, err
}

// UpdateProductFlags updates a subset of the known status fields. Unknown
// field names are rejected; an unknown SKU is not an error, it just reports
// zero rows affected.
func (s *Store) UpdateProductFlags(ctx context.Context, sku string, fields map[string]interface{}) (bool, error) {
	if len(fields) == 0 {
		return false, fmt.Errorf("no fields to update")
	}

	setClauses := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+1)

	for field, value := range fields {
		if !flagColumns[field] {
			return false, fmt.Errorf("unknown flag field: %s", field)
		}
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field, len(args)))
	}
	setClauses = append(setClauses, "last_modified_at = NOW()")

	args = append(args, sku)
	query := fmt.Sprintf("UPDATE products SET %s WHERE sku = $%d",
		strings.Join(setClauses, ", "), len(args))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// AssetState is the reconciler's view of one product folder.
type AssetState struct {
	HasImage            bool
	HasDescription      bool
	MainImageFilename   string
	ExtraImageFilenames models.StringSlice
	DescriptionFilename string
}

// UpdateAssetState writes the filesystem reconciler's findings for one SKU
// and stamps last_checked_at. Only the reconciler-owned columns change.
func (s *Store) UpdateAssetState(ctx context.Context, sku string, state AssetState) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET has_image = $1, has_description = $2, main_image_filename = $3,
			extra_image_filenames = $4, description_filename = $5,
			last_checked_at = NOW(), last_modified_at = NOW()
		WHERE sku = $6`,
		state.HasImage, state.HasDescription, state.MainImageFilename,
		state.ExtraImageFilenames, state.DescriptionFilename, sku)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkUploaded sets is_uploaded after a verified successful upload.
func (s *Store) MarkUploaded(ctx context.Context, sku string) (bool, error) {
	return s.UpdateProductFlags(ctx, sku, map[string]interface{}{"is_uploaded": true})
}

// Stats returns aggregate catalog counts in a single query.
func (s *Store) Stats(ctx context.Context) (*models.CatalogStats, error) {
	var stats models.CatalogStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total_products,
			COUNT(*) FILTER (WHERE is_active) AS active_products,
			COUNT(*) FILTER (WHERE has_image) AS with_images,
			COUNT(*) FILTER (WHERE has_description) AS with_descriptions,
			COUNT(*) FILTER (WHERE is_uploaded) AS uploaded,
			COUNT(DISTINCT category_path) FILTER (WHERE category_path <> '') AS categories
		FROM products`)
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog stats: %w", err)
	}
	return &stats, nil
}
