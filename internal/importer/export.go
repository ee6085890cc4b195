package importer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"shopsync/internal/models"
)

// stagingHeader is the sanitized header row of the CSV staging dump.
var stagingHeader = []string{
	"sku", "product_name", "category_path", "size_cm", "parts_count",
	"color", "material", "thickness", "price",
}

// ExportCSV writes the normalized rows to a UTF-8 CSV staging file, one row
// per non-skipped source row. The dump is an auditable artifact between
// import and database sync.
func ExportCSV(path string, products []models.Product) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create staging file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(stagingHeader); err != nil {
		return fmt.Errorf("failed to write staging header: %w", err)
	}

	for _, p := range products {
		record := []string{
			p.SKU, p.Name, p.CategoryPath, p.SizeCM,
			strconv.Itoa(p.PartsCount),
			p.Color, p.Material, p.Thickness,
			strconv.FormatFloat(p.Price, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write staging row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}
