package importer

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"shopsync/internal/models"
	"shopsync/internal/util"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// CategorySeparator joins the non-empty category levels into a path string.
const CategorySeparator = "/"

// Vocabulary maps the localized spreadsheet column names to product fields.
// Column names are matched case-sensitively after trimming whitespace, so a
// new locale is a data change, not a code change.
type Vocabulary struct {
	SKU        string
	Name       string
	Category1  string
	Category2  string
	Category3  string
	Size       string
	PartsCount string
	Color      string
	Material   string
	Thickness  string
	Price      string
}

// DefaultVocabulary returns the Hungarian column set the source
// spreadsheets use.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		SKU:        "Termék kód",
		Name:       "Terméknév",
		Category1:  "Kategória",
		Category2:  "Kategória 2",
		Category3:  "Kategória 3",
		Size:       "Méret (cm)",
		PartsCount: "Részek száma",
		Color:      "Szín",
		Material:   "Anyag",
		Thickness:  "Vastagság",
		Price:      "Ár",
	}
}

// Importer turns a tabular spreadsheet into normalized product records.
// It is a pure transform: no side effects beyond the returned slice,
// stats and log lines.
type Importer struct {
	vocab  Vocabulary
	logger *zap.Logger
}

// New creates an importer for the given column vocabulary.
func New(vocab Vocabulary) *Importer {
	return &Importer{
		vocab:  vocab,
		logger: util.GetLogger(),
	}
}

// ReadFile opens the workbook at path and normalizes its first sheet.
func (imp *Importer) ReadFile(path string) ([]models.Product, models.ImportStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.ImportStats{}, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()
	return imp.Read(f)
}

// Read normalizes the first sheet of the workbook. Rows with a blank
// product code are skipped silently; malformed cells are defaulted and
// logged, never fatal.
func (imp *Importer) Read(r io.Reader) ([]models.Product, models.ImportStats, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, models.ImportStats{}, fmt.Errorf("failed to read workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, models.ImportStats{}, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, models.ImportStats{}, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return []models.Product{}, models.ImportStats{}, nil
	}

	return imp.normalize(rows[0], rows[1:])
}

// normalize maps the header row to column indexes and converts every data
// row. Unknown columns are ignored; missing recognized columns default.
func (imp *Importer) normalize(header []string, rows [][]string) ([]models.Product, models.ImportStats, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	cell := func(row []string, column string) string {
		idx, ok := columns[column]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	stats := models.ImportStats{Rows: len(rows)}
	products := make([]models.Product, 0, len(rows))

	for _, row := range rows {
		sku := cell(row, imp.vocab.SKU)
		if sku == "" {
			stats.Skipped++
			continue
		}

		price, ok := ParsePrice(cell(row, imp.vocab.Price))
		if !ok {
			imp.logger.Warn("Could not parse price, defaulting to 0",
				zap.String("sku", sku),
				zap.String("raw", cell(row, imp.vocab.Price)))
		}

		products = append(products, models.Product{
			SKU:          sku,
			Name:         cell(row, imp.vocab.Name),
			CategoryPath: BuildCategoryPath(cell(row, imp.vocab.Category1), cell(row, imp.vocab.Category2), cell(row, imp.vocab.Category3)),
			SizeCM:       cell(row, imp.vocab.Size),
			PartsCount:   ParsePartsCount(cell(row, imp.vocab.PartsCount)),
			Color:        cell(row, imp.vocab.Color),
			Material:     cell(row, imp.vocab.Material),
			Thickness:    cell(row, imp.vocab.Thickness),
			Price:        price,
			IsActive:     true,
		})
		stats.Imported++
	}

	return products, stats, nil
}

// ParsePrice extracts the canonical price from a raw cell. The cell may
// carry a "list ; sale" pair; only the first segment counts. Interior
// spaces and thousands-separator periods are stripped before parsing.
// Failures yield 0.0 with ok=false; an empty cell is 0.0 with ok=true.
func ParsePrice(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return 0.0, true
	}

	if idx := strings.Index(cleaned, ";"); idx >= 0 {
		cleaned = strings.TrimSpace(cleaned[:idx])
	}

	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, ".", "")

	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || price < 0 {
		return 0.0, false
	}
	return price, true
}

// ParsePartsCount parses a parts-count cell; blanks and garbage become 0.
func ParsePartsCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// BuildCategoryPath joins the non-empty category levels in fixed order.
// Empty levels are omitted, so there are never stray separators.
func BuildCategoryPath(levels ...string) string {
	parts := make([]string, 0, len(levels))
	for _, level := range levels {
		if trimmed := strings.TrimSpace(level); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, CategorySeparator)
}
