package importer

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"shopsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
		ok   bool
	}{
		{"list and sale pair takes first", "13.990 ; 8990", 13990.0, true},
		{"plain price", "8990", 8990.0, true},
		{"interior spaces stripped", "13 990", 13990.0, true},
		{"empty is zero", "", 0.0, true},
		{"non-numeric is zero", "n/a", 0.0, false},
		{"negative rejected", "-500", 0.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePrice(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestParsePartsCount(t *testing.T) {
	assert.Equal(t, 24, ParsePartsCount("24"))
	assert.Equal(t, 12, ParsePartsCount(" 12 "))
	assert.Equal(t, 0, ParsePartsCount(""))
	assert.Equal(t, 0, ParsePartsCount("sok"))
	assert.Equal(t, 0, ParsePartsCount("-3"))
}

func TestBuildCategoryPath(t *testing.T) {
	assert.Equal(t, "A/B", BuildCategoryPath("A", "", "B"))
	assert.Equal(t, "A", BuildCategoryPath("A", "", ""))
	assert.Equal(t, "", BuildCategoryPath("", "", ""))
	assert.Equal(t, "Természet/Virágok/Rózsák", BuildCategoryPath("Természet", "Virágok", "Rózsák"))
}

// buildWorkbook writes an in-memory xlsx with the given rows.
func buildWorkbook(t *testing.T, rows [][]string) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestReadNormalizesRows(t *testing.T) {
	buf := buildWorkbook(t, [][]string{
		{"Termék kód", "Terméknév", "Kategória", "Kategória 2", "Kategória 3", "Méret (cm)", "Részek száma", "Szín", "Anyag", "Vastagság", "Ár", "Ismeretlen"},
		{"SKU001", "Falmatrica", "Természet", "Virágok", "", "50x70", "3", "fekete", "vinyl", "2mm", "13.990 ; 8990", "ignored"},
		{"", "No code row", "X", "", "", "", "", "", "", "", "100"},
		{"SKU002", "Óriás matrica", "Gyerek", "", "Mesék", "", "rossz", "", "", "", "rossz ár"},
	})

	imp := New(DefaultVocabulary())
	products, stats, err := imp.Read(buf)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, 2, stats.Imported)
	assert.Equal(t, 1, stats.Skipped)
	require.Len(t, products, 2)

	first := products[0]
	assert.Equal(t, "SKU001", first.SKU)
	assert.Equal(t, "Falmatrica", first.Name)
	assert.Equal(t, "Természet/Virágok", first.CategoryPath)
	assert.Equal(t, 3, first.PartsCount)
	assert.Equal(t, 13990.0, first.Price)
	assert.True(t, first.IsActive)

	second := products[1]
	assert.Equal(t, "Gyerek/Mesék", second.CategoryPath)
	assert.Equal(t, 0, second.PartsCount)
	assert.Equal(t, 0.0, second.Price)
}

func TestReadMissingRecognizedColumns(t *testing.T) {
	// Only the product code column exists; everything else defaults.
	buf := buildWorkbook(t, [][]string{
		{"Termék kód"},
		{"SKU003"},
	})

	imp := New(DefaultVocabulary())
	products, stats, err := imp.Read(buf)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 1, stats.Imported)
	assert.Equal(t, "", products[0].Name)
	assert.Equal(t, 0.0, products[0].Price)
	assert.Equal(t, "", products[0].CategoryPath)
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "staging", "products.csv")

	products := []models.Product{
		{SKU: "SKU001", Name: "Falmatrica", CategoryPath: "Természet/Virágok", PartsCount: 3, Price: 13990},
	}
	require.NoError(t, ExportCSV(path, products))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, stagingHeader, rows[0])
	assert.Equal(t, "SKU001", rows[1][0])
	assert.Equal(t, "13990", rows[1][8])
}
