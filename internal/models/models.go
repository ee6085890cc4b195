package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringSlice stores an ordered list of filenames as a JSON column.
type StringSlice []string

// Value implements driver.Valuer.
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *StringSlice) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported type for StringSlice: %T", src)
	}
}

// Product represents one catalog entry, keyed by SKU.
//
// Descriptive fields are owned by the spreadsheet importer, asset flags by
// the filesystem reconciler, and is_uploaded by the upload orchestrator.
type Product struct {
	ID                  int64       `db:"id" json:"id"`
	SKU                 string      `db:"sku" json:"sku"`
	Name                string      `db:"product_name" json:"name"`
	CategoryPath        string      `db:"category_path" json:"category_path"`
	SizeCM              string      `db:"size_cm" json:"size_cm"`
	PartsCount          int         `db:"parts_count" json:"parts_count"`
	Color               string      `db:"color" json:"color"`
	Material            string      `db:"material" json:"material"`
	Thickness           string      `db:"thickness" json:"thickness"`
	Price               float64     `db:"price" json:"price"`
	MainImageFilename   string      `db:"main_image_filename" json:"main_image_filename"`
	ExtraImageFilenames StringSlice `db:"extra_image_filenames" json:"extra_image_filenames"`
	DescriptionFilename string      `db:"description_filename" json:"description_filename"`
	HasImage            bool        `db:"has_image" json:"has_image"`
	HasDescription      bool        `db:"has_description" json:"has_description"`
	IsUploaded          bool        `db:"is_uploaded" json:"is_uploaded"`
	IsActive            bool        `db:"is_active" json:"is_active"`
	LastCheckedAt       *time.Time  `db:"last_checked_at" json:"last_checked_at,omitempty"`
	LastModifiedAt      time.Time   `db:"last_modified_at" json:"last_modified_at"`
	CreatedAt           time.Time   `db:"created_at" json:"created_at"`
}

// UploadEligible reports whether the product qualifies for an upload batch.
func (p *Product) UploadEligible() bool {
	return p.IsActive && p.HasImage && p.HasDescription
}

// RemoteListing is a lightweight snapshot of one product as the remote
// admin site currently lists it.
type RemoteListing struct {
	SKU    string `json:"sku"`
	Name   string `json:"name"`
	Price  string `json:"price"`
	Status string `json:"status"`
}

// BatchFailure records one failed item in a batch operation.
type BatchFailure struct {
	SKU    string `json:"sku"`
	Reason string `json:"reason"`
}

// BatchResult aggregates the outcome of a multi-item operation. It is
// always returned to the caller, even when every item failed.
type BatchResult struct {
	Attempted int            `json:"attempted"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Failures  []BatchFailure `json:"failures"`
}

// AddFailure appends one failure and bumps the counter.
func (r *BatchResult) AddFailure(sku, reason string) {
	r.Failed++
	r.Failures = append(r.Failures, BatchFailure{SKU: sku, Reason: reason})
}

// CatalogStats holds operator-facing aggregate counts.
type CatalogStats struct {
	TotalProducts    int `db:"total_products" json:"total_products"`
	ActiveProducts   int `db:"active_products" json:"active_products"`
	WithImages       int `db:"with_images" json:"with_images"`
	WithDescriptions int `db:"with_descriptions" json:"with_descriptions"`
	Uploaded         int `db:"uploaded" json:"uploaded"`
	Categories       int `db:"categories" json:"categories"`
}

// ImportStats summarizes one spreadsheet import pass.
type ImportStats struct {
	Rows     int `json:"rows"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// ScanStats summarizes one filesystem reconciliation pass.
type ScanStats struct {
	Images       int `json:"images"`
	Descriptions int `json:"descriptions"`
	Updated      int `json:"updated"`
}

// SyncReport is the combined result of a full catalog sync
// (spreadsheet import + staging export + filesystem reconcile).
type SyncReport struct {
	Import ImportStats  `json:"import"`
	Scan   ScanStats    `json:"scan"`
	Stats  CatalogStats `json:"stats"`
}
