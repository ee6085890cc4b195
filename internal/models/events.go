package models

import "time"

// Event types
const (
	EventTypeCatalogSynced        = "CATALOG_SYNCED"
	EventTypeProductUploaded      = "PRODUCT_UPLOADED"
	EventTypeUploadBatchCompleted = "UPLOAD_BATCH_COMPLETED"
	EventTypeCatalogDownloaded    = "CATALOG_DOWNLOADED"

	CommandTypeSyncRequested   = "SYNC_REQUESTED"
	CommandTypeUploadRequested = "UPLOAD_REQUESTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CatalogSyncedEvent published after a full catalog sync pass
type CatalogSyncedEvent struct {
	BaseEvent
	Import ImportStats `json:"import"`
	Scan   ScanStats   `json:"scan"`
}

// ProductUploadedEvent published per product after a verified upload
type ProductUploadedEvent struct {
	BaseEvent
	SKU  string `json:"sku"`
	Name string `json:"name"`
}

// UploadBatchCompletedEvent published once per finished upload batch
type UploadBatchCompletedEvent struct {
	BaseEvent
	Attempted int            `json:"attempted"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Failures  []BatchFailure `json:"failures"`
}

// CatalogDownloadedEvent published after pulling the remote listing page
type CatalogDownloadedEvent struct {
	BaseEvent
	Listings int `json:"listings"`
}

// SyncRequestedCommand asks the worker to run a full catalog sync
type SyncRequestedCommand struct {
	BaseEvent
	SpreadsheetPath string `json:"spreadsheet_path,omitempty"`
}

// UploadRequestedCommand asks the worker to upload eligible products
type UploadRequestedCommand struct {
	BaseEvent
	SKUs []string `json:"skus,omitempty"`
}
