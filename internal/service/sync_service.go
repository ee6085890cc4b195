package service

import (
	"context"
	"fmt"
	"time"

	"shopsync/config"
	"shopsync/internal/broker"
	"shopsync/internal/fsync"
	"shopsync/internal/importer"
	"shopsync/internal/models"
	"shopsync/internal/store"
	"shopsync/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SyncService runs the local side of the pipeline: spreadsheet import,
// record-store upsert, CSV staging export and filesystem reconciliation.
type SyncService struct {
	store          *store.Store
	importer       *importer.Importer
	reconciler     *fsync.Reconciler
	eventPublisher *broker.EventPublisher
	files          config.FilesConfig
	logger         *zap.Logger
}

// NewSyncService creates a new sync service. eventPublisher may be nil when
// no broker is configured.
func NewSyncService(
	st *store.Store,
	imp *importer.Importer,
	reconciler *fsync.Reconciler,
	eventPublisher *broker.EventPublisher,
	files config.FilesConfig,
) *SyncService {
	return &SyncService{
		store:          st,
		importer:       imp,
		reconciler:     reconciler,
		eventPublisher: eventPublisher,
		files:          files,
		logger:         util.GetLogger(),
	}
}

// SyncCatalog runs one full sync pass. Per-row problems are defaulted and
// counted; only source-level failures (unreadable spreadsheet, dead
// database) abort the pass.
func (s *SyncService) SyncCatalog(ctx context.Context, spreadsheetPath string) (*models.SyncReport, error) {
	ctx, span := util.StartSpan(ctx, "SyncService.SyncCatalog")
	defer span.End()

	if spreadsheetPath == "" {
		spreadsheetPath = s.files.SpreadsheetPath
	}

	products, importStats, err := s.importer.ReadFile(spreadsheetPath)
	if err != nil {
		return nil, fmt.Errorf("spreadsheet import failed: %w", err)
	}

	for i := range products {
		if err := s.store.UpsertProduct(ctx, &products[i]); err != nil {
			importStats.Errors++
			importStats.Imported--
			s.logger.Error("Failed to upsert product",
				zap.String("sku", products[i].SKU),
				zap.Error(err))
		}
	}

	util.ProductsImportedTotal.Add(float64(importStats.Imported))
	util.ProductsSkippedTotal.Add(float64(importStats.Skipped))
	util.ImportErrorsTotal.Add(float64(importStats.Errors))

	s.logger.Info("Spreadsheet imported",
		zap.Int("rows", importStats.Rows),
		zap.Int("imported", importStats.Imported),
		zap.Int("skipped", importStats.Skipped),
		zap.Int("errors", importStats.Errors))

	// The staging dump is an audit artifact; failing to write it does not
	// abort the sync.
	if s.files.StagingCSVPath != "" {
		if err := importer.ExportCSV(s.files.StagingCSVPath, products); err != nil {
			s.logger.Warn("Failed to write CSV staging dump", zap.Error(err))
		}
	}

	scanStats, err := s.reconciler.Scan(ctx, s.files.ProductsRoot)
	if err != nil {
		return nil, fmt.Errorf("filesystem reconciliation failed: %w", err)
	}
	util.FilesystemScansTotal.Inc()
	util.AssetsFoundTotal.WithLabelValues("image").Add(float64(scanStats.Images))
	util.AssetsFoundTotal.WithLabelValues("description").Add(float64(scanStats.Descriptions))

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog stats: %w", err)
	}

	report := &models.SyncReport{
		Import: importStats,
		Scan:   scanStats,
		Stats:  *stats,
	}

	if s.eventPublisher != nil {
		event := &models.CatalogSyncedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeCatalogSynced,
				Timestamp: time.Now(),
			},
			Import: importStats,
			Scan:   scanStats,
		}
		if err := s.eventPublisher.PublishCatalogSynced(ctx, event); err != nil {
			s.logger.Error("Failed to publish CatalogSynced event", zap.Error(err))
		}
	}

	return report, nil
}

// Stats returns the current catalog aggregates.
func (s *SyncService) Stats(ctx context.Context) (*models.CatalogStats, error) {
	return s.store.Stats(ctx)
}

// Products lists catalog records.
func (s *SyncService) Products(ctx context.Context, opts store.ListOptions) ([]models.Product, error) {
	return s.store.ListProducts(ctx, opts)
}

// Product fetches one record by SKU.
func (s *SyncService) Product(ctx context.Context, sku string) (*models.Product, error) {
	return s.store.GetProductBySKU(ctx, sku)
}

// UpdateFlags updates a whitelisted subset of status fields on one record.
func (s *SyncService) UpdateFlags(ctx context.Context, sku string, fields map[string]interface{}) (bool, error) {
	return s.store.UpdateProductFlags(ctx, sku, fields)
}
