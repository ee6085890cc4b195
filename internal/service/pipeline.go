package service

import (
	"context"
	"fmt"

	"shopsync/config"
	"shopsync/internal/browser"
	"shopsync/internal/models"
	"shopsync/internal/util"

	"go.uber.org/zap"
)

// Pipeline ties the two halves together: the local sync side and the
// remote automation side. It owns the one browser session and walks it
// through connect/authenticate/close around every remote run, so callers
// (HTTP handlers, the command worker) never touch session lifecycle.
type Pipeline struct {
	syncService   *SyncService
	uploadService *UploadService
	session       *browser.Session
	creds         browser.Credentials
	site          config.SiteConfig
	logger        *zap.Logger
}

// NewPipeline creates the pipeline facade.
func NewPipeline(
	syncService *SyncService,
	uploadService *UploadService,
	session *browser.Session,
	site config.SiteConfig,
) *Pipeline {
	return &Pipeline{
		syncService:   syncService,
		uploadService: uploadService,
		session:       session,
		creds:         browser.Credentials{Username: site.Username, Password: site.Password},
		site:          site,
		logger:        util.GetLogger(),
	}
}

// Sync returns the local-side service for catalog reads and sync runs.
func (p *Pipeline) Sync() *SyncService { return p.syncService }

// Upload returns the remote-side orchestrator.
func (p *Pipeline) Upload() *UploadService { return p.uploadService }

// RunSync runs one full local sync pass.
func (p *Pipeline) RunSync(ctx context.Context, spreadsheetPath string) (*models.SyncReport, error) {
	return p.syncService.SyncCatalog(ctx, spreadsheetPath)
}

// RunUpload uploads eligible products, restricted to the given SKUs when
// the list is non-empty. The session is connected and authenticated for
// the duration of the batch and torn down afterwards.
func (p *Pipeline) RunUpload(ctx context.Context, skus []string) (*models.BatchResult, error) {
	records, err := p.uploadService.EligibleProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible products: %w", err)
	}
	records = filterBySKU(records, skus)

	if len(records) == 0 {
		p.logger.Info("No eligible products to upload")
		return &models.BatchResult{}, nil
	}

	var result *models.BatchResult
	err = p.withSession(ctx, func(session *browser.Session) error {
		result = p.uploadService.UploadBatch(ctx, session, records)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RunDownload pulls the remote listing snapshots under a fresh
// authenticated session.
func (p *Pipeline) RunDownload(ctx context.Context) ([]models.RemoteListing, error) {
	var listings []models.RemoteListing
	err := p.withSession(ctx, func(session *browser.Session) error {
		var derr error
		listings, derr = p.uploadService.DownloadCatalog(ctx, session)
		return derr
	})
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// SessionStatus reports the current session lifecycle state.
func (p *Pipeline) SessionStatus(ctx context.Context) browser.Status {
	return p.session.Status(ctx)
}

// Screenshot captures the current page, usable while a batch is running.
func (p *Pipeline) Screenshot(ctx context.Context, path string) error {
	return p.session.Screenshot(ctx, path)
}

// withSession runs fn against a connected, authenticated session and
// always tears the session back down to Disconnected.
func (p *Pipeline) withSession(ctx context.Context, fn func(*browser.Session) error) error {
	if err := p.session.Connect(ctx); err != nil {
		return fmt.Errorf("failed to open browser session: %w", err)
	}
	defer func() {
		if err := p.session.Close(); err != nil {
			p.logger.Error("Failed to close browser session", zap.Error(err))
		}
	}()

	if err := p.session.Authenticate(ctx, p.creds, p.site.LoginURL); err != nil {
		util.SessionAuthFailures.Inc()
		return fmt.Errorf("authentication failed: %w", err)
	}

	return fn(p.session)
}

func filterBySKU(records []models.Product, skus []string) []models.Product {
	if len(skus) == 0 {
		return records
	}
	wanted := make(map[string]bool, len(skus))
	for _, sku := range skus {
		wanted[sku] = true
	}
	filtered := records[:0]
	for _, r := range records {
		if wanted[r.SKU] {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
