package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopsync/config"
	"shopsync/internal/broker"
	"shopsync/internal/browser"
	"shopsync/internal/models"
	"shopsync/internal/redisclient"
	"shopsync/internal/store"
	"shopsync/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadSession is the slice of the automation session the orchestrator
// drives. The concrete *browser.Session satisfies it; tests use a fake.
type UploadSession interface {
	State() browser.State
	OpenProductForm(ctx context.Context, url string) error
	FillProductForm(ctx context.Context, p *models.Product, assetsRoot string) error
	SubmitProductForm(ctx context.Context) error
	VerifySubmission(ctx context.Context) error
	FetchListings(ctx context.Context, listingURL string) ([]models.RemoteListing, error)
}

// FlagStore is the slice of the record store the orchestrator writes
// through after verified uploads.
type FlagStore interface {
	ListProducts(ctx context.Context, opts store.ListOptions) ([]models.Product, error)
	MarkUploaded(ctx context.Context, sku string) (bool, error)
}

// UploadOptions carries the site endpoints and batch policy knobs.
type UploadOptions struct {
	Site       config.SiteConfig
	AssetsRoot string
	ItemPause  time.Duration
	LockTTL    time.Duration
	CacheTTL   time.Duration
}

// UploadService iterates eligible records against a single authenticated
// session. One item's failure never aborts the batch; every outcome is
// returned as data.
type UploadService struct {
	store          FlagStore
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	opts           UploadOptions
	logger         *zap.Logger
}

// NewUploadService creates a new upload orchestrator. redis and
// eventPublisher may be nil when those backends are not configured.
func NewUploadService(
	flagStore FlagStore,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	opts UploadOptions,
) *UploadService {
	return &UploadService{
		store:          flagStore,
		redis:          redis,
		eventPublisher: eventPublisher,
		opts:           opts,
		logger:         util.GetLogger(),
	}
}

// EligibleProducts returns the active records that have both an image and
// a description.
func (s *UploadService) EligibleProducts(ctx context.Context) ([]models.Product, error) {
	return s.store.ListProducts(ctx, store.ListOptions{UploadEligibleOnly: true})
}

// UploadBatch uploads the given records one at a time. The session must be
// Authenticated; otherwise a zero-attempt result is returned before any
// remote interaction. Cancelling ctx stops the batch after the current
// item completes.
func (s *UploadService) UploadBatch(ctx context.Context, session UploadSession, records []models.Product) *models.BatchResult {
	ctx, span := util.StartSpan(ctx, "UploadService.UploadBatch")
	defer span.End()

	result := &models.BatchResult{}

	if state := session.State(); state != browser.StateAuthenticated {
		result.AddFailure("", fmt.Sprintf("session is %s, not authenticated; no items attempted", state))
		return result
	}

	release, ok := s.acquireLock(ctx, result)
	if !ok {
		return result
	}
	defer release()

	start := time.Now()
	defer func() {
		util.UploadBatchLatency.Observe(time.Since(start).Seconds())
	}()

	for i := range records {
		if ctx.Err() != nil {
			s.logger.Warn("Batch cancelled, stopping after current item",
				zap.Int("attempted", result.Attempted),
				zap.Int("remaining", len(records)-i))
			break
		}

		record := &records[i]
		result.Attempted++

		if err := s.uploadOne(ctx, session, record); err != nil {
			result.AddFailure(record.SKU, err.Error())
			util.UploadsFailedTotal.WithLabelValues(failureReason(err)).Inc()
			s.logger.Error("Product upload failed",
				zap.String("sku", record.SKU),
				zap.Error(err))
		} else {
			result.Succeeded++
			util.UploadsSucceededTotal.Inc()
			s.markUploaded(ctx, record)
		}

		if i < len(records)-1 {
			s.pause(ctx)
		}
	}

	s.publishBatchCompleted(ctx, result)

	s.logger.Info("Upload batch finished",
		zap.Int("attempted", result.Attempted),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))

	return result
}

// uploadOne drives a single product through the admin form: open, fill,
// submit, verify. Each step's failure is isolated to this item.
func (s *UploadService) uploadOne(ctx context.Context, session UploadSession, record *models.Product) error {
	start := time.Now()
	defer func() {
		util.UploadItemLatency.Observe(time.Since(start).Seconds())
	}()

	if err := session.OpenProductForm(ctx, s.opts.Site.ProductNewURL); err != nil {
		return fmt.Errorf("open product form: %w", err)
	}
	if err := session.FillProductForm(ctx, record, s.opts.AssetsRoot); err != nil {
		return fmt.Errorf("fill product form: %w", err)
	}
	if err := session.SubmitProductForm(ctx); err != nil {
		return fmt.Errorf("submit product form: %w", err)
	}
	if err := session.VerifySubmission(ctx); err != nil {
		return fmt.Errorf("verify submission: %w", err)
	}
	return nil
}

func (s *UploadService) markUploaded(ctx context.Context, record *models.Product) {
	if _, err := s.store.MarkUploaded(ctx, record.SKU); err != nil {
		s.logger.Error("Failed to mark product uploaded",
			zap.String("sku", record.SKU),
			zap.Error(err))
	}

	if s.eventPublisher != nil {
		event := &models.ProductUploadedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeProductUploaded,
				Timestamp: time.Now(),
			},
			SKU:  record.SKU,
			Name: record.Name,
		}
		if err := s.eventPublisher.PublishProductUploaded(ctx, event); err != nil {
			s.logger.Error("Failed to publish ProductUploaded event", zap.Error(err))
		}
	}
}

// DownloadCatalog pulls the remote listing snapshots. The session must be
// Authenticated. An empty listing page is an empty slice; an unreachable
// page is an error.
func (s *UploadService) DownloadCatalog(ctx context.Context, session UploadSession) ([]models.RemoteListing, error) {
	ctx, span := util.StartSpan(ctx, "UploadService.DownloadCatalog")
	defer span.End()

	if state := session.State(); state != browser.StateAuthenticated {
		return nil, fmt.Errorf("session is %s: %w", state, browser.ErrNotAuthenticated)
	}

	listings, err := session.FetchListings(ctx, s.opts.Site.ListingURL)
	if err != nil {
		return nil, err
	}

	util.DownloadsTotal.Inc()
	util.RemoteListingsFetched.Add(float64(len(listings)))

	if s.redis != nil {
		if err := s.redis.CacheListings(ctx, listings, s.opts.CacheTTL); err != nil {
			s.logger.Warn("Failed to cache remote listings", zap.Error(err))
		}
	}

	if s.eventPublisher != nil {
		event := &models.CatalogDownloadedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeCatalogDownloaded,
				Timestamp: time.Now(),
			},
			Listings: len(listings),
		}
		if err := s.eventPublisher.PublishCatalogDownloaded(ctx, event); err != nil {
			s.logger.Error("Failed to publish CatalogDownloaded event", zap.Error(err))
		}
	}

	return listings, nil
}

// CachedListings serves the last downloaded snapshot from Redis.
func (s *UploadService) CachedListings(ctx context.Context) ([]models.RemoteListing, error) {
	if s.redis == nil {
		return nil, nil
	}
	return s.redis.GetCachedListings(ctx)
}

// acquireLock takes the cross-replica batch lock. Without Redis the
// in-process session mutex is the only guard.
func (s *UploadService) acquireLock(ctx context.Context, result *models.BatchResult) (func(), bool) {
	if s.redis == nil {
		return func() {}, true
	}

	owner := uuid.New().String()
	ok, err := s.redis.AcquireBatchLock(ctx, owner, s.opts.LockTTL)
	if err != nil {
		result.AddFailure("", fmt.Sprintf("could not acquire batch lock: %v", err))
		return nil, false
	}
	if !ok {
		result.AddFailure("", "another batch currently holds the session lock")
		return nil, false
	}

	return func() {
		if err := s.redis.ReleaseBatchLock(context.Background(), owner); err != nil {
			s.logger.Error("Failed to release batch lock", zap.Error(err))
		}
	}, true
}

func (s *UploadService) pause(ctx context.Context) {
	if s.opts.ItemPause <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(s.opts.ItemPause):
	}
}

func (s *UploadService) publishBatchCompleted(ctx context.Context, result *models.BatchResult) {
	if s.eventPublisher == nil {
		return
	}
	event := &models.UploadBatchCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeUploadBatchCompleted,
			Timestamp: time.Now(),
		},
		Attempted: result.Attempted,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Failures:  result.Failures,
	}
	if err := s.eventPublisher.PublishUploadBatchCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish UploadBatchCompleted event", zap.Error(err))
	}
}

// failureReason buckets an item failure for metrics.
func failureReason(err error) string {
	switch {
	case errors.Is(err, browser.ErrSelectorExhausted):
		return "selector_exhausted"
	case errors.Is(err, browser.ErrVerifyFailed):
		return "verify_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "other"
	}
}
