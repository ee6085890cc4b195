package service

import (
	"context"
	"errors"
	"testing"

	"shopsync/config"
	"shopsync/internal/browser"
	"shopsync/internal/models"
	"shopsync/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession scripts per-SKU failures at each upload step.
type fakeSession struct {
	state       browser.State
	verifyFails map[string]bool
	fillFails   map[string]bool
	currentSKU  string
	opened      int
	listings    []models.RemoteListing
	listingsErr error
}

func (f *fakeSession) State() browser.State { return f.state }

func (f *fakeSession) OpenProductForm(context.Context, string) error {
	f.opened++
	return nil
}

func (f *fakeSession) FillProductForm(_ context.Context, p *models.Product, _ string) error {
	f.currentSKU = p.SKU
	if f.fillFails[p.SKU] {
		return browser.ErrSelectorExhausted
	}
	return nil
}

func (f *fakeSession) SubmitProductForm(context.Context) error { return nil }

func (f *fakeSession) VerifySubmission(context.Context) error {
	if f.verifyFails[f.currentSKU] {
		return browser.ErrVerifyFailed
	}
	return nil
}

func (f *fakeSession) FetchListings(context.Context, string) ([]models.RemoteListing, error) {
	return f.listings, f.listingsErr
}

// fakeFlagStore records which SKUs were marked uploaded.
type fakeFlagStore struct {
	products []models.Product
	uploaded []string
}

func (f *fakeFlagStore) ListProducts(_ context.Context, _ store.ListOptions) ([]models.Product, error) {
	return f.products, nil
}

func (f *fakeFlagStore) MarkUploaded(_ context.Context, sku string) (bool, error) {
	f.uploaded = append(f.uploaded, sku)
	return true, nil
}

func newTestService(flagStore FlagStore) *UploadService {
	return NewUploadService(flagStore, nil, nil, UploadOptions{
		Site: config.SiteConfig{
			ProductNewURL: "https://shop.test/admin/products/new",
			ListingURL:    "https://shop.test/admin/products",
		},
		AssetsRoot: "data/products",
	})
}

func batchRecords(skus ...string) []models.Product {
	records := make([]models.Product, 0, len(skus))
	for _, sku := range skus {
		records = append(records, models.Product{SKU: sku, Name: "Product " + sku})
	}
	return records
}

func TestUploadBatchIsolatesItemFailures(t *testing.T) {
	session := &fakeSession{
		state:       browser.StateAuthenticated,
		verifyFails: map[string]bool{"SKU3": true},
	}
	flags := &fakeFlagStore{}
	svc := newTestService(flags)

	result := svc.UploadBatch(context.Background(), session,
		batchRecords("SKU1", "SKU2", "SKU3", "SKU4", "SKU5"))

	assert.Equal(t, 5, result.Attempted)
	assert.Equal(t, 4, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "SKU3", result.Failures[0].SKU)
	assert.NotEmpty(t, result.Failures[0].Reason)

	// Items after the failure were still attempted and marked.
	assert.Equal(t, []string{"SKU1", "SKU2", "SKU4", "SKU5"}, flags.uploaded)
}

func TestUploadBatchRejectsUnauthenticatedSession(t *testing.T) {
	session := &fakeSession{state: browser.StateConnected}
	svc := newTestService(&fakeFlagStore{})

	result := svc.UploadBatch(context.Background(), session, batchRecords("SKU1", "SKU2"))

	assert.Equal(t, 0, result.Attempted)
	assert.Equal(t, 0, result.Succeeded)
	require.Len(t, result.Failures, 1)
	assert.NotEmpty(t, result.Failures[0].Reason)
	assert.Zero(t, session.opened, "no remote interaction may happen")
}

func TestUploadBatchStopsAfterCurrentItemOnCancel(t *testing.T) {
	session := &fakeSession{state: browser.StateAuthenticated}
	flags := &fakeFlagStore{}
	svc := newTestService(flags)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancelled before the first item: nothing gets attempted

	result := svc.UploadBatch(ctx, session, batchRecords("SKU1", "SKU2"))
	assert.Equal(t, 0, result.Attempted)
	assert.Empty(t, flags.uploaded)
}

func TestUploadBatchSelectorExhaustionIsPerItem(t *testing.T) {
	session := &fakeSession{
		state:     browser.StateAuthenticated,
		fillFails: map[string]bool{"SKU1": true},
	}
	flags := &fakeFlagStore{}
	svc := newTestService(flags)

	result := svc.UploadBatch(context.Background(), session, batchRecords("SKU1", "SKU2"))

	assert.Equal(t, 2, result.Attempted)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"SKU2"}, flags.uploaded)
}

func TestDownloadCatalogRequiresAuthenticated(t *testing.T) {
	session := &fakeSession{state: browser.StateConnected}
	svc := newTestService(&fakeFlagStore{})

	_, err := svc.DownloadCatalog(context.Background(), session)
	assert.ErrorIs(t, err, browser.ErrNotAuthenticated)
}

func TestDownloadCatalogEmptyPageIsNotAnError(t *testing.T) {
	session := &fakeSession{
		state:    browser.StateAuthenticated,
		listings: []models.RemoteListing{},
	}
	svc := newTestService(&fakeFlagStore{})

	listings, err := svc.DownloadCatalog(context.Background(), session)
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestDownloadCatalogUnreachablePageIsAnError(t *testing.T) {
	session := &fakeSession{
		state:       browser.StateAuthenticated,
		listingsErr: errors.New("navigation timeout"),
	}
	svc := newTestService(&fakeFlagStore{})

	_, err := svc.DownloadCatalog(context.Background(), session)
	assert.Error(t, err)
}

func TestFailureReasonBuckets(t *testing.T) {
	assert.Equal(t, "selector_exhausted", failureReason(browser.ErrSelectorExhausted))
	assert.Equal(t, "verify_failed", failureReason(browser.ErrVerifyFailed))
	assert.Equal(t, "timeout", failureReason(context.DeadlineExceeded))
	assert.Equal(t, "other", failureReason(errors.New("boom")))
}
