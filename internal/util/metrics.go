package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProductsImportedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_products_imported_total",
		Help: "Total number of product rows imported from spreadsheets",
	})

	ProductsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_products_skipped_total",
		Help: "Total number of spreadsheet rows skipped (blank product code)",
	})

	ImportErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_import_errors_total",
		Help: "Total number of rows that failed to import",
	})

	FilesystemScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_filesystem_scans_total",
		Help: "Total number of filesystem reconciliation passes",
	})

	AssetsFoundTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_assets_found_total",
		Help: "Total number of asset files found during scans",
	}, []string{"kind"})

	UploadsSucceededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_uploads_succeeded_total",
		Help: "Total number of products uploaded and verified",
	})

	UploadsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_uploads_failed_total",
		Help: "Total number of failed product uploads",
	}, []string{"reason"})

	UploadItemLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_upload_item_latency_seconds",
		Help:    "Latency of a single product upload (fill, submit, verify)",
		Buckets: prometheus.DefBuckets,
	})

	UploadBatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_upload_batch_latency_seconds",
		Help:    "Latency of a whole upload batch",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	DownloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_downloads_total",
		Help: "Total number of remote catalog download passes",
	})

	RemoteListingsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_remote_listings_fetched_total",
		Help: "Total number of remote listing snapshots fetched",
	})

	SessionAuthFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_session_auth_failures_total",
		Help: "Total number of failed authentication attempts",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
