package api

import (
	"net/http"
	"strconv"
	"time"

	"shopsync/internal/service"
	"shopsync/internal/store"
	"shopsync/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	pipeline *service.Pipeline
}

// NewHandler creates a new HTTP handler
func NewHandler(pipeline *service.Pipeline) *Handler {
	return &Handler{
		pipeline: pipeline,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:sku", h.getProduct)
		v1.PATCH("/products/:sku/flags", h.updateProductFlags)
		v1.GET("/stats", h.getStats)

		v1.POST("/sync", h.runSync)
		v1.POST("/upload", h.runUpload)
		v1.POST("/download", h.runDownload)
		v1.GET("/remote/listings", h.getCachedListings)

		v1.GET("/session", h.getSessionStatus)
		v1.POST("/session/screenshot", h.takeScreenshot)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// listProducts handles catalog listing with optional filters
func (h *Handler) listProducts(c *gin.Context) {
	opts := store.ListOptions{
		ActiveOnly:         c.Query("active") == "true",
		UploadEligibleOnly: c.Query("eligible") == "true",
	}

	products, err := h.pipeline.Sync().Products(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list products",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":    len(products),
		"products": products,
	})
}

// getProduct handles get product by SKU
func (h *Handler) getProduct(c *gin.Context) {
	sku := c.Param("sku")

	product, err := h.pipeline.Sync().Product(c.Request.Context(), sku)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Product not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, product)
}

// updateProductFlags handles partial status updates on one record
func (h *Handler) updateProductFlags(c *gin.Context) {
	sku := c.Param("sku")

	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	updated, err := h.pipeline.Sync().UpdateFlags(c.Request.Context(), sku, fields)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to update product flags",
			"details": err.Error(),
		})
		return
	}
	if !updated {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Product not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true, "sku": sku})
}

// getStats handles catalog aggregate counts
func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.pipeline.Sync().Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to read catalog stats",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

type syncRequest struct {
	SpreadsheetPath string `json:"spreadsheet_path"`
}

// runSync handles a full catalog sync pass
func (h *Handler) runSync(c *gin.Context) {
	var req syncRequest
	_ = c.ShouldBindJSON(&req)

	report, err := h.pipeline.RunSync(c.Request.Context(), req.SpreadsheetPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Catalog sync failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

type uploadRequest struct {
	SKUs []string `json:"skus"`
}

// runUpload handles an upload batch of eligible products
func (h *Handler) runUpload(c *gin.Context) {
	var req uploadRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.pipeline.RunUpload(c.Request.Context(), req.SKUs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Upload batch failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// runDownload pulls the remote listing snapshots
func (h *Handler) runDownload(c *gin.Context) {
	listings, err := h.pipeline.RunDownload(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Catalog download failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":    len(listings),
		"listings": listings,
	})
}

// getCachedListings serves the last downloaded remote snapshot
func (h *Handler) getCachedListings(c *gin.Context) {
	listings, err := h.pipeline.Upload().CachedListings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to read cached listings",
			"details": err.Error(),
		})
		return
	}
	if listings == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No cached listings; run a download first",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":    len(listings),
		"listings": listings,
	})
}

// getSessionStatus reports the browser session lifecycle state
func (h *Handler) getSessionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.pipeline.SessionStatus(c.Request.Context()))
}

type screenshotRequest struct {
	Path string `json:"path" binding:"required"`
}

// takeScreenshot captures the current page while a session is open
func (h *Handler) takeScreenshot(c *gin.Context) {
	var req screenshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.pipeline.Screenshot(c.Request.Context(), req.Path); err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Screenshot failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": req.Path})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
