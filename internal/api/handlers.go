package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/justyntemme/shelfscan/internal/identifier"
	"github.com/justyntemme/shelfscan/internal/lookup"
	"github.com/justyntemme/shelfscan/internal/models"
	"github.com/justyntemme/shelfscan/internal/scanner"
)

// Catalog is the lookup data the server answers from.
type Catalog interface {
	lookup.Checker
	Reload(ctx context.Context) error
	Stats() lookup.CatalogStats
}

// Options configures a Handler.
type Options struct {
	Matcher      identifier.Config
	Labels       scanner.Labels
	MaxBatchSize int
	MaxPageBytes int64
	// Imports, when set, adds import history to GET /stats.
	Imports ImportLog
	Logger  *slog.Logger
}

// Handler contains all HTTP handlers
type Handler struct {
	catalog      Catalog
	indexer      *scanner.Indexer
	labels       scanner.Labels
	maxBatch     int
	maxPageBytes int64
	imports      ImportLog
	logger       *slog.Logger
	started      time.Time
	counters     serverCounters
}

// NewHandler creates a new handler instance
func NewHandler(catalog Catalog, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = 10000
	}
	if opts.MaxPageBytes <= 0 {
		opts.MaxPageBytes = 10 << 20
	}
	if opts.Matcher.Segments == nil && opts.Matcher.Fallbacks == nil {
		opts.Matcher = identifier.DefaultConfig()
	}

	return &Handler{
		catalog:      catalog,
		indexer:      scanner.NewIndexer(identifier.NewMatcher(opts.Matcher, logger), logger),
		labels:       opts.Labels,
		maxBatch:     opts.MaxBatchSize,
		maxPageBytes: opts.MaxPageBytes,
		imports:      opts.Imports,
		logger:       logger,
		started:      time.Now(),
	}
}

// Index answers the connectivity probe clients use to decide whether the
// server is up.
func (h *Handler) Index(c *gin.Context) {
	c.String(http.StatusOK, "shelfscan lookup server running at %s", time.Now().Format(time.RFC3339))
}

// HealthCheck reports server and catalog state
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"time":    time.Now(),
		"uptime":  time.Since(h.started).Round(time.Second).String(),
		"catalog": h.catalog.Stats(),
	})
}

// Check looks up a single identifier. It always answers with a one-element
// list, like the batch endpoint.
func (h *Handler) Check(c *gin.Context) {
	raw := c.Param("id")
	id, ok := identifier.Normalize(raw)
	if !ok {
		c.JSON(http.StatusOK, []models.LookupResult{{ID: raw, SuppliedID: raw}})
		return
	}

	results, err := h.catalog.BatchCheck(c.Request.Context(), []string{id})
	if err != nil {
		h.logger.Error("check failed", slog.String("id", id), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lookup failed"})
		return
	}
	h.counters.recordBatch(results)
	c.JSON(http.StatusOK, results)
}

// BatchCheck checks a JSON array of identifiers
func (h *Handler) BatchCheck(c *gin.Context) {
	var ids []string
	if err := c.ShouldBindJSON(&ids); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must be a JSON array of identifiers"})
		return
	}
	if len(ids) > h.maxBatch {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("At most %d identifiers per batch", h.maxBatch)})
		return
	}

	results, err := h.catalog.BatchCheck(c.Request.Context(), ids)
	if err != nil {
		h.logger.Error("batch check failed", slog.Int("ids", len(ids)), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lookup failed"})
		return
	}
	if results == nil {
		results = []models.LookupResult{}
	}
	h.counters.recordBatch(results)
	c.JSON(http.StatusOK, results)
}

// Scan runs the full scan against the local catalog. The request body is
// the page HTML; the url query parameter is the page's address, used to
// resolve relative links. With format=html the annotated page is returned
// instead of the report.
func (h *Handler) Scan(c *gin.Context) {
	pageURL := c.Query("url")
	if pageURL != "" {
		if u, err := url.Parse(pageURL); err != nil || !u.IsAbs() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "url must be an absolute URL"})
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxPageBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read page"})
		return
	}
	if int64(len(body)) > h.maxPageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Page too large"})
		return
	}

	page, err := scanner.NewPage(bytes.NewReader(body), pageURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse page"})
		return
	}

	h.counters.scans.Add(1)
	var status scanner.Status
	pipeline := scanner.NewPipeline(h.indexer, h.catalog, scanner.Options{
		Labels: h.labels,
		Logger: h.logger,
		Status: func(s scanner.Status, _ string) { status = s },
	})
	report, err := pipeline.Run(c.Request.Context(), page)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.logger.Error("scan failed", slog.String("url", pageURL), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Scan failed", "status": scanner.StatusError})
		return
	}

	if c.Query("format") == "html" {
		page.InjectStyles()
		out, err := page.HTML()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render page"})
			return
		}
		c.Header("X-Shelfscan-Scan-Id", report.ScanID)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(out))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status, "report": report})
}

// Reload re-reads the catalog from storage
func (h *Handler) Reload(c *gin.Context) {
	if err := h.catalog.Reload(c.Request.Context()); err != nil {
		h.logger.Error("catalog reload failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Reload failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Catalog reloaded", "catalog": h.catalog.Stats()})
}

// APIInfo lists the available endpoints
func (h *Handler) APIInfo(c *gin.Context) {
	endpoints := []gin.H{
		{"method": "GET", "path": "/", "description": "Connectivity probe"},
		{"method": "GET", "path": "/health", "description": "Health check with catalog sizes"},
		{"method": "GET", "path": "/api", "description": "API documentation"},
		{"method": "GET", "path": "/check/:id", "description": "Check a single ISBN or ASIN"},
		{"method": "POST", "path": "/batch_check/", "description": "Check identifiers", "body": "JSON array of normalized identifiers"},
		{"method": "POST", "path": "/scan", "description": "Scan and annotate a page against the local catalog", "query": "url, format (json/html)", "body": "page HTML"},
		{"method": "GET", "path": "/stats", "description": "Traffic counters, catalog sizes and import history"},
		{"method": "GET", "path": "/auth/me", "description": "Describe the calling client's token", "auth": true},
		{"method": "POST", "path": "/admin/reload", "description": "Reload the catalog from storage", "auth": true},
		{"method": "POST", "path": "/admin/tokens", "description": "Issue a client token", "body": "{subject, ttl_hours}", "auth": true},
	}
	c.JSON(http.StatusOK, gin.H{
		"name":        "shelfscan",
		"api_version": lookup.APIVersion,
		"endpoints":   endpoints,
	})
}
