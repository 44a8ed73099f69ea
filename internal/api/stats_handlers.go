package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/justyntemme/shelfscan/internal/lookup"
	"github.com/justyntemme/shelfscan/internal/models"
	"github.com/justyntemme/shelfscan/internal/storage"
)

// ImportLog reports when catalog data was last imported.
type ImportLog interface {
	LastImport(ctx context.Context, kind string) (*models.ImportRecord, error)
}

// serverCounters tracks traffic since startup
type serverCounters struct {
	batches    atomic.Int64
	idsChecked atomic.Int64
	unknown    atomic.Int64
	scans      atomic.Int64
}

func (s *serverCounters) recordBatch(results []models.LookupResult) {
	s.batches.Add(1)
	s.idsChecked.Add(int64(len(results)))
	var unknown int64
	for _, r := range results {
		if !r.Known {
			unknown++
		}
	}
	s.unknown.Add(unknown)
}

// ServerStats is the body of GET /stats
type ServerStats struct {
	Uptime     string                          `json:"uptime"`
	Batches    int64                           `json:"batches"`
	IDsChecked int64                           `json:"ids_checked"`
	Unknown    int64                           `json:"unknown"`
	Scans      int64                           `json:"scans"`
	Catalog    lookup.CatalogStats             `json:"catalog"`
	Imports    map[string]*models.ImportRecord `json:"imports,omitempty"`
}

// GetStats returns traffic counters, catalog sizes and the latest import of
// each data file
func (h *Handler) GetStats(c *gin.Context) {
	stats := ServerStats{
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Batches:    h.counters.batches.Load(),
		IDsChecked: h.counters.idsChecked.Load(),
		Unknown:    h.counters.unknown.Load(),
		Scans:      h.counters.scans.Load(),
		Catalog:    h.catalog.Stats(),
	}

	if h.imports != nil {
		stats.Imports = make(map[string]*models.ImportRecord)
		for _, kind := range []string{models.ImportKnown, models.ImportSecondaryISBNs, models.ImportSecondaryASINs} {
			rec, err := h.imports.LastImport(c.Request.Context(), kind)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				h.logger.Error("load import history", slog.String("kind", kind), slog.Any("error", err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get stats"})
				return
			}
			stats.Imports[kind] = rec
		}
	}

	c.JSON(http.StatusOK, stats)
}
