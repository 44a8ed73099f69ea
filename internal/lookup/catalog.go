package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/justyntemme/shelfscan/internal/identifier"
	"github.com/justyntemme/shelfscan/internal/models"
)

// maxLoggedUnknowns caps how many unknown identifiers a batch log line lists.
const maxLoggedUnknowns = 10

// Source provides the data a Catalog is built from.
type Source interface {
	KnownIdentifiers(ctx context.Context) ([]string, error)
	SecondaryISBNs(ctx context.Context) ([]models.SecondaryISBN, error)
	SecondaryASINs(ctx context.Context) ([]models.SecondaryASIN, error)
}

// CatalogOptions controls how a Catalog answers batch checks.
type CatalogOptions struct {
	// CheckBothISBNForms treats an ISBN as known when either its ISBN-10 or
	// ISBN-13 spelling is in the primary set.
	CheckBothISBNForms bool
	// SecondaryChecks adds secondary-source details to unknown identifiers.
	SecondaryChecks bool
	Logger          *slog.Logger
}

// DefaultCatalogOptions enables both variant matching and secondary checks.
func DefaultCatalogOptions() CatalogOptions {
	return CatalogOptions{CheckBothISBNForms: true, SecondaryChecks: true}
}

type secondaryEntry struct {
	status   int
	priority models.Priority
}

// catalogData is swapped as a whole on reload.
type catalogData struct {
	known    map[string]struct{}
	isbns    map[string]secondaryEntry
	asins    map[string]string
	loadedAt time.Time
}

// CatalogStats summarises what a Catalog currently holds.
type CatalogStats struct {
	Known          int       `json:"known"`
	SecondaryISBNs int       `json:"secondary_isbns"`
	SecondaryASINs int       `json:"secondary_asins"`
	LoadedAt       time.Time `json:"loaded_at"`
}

// Catalog answers batch checks from memory.
type Catalog struct {
	source Source
	opts   CatalogOptions
	logger *slog.Logger

	mu   sync.RWMutex
	data *catalogData
}

// NewCatalog creates an empty catalog. Call Reload to populate it.
func NewCatalog(source Source, opts CatalogOptions) *Catalog {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		source: source,
		opts:   opts,
		logger: logger,
		data: &catalogData{
			known: map[string]struct{}{},
			isbns: map[string]secondaryEntry{},
			asins: map[string]string{},
		},
	}
}

// LoadCatalog creates a catalog and loads it from source.
func LoadCatalog(ctx context.Context, source Source, opts CatalogOptions) (*Catalog, error) {
	c := NewCatalog(source, opts)
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload reads everything from the source and replaces the catalog contents
// in one step. On error the previous contents are kept.
func (c *Catalog) Reload(ctx context.Context) error {
	start := time.Now()

	known, err := c.source.KnownIdentifiers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load known identifiers: %w", err)
	}
	isbns, err := c.source.SecondaryISBNs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load secondary ISBNs: %w", err)
	}
	asins, err := c.source.SecondaryASINs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load secondary ASINs: %w", err)
	}

	data := &catalogData{
		known:    make(map[string]struct{}, len(known)),
		isbns:    make(map[string]secondaryEntry, len(isbns)),
		asins:    make(map[string]string, len(asins)),
		loadedAt: time.Now(),
	}
	for _, id := range known {
		data.known[id] = struct{}{}
	}
	for _, s := range isbns {
		data.isbns[s.ISBN] = secondaryEntry{status: s.Status, priority: s.Priority}
	}
	for _, a := range asins {
		data.asins[a.ASIN] = a.ISBN
	}

	c.mu.Lock()
	c.data = data
	c.mu.Unlock()

	c.logger.Info("catalog loaded",
		slog.Int("known", len(data.known)),
		slog.Int("secondary_isbns", len(data.isbns)),
		slog.Int("secondary_asins", len(data.asins)),
		slog.Duration("took", time.Since(start)))
	return nil
}

// Stats returns the current catalog sizes.
func (c *Catalog) Stats() CatalogStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CatalogStats{
		Known:          len(c.data.known),
		SecondaryISBNs: len(c.data.isbns),
		SecondaryASINs: len(c.data.asins),
		LoadedAt:       c.data.loadedAt,
	}
}

// BatchCheck checks each identifier against the catalog.
func (c *Catalog) BatchCheck(ctx context.Context, ids []string) ([]models.LookupResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	c.mu.RLock()
	data := c.data
	c.mu.RUnlock()

	results := make([]models.LookupResult, 0, len(ids))
	for _, id := range ids {
		results = append(results, c.check(data, id))
	}
	c.logStats(results, time.Since(start))
	return results, nil
}

func (c *Catalog) check(data *catalogData, id string) models.LookupResult {
	res := models.LookupResult{ID: id, SuppliedID: id}
	if id == "" {
		return res
	}

	if c.opts.CheckBothISBNForms && !identifier.PossibleASIN(id) {
		for _, v := range identifier.Variants(id) {
			if _, ok := data.known[v]; ok {
				res.Known = true
				res.MatchedID = v
				break
			}
		}
	} else if _, ok := data.known[id]; ok {
		res.Known = true
		res.MatchedID = id
	}

	if res.Known || !c.opts.SecondaryChecks {
		return res
	}
	if identifier.PossibleASIN(id) {
		_, ok := data.asins[id]
		res.ASINKnownToSecondary = &ok
	}
	if entry, ok := data.isbns[id]; ok {
		status := entry.status
		res.Status = &status
		res.Priority = entry.priority
	}
	return res
}

func (c *Catalog) logStats(results []models.LookupResult, took time.Duration) {
	var unknowns []string
	statuses := map[int]int{}
	for _, r := range results {
		if r.Known {
			continue
		}
		unknowns = append(unknowns, r.SuppliedID)
		if r.Status != nil {
			statuses[*r.Status]++
		}
	}

	attrs := []any{
		slog.Int("checked", len(results)),
		slog.Int("unknown", len(unknowns)),
		slog.Duration("took", took),
	}
	if len(unknowns) > 0 {
		shown := unknowns
		if len(shown) > maxLoggedUnknowns {
			shown = shown[:maxLoggedUnknowns]
		}
		attrs = append(attrs, slog.String("unknown_ids", strings.Join(shown, ",")))
	}
	if len(statuses) > 0 {
		attrs = append(attrs, slog.String("secondary_statuses", formatHistogram(statuses)))
	}
	c.logger.Info("batch checked", attrs...)
}

func formatHistogram(counts map[int]int) string {
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%d:%d", k, counts[k])
	}
	return strings.Join(parts, " ")
}
