package scanner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/justyntemme/shelfscan/internal/models"
)

// Status is the coarse state of a scan, reported to whoever is watching
// (a toolbar icon in a browser, a log line on the command line).
type Status string

const (
	StatusOK         Status = "ok"
	StatusDead       Status = "dead"
	StatusIrrelevant Status = "irrelevant"
	StatusChecking   Status = "checking"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// StatusFunc receives status changes. It must not block.
type StatusFunc func(status Status, message string)

// BatchChecker looks up a batch of identifiers.
type BatchChecker interface {
	BatchCheck(ctx context.Context, ids []string) ([]models.LookupResult, error)
}

// Document is a page that can be scanned and annotated.
type Document interface {
	Sink
	Links() []*Link
}

// Options configures a Pipeline.
type Options struct {
	Labels Labels
	Status StatusFunc
	Logger *slog.Logger
}

// Pipeline runs a whole scan: index the page, send one batch request, and
// annotate the page when the response arrives.
type Pipeline struct {
	indexer *Indexer
	checker BatchChecker
	labels  Labels
	status  StatusFunc
	logger  *slog.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(indexer *Indexer, checker BatchChecker, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	status := opts.Status
	if status == nil {
		status = func(Status, string) {}
	}
	return &Pipeline{
		indexer: indexer,
		checker: checker,
		labels:  opts.Labels,
		status:  status,
		logger:  logger,
	}
}

// Pending is the outcome of a scan whose lookup may still be in flight.
type Pending struct {
	ScanID string
	Index  *Index
	Counts Counts

	done   chan struct{}
	report Report
	err    error
}

// Done is closed once the scan has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the scan finishes and returns its report. A lookup
// failure is returned as an error and leaves the page unannotated.
func (p *Pending) Wait() (Report, error) {
	<-p.done
	return p.report, p.err
}

// Start indexes doc synchronously, then issues the batch lookup in the
// background and returns immediately. Reconciliation runs once, on the
// lookup goroutine, after the response arrives; doc must not be touched
// by the caller until Wait returns.
func (pl *Pipeline) Start(ctx context.Context, doc Document) *Pending {
	links := doc.Links()
	ix, counts := pl.indexer.Build(links)

	pending := &Pending{
		ScanID: uuid.New().String(),
		Index:  ix,
		Counts: counts,
		done:   make(chan struct{}),
	}
	pending.report = Report{ScanID: pending.ScanID, Counts: counts, Findings: []Finding{}}

	pl.logger.Info("page scanned",
		slog.String("scan_id", pending.ScanID),
		slog.Int("links", counts.Scanned),
		slog.Int("links_with_ids", counts.Matched),
		slog.Int("unique_ids", counts.Unique))

	if counts.Unique == 0 {
		pl.status(StatusIrrelevant, "no book identifiers on this page")
		close(pending.done)
		return pending
	}

	pl.status(StatusChecking, fmt.Sprintf("checking %d identifiers", counts.Unique))
	go pl.finish(ctx, doc, pending)
	return pending
}

// Run is Start followed by Wait.
func (pl *Pipeline) Run(ctx context.Context, doc Document) (Report, error) {
	return pl.Start(ctx, doc).Wait()
}

func (pl *Pipeline) finish(ctx context.Context, doc Document, pending *Pending) {
	defer close(pending.done)

	results, err := pl.checker.BatchCheck(ctx, pending.Index.Identifiers())
	if err != nil {
		pl.logger.Error("batch lookup failed",
			slog.String("scan_id", pending.ScanID),
			slog.Any("error", err))
		pl.status(StatusError, "annotation pipeline error")
		pending.err = fmt.Errorf("batch lookup: %w", err)
		return
	}
	if err := ctx.Err(); err != nil {
		pending.err = err
		return
	}

	reconciler := NewReconciler(doc, pl.labels, pl.logger)
	report := reconciler.Reconcile(pending.Index, results)
	report.ScanID = pending.ScanID
	report.Counts = pending.Counts
	pending.report = report

	pl.status(StatusDone, fmt.Sprintf("%d of %d identifiers unknown", report.Unknown, report.Checked))
}
