package scanner

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/justyntemme/shelfscan/internal/models"
)

// Classification is the visual treatment given to a link.
type Classification int

const (
	// ClassUnknown marks links whose identifier the primary source lacks.
	ClassUnknown Classification = iota + 1
	// ClassKnownToSecondary marks links unknown to the primary source but
	// already recorded by the secondary one.
	ClassKnownToSecondary
)

func (c Classification) String() string {
	switch c {
	case ClassUnknown:
		return "unknown"
	case ClassKnownToSecondary:
		return "known-to-secondary-source"
	default:
		return "none"
	}
}

// CSSClass is the class attribute value used when annotating HTML.
func (c Classification) CSSClass() string {
	switch c {
	case ClassUnknown:
		return "shelfscan-highlight-unknown"
	case ClassKnownToSecondary:
		return "shelfscan-highlight-known-to-secondary"
	default:
		return ""
	}
}

// MarshalText renders the classification by name.
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Sink receives annotations. Adding the same classification to a link twice
// must leave it in the same state as adding it once.
type Sink interface {
	AddClassification(link *Link, c Classification) error
}

// ErrDetached is returned by a Sink whose document has gone away.
var ErrDetached = errors.New("document detached")

// Labels names the two lookup sources in finding descriptions.
type Labels struct {
	Primary   string `toml:"primary"`
	Secondary string `toml:"secondary"`
}

// DefaultLabels are used when none are configured.
var DefaultLabels = Labels{Primary: "primary source", Secondary: "secondary source"}

// Finding describes one unknown identifier and what was done about it.
type Finding struct {
	ID    string         `json:"id"`
	Class Classification `json:"classification"`
	Label string         `json:"label"`
	Links int            `json:"links"`
}

// Report summarises a reconciliation pass.
type Report struct {
	ScanID    string    `json:"scan_id,omitempty"`
	Counts    Counts    `json:"counts"`
	Checked   int       `json:"checked"`
	Known     int       `json:"known"`
	Unknown   int       `json:"unknown"`
	Secondary int       `json:"known_to_secondary"`
	Annotated int       `json:"links_annotated"`
	Findings  []Finding `json:"findings"`
	Orphans   []string  `json:"orphans,omitempty"`
	Detached  bool      `json:"detached,omitempty"`
}

// Reconciler applies a batch lookup response to indexed links.
type Reconciler struct {
	sink   Sink
	labels Labels
	logger *slog.Logger
}

// NewReconciler creates a Reconciler. Empty labels fall back to
// DefaultLabels and a nil logger uses slog.Default().
func NewReconciler(sink Sink, labels Labels, logger *slog.Logger) *Reconciler {
	if labels.Primary == "" {
		labels.Primary = DefaultLabels.Primary
	}
	if labels.Secondary == "" {
		labels.Secondary = DefaultLabels.Secondary
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{sink: sink, labels: labels, logger: logger}
}

// Reconcile annotates every link whose identifier came back unknown. Known
// identifiers are left alone. Results for identifiers that were never
// indexed are recorded as orphans and skipped. If the sink reports that its
// document is gone the pass stops early and the report is marked detached.
func (r *Reconciler) Reconcile(ix *Index, results []models.LookupResult) Report {
	report := Report{Findings: []Finding{}}

	for _, item := range results {
		report.Checked++
		if item.Known {
			report.Known++
			continue
		}

		if !ix.Contains(item.ID) {
			r.logger.Warn("lookup result for an identifier that was not on the page",
				slog.String("id", item.ID))
			report.Orphans = append(report.Orphans, item.ID)
			continue
		}

		links := ix.Links(item.ID)
		class, label := r.classify(item)
		report.Unknown++
		if class == ClassKnownToSecondary {
			report.Secondary++
		}
		r.logger.Info("identifier not in catalog",
			slog.String("id", item.ID),
			slog.String("status", label),
			slog.Int("links", len(links)))

		for _, link := range links {
			if err := r.sink.AddClassification(link, class); err != nil {
				if errors.Is(err, ErrDetached) {
					r.logger.Info("page went away before annotation finished", slog.String("id", item.ID))
					report.Detached = true
					return report
				}
				r.logger.Warn("annotation failed", slog.String("id", item.ID), slog.Any("error", err))
				continue
			}
			report.Annotated++
		}
		report.Findings = append(report.Findings, Finding{
			ID:    item.ID,
			Class: class,
			Label: label,
			Links: len(links),
		})
	}
	return report
}

func (r *Reconciler) classify(item models.LookupResult) (Classification, string) {
	label := "unknown to " + r.labels.Primary
	if !item.KnownToSecondary() {
		return ClassUnknown, label
	}
	label = fmt.Sprintf("%s but known to %s", label, r.labels.Secondary)
	if desc := item.SecondaryDescription(); desc != "" {
		label = fmt.Sprintf("%s (%s)", label, desc)
	}
	return ClassKnownToSecondary, label
}
