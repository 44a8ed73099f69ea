package scanner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/shelfscan/internal/models"
)

// fakeSink records classifications in memory.
type fakeSink struct {
	classes  map[*Link]map[Classification]struct{}
	calls    int
	failOn   *Link
	detachAt int
}

func newFakeSink() *fakeSink {
	return &fakeSink{classes: make(map[*Link]map[Classification]struct{})}
}

func (s *fakeSink) AddClassification(link *Link, c Classification) error {
	s.calls++
	if s.detachAt > 0 && s.calls >= s.detachAt {
		return ErrDetached
	}
	if link == s.failOn {
		return errors.New("element vanished")
	}
	if s.classes[link] == nil {
		s.classes[link] = make(map[Classification]struct{})
	}
	s.classes[link][c] = struct{}{}
	return nil
}

func (s *fakeSink) has(link *Link, c Classification) bool {
	_, ok := s.classes[link][c]
	return ok
}

func intPtr(i int) *int { return &i }

func buildTestIndex(t *testing.T) (*Index, []*Link) {
	t.Helper()
	links := linksFor(
		"https://www.amazon.com/dp/B07XJ8C8F5",
		"https://example.com/9780306406157",
		"https://example.com/0575114959",
		"https://shop.example/9780306406157",
	)
	ix, counts := newTestIndexer().Build(links)
	require.Equal(t, 3, counts.Unique)
	return ix, links
}

func TestReconcile(t *testing.T) {
	ix, links := buildTestIndex(t)
	sink := newFakeSink()

	report := NewReconciler(sink, Labels{Primary: "the catalog", Secondary: "the queue"}, nil).Reconcile(ix, []models.LookupResult{
		{ID: "B07XJ8C8F5", Known: true},
		{ID: "9780306406157", Known: false},
		{ID: "0575114959", Known: false, Status: intPtr(0), Priority: "1"},
	})

	assert.Empty(t, sink.classes[links[0]])
	assert.True(t, sink.has(links[1], ClassUnknown))
	assert.True(t, sink.has(links[3], ClassUnknown))
	assert.True(t, sink.has(links[2], ClassKnownToSecondary))
	assert.False(t, sink.has(links[2], ClassUnknown))

	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 1, report.Known)
	assert.Equal(t, 2, report.Unknown)
	assert.Equal(t, 1, report.Secondary)
	assert.Equal(t, 3, report.Annotated)
	assert.Empty(t, report.Orphans)
	require.Len(t, report.Findings, 2)
	assert.Equal(t, Finding{ID: "9780306406157", Class: ClassUnknown, Label: "unknown to the catalog", Links: 2}, report.Findings[0])
	assert.Equal(t, "unknown to the catalog but known to the queue (High priority)", report.Findings[1].Label)
}

func TestReconcileKnownIdentifiersAreNeverAnnotated(t *testing.T) {
	ix, _ := buildTestIndex(t)
	sink := newFakeSink()

	results := make([]models.LookupResult, 0, ix.Len())
	for _, id := range ix.Identifiers() {
		results = append(results, models.LookupResult{ID: id, Known: true, Status: intPtr(2)})
	}
	report := NewReconciler(sink, Labels{}, nil).Reconcile(ix, results)

	assert.Zero(t, sink.calls)
	assert.Equal(t, ix.Len(), report.Known)
	assert.Empty(t, report.Findings)
}

func TestReconcileIsIdempotent(t *testing.T) {
	ix, links := buildTestIndex(t)
	sink := newFakeSink()
	results := []models.LookupResult{
		{ID: "9780306406157"},
		{ID: "0575114959", Status: intPtr(0), Priority: models.PriorityNew},
	}
	r := NewReconciler(sink, Labels{}, nil)

	r.Reconcile(ix, results)
	first := snapshot(sink, links)
	r.Reconcile(ix, results)
	assert.Equal(t, first, snapshot(sink, links))
}

func snapshot(s *fakeSink, links []*Link) [][]Classification {
	out := make([][]Classification, len(links))
	for i, l := range links {
		for _, c := range []Classification{ClassUnknown, ClassKnownToSecondary} {
			if s.has(l, c) {
				out[i] = append(out[i], c)
			}
		}
	}
	return out
}

func TestReconcileOrphan(t *testing.T) {
	ix, links := buildTestIndex(t)
	sink := newFakeSink()

	report := NewReconciler(sink, Labels{}, nil).Reconcile(ix, []models.LookupResult{
		{ID: "9999999999999"},
		{ID: "9780306406157"},
	})

	assert.Equal(t, []string{"9999999999999"}, report.Orphans)
	assert.Equal(t, 2, sink.calls)
	assert.True(t, sink.has(links[1], ClassUnknown))
	assert.True(t, sink.has(links[3], ClassUnknown))
	assert.Equal(t, 1, report.Unknown)
}

func TestReconcileOrphanAloneProducesNoAnnotations(t *testing.T) {
	ix, _ := buildTestIndex(t)
	sink := newFakeSink()

	report := NewReconciler(sink, Labels{}, nil).Reconcile(ix, []models.LookupResult{{ID: "B000000000"}})
	assert.Zero(t, sink.calls)
	assert.Equal(t, []string{"B000000000"}, report.Orphans)
}

func TestReconcileContinuesAfterSinkError(t *testing.T) {
	ix, links := buildTestIndex(t)
	sink := newFakeSink()
	sink.failOn = links[1]

	report := NewReconciler(sink, Labels{}, nil).Reconcile(ix, []models.LookupResult{{ID: "9780306406157"}})
	assert.True(t, sink.has(links[3], ClassUnknown))
	assert.Equal(t, 1, report.Annotated)
}

func TestReconcileStopsWhenDetached(t *testing.T) {
	ix, _ := buildTestIndex(t)
	sink := newFakeSink()
	sink.detachAt = 2

	report := NewReconciler(sink, Labels{}, nil).Reconcile(ix, []models.LookupResult{
		{ID: "9780306406157"},
		{ID: "0575114959"},
	})
	assert.True(t, report.Detached)
	assert.Equal(t, 1, report.Annotated)
	assert.Equal(t, 2, sink.calls)
}

func TestClassificationNames(t *testing.T) {
	assert.Equal(t, "unknown", ClassUnknown.String())
	assert.Equal(t, "known-to-secondary-source", ClassKnownToSecondary.String())
	assert.Equal(t, "shelfscan-highlight-unknown", ClassUnknown.CSSClass())
	assert.Equal(t, "", Classification(0).CSSClass())

	text, err := ClassKnownToSecondary.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "known-to-secondary-source", string(text))
}
