package scanner

import (
	"fmt"
	"log/slog"

	"github.com/justyntemme/shelfscan/internal/identifier"
)

// Index maps identifiers to the links that reference them. Identifiers keep
// the order in which they were first seen, and links keep page order within
// each identifier. An Index is built once per scan and read-only afterwards.
type Index struct {
	order []string
	links map[string][]*Link
}

func newIndex() *Index {
	return &Index{links: make(map[string][]*Link)}
}

func (ix *Index) add(id string, link *Link) {
	if _, ok := ix.links[id]; !ok {
		ix.order = append(ix.order, id)
	}
	ix.links[id] = append(ix.links[id], link)
}

// Identifiers returns the unique identifiers in discovery order. This is the
// payload of the outbound batch request.
func (ix *Index) Identifiers() []string {
	out := make([]string, len(ix.order))
	copy(out, ix.order)
	return out
}

// Links returns the links indexed under id.
func (ix *Index) Links(id string) []*Link {
	return ix.links[id]
}

// Contains reports whether id was indexed.
func (ix *Index) Contains(id string) bool {
	_, ok := ix.links[id]
	return ok
}

// Len returns the number of unique identifiers.
func (ix *Index) Len() int {
	return len(ix.order)
}

// LinkCount returns the number of indexed links across all identifiers.
func (ix *Index) LinkCount() int {
	n := 0
	for _, links := range ix.links {
		n += len(links)
	}
	return n
}

// Counts summarises one indexing pass.
type Counts struct {
	Scanned int `json:"links_scanned"`
	Matched int `json:"links_matched"`
	Unique  int `json:"unique_ids"`
}

// Indexer runs the matcher over a page's links.
type Indexer struct {
	matcher *identifier.Matcher
	logger  *slog.Logger
}

// NewIndexer creates an Indexer. A nil logger uses slog.Default().
func NewIndexer(matcher *identifier.Matcher, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{matcher: matcher, logger: logger}
}

// Build indexes links. Links without a URL are skipped, and a link that
// appears twice is only indexed the first time.
func (x *Indexer) Build(links []*Link) (*Index, Counts) {
	ix := newIndex()
	counts := Counts{Scanned: len(links)}
	seen := make(map[*Link]struct{}, len(links))

	for _, link := range links {
		if link == nil || link.Href == "" {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}

		id, ok := x.match(link.Href)
		if !ok {
			continue
		}
		counts.Matched++
		ix.add(id, link)
	}
	counts.Unique = ix.Len()
	return ix, counts
}

// match isolates each link so a misbehaving heuristic cannot abort the scan.
func (x *Indexer) match(href string) (id string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			x.logger.Warn("identifier heuristic panicked",
				slog.String("url", href),
				slog.String("panic", fmt.Sprint(r)))
			id, ok = "", false
		}
	}()
	return x.matcher.Match(href)
}
