package scanner

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/shelfscan/internal/identifier"
)

func newTestIndexer() *Indexer {
	return NewIndexer(identifier.NewMatcher(identifier.DefaultConfig(), nil), nil)
}

func linksFor(hrefs ...string) []*Link {
	links := make([]*Link, len(hrefs))
	for i, h := range hrefs {
		links[i] = NewLink(h)
	}
	return links
}

func TestBuildIndex(t *testing.T) {
	links := linksFor(
		"https://www.amazon.com/Some-Title/dp/0316098094/",
		"https://example.com/about",
		"https://www.amazon.com/s?k=9780593085172&tag=locusmag06-20",
		"",
		"https://bookshop.example/isbn/0316098094",
		"mailto:editor@example.com",
		"https://example.com/book/9780-5930-85172.html",
	)

	ix, counts := newTestIndexer().Build(links)

	assert.Equal(t, Counts{Scanned: 7, Matched: 4, Unique: 2}, counts)
	assert.Equal(t, []string{"0316098094", "9780593085172"}, ix.Identifiers())
	assert.Equal(t, []*Link{links[0], links[4]}, ix.Links("0316098094"))
	assert.Equal(t, []*Link{links[2], links[6]}, ix.Links("9780593085172"))
	assert.True(t, ix.Contains("0316098094"))
	assert.False(t, ix.Contains("B000APZNR0"))
	assert.Nil(t, ix.Links("B000APZNR0"))
}

func TestBuildIndexLinkCountMatchesMatcher(t *testing.T) {
	hrefs := []string{
		"https://www.amazon.com/dp/B07XJ8C8F5",
		"https://www.amazon.com/dp/B07XJ8C8F5",
		"https://www.goodreads.com/book/show/0316098094",
		"javascript:void(0)",
		"https://example.com/9780306406157",
		"https://example.com/0306406152",
		"https://www.amazon.co.uk/Author-Name/e/B000APZNR0/",
		"https://example.com/",
	}
	m := identifier.NewMatcher(identifier.DefaultConfig(), nil)
	expected := 0
	for _, h := range hrefs {
		if _, ok := m.Match(h); ok {
			expected++
		}
	}

	ix, counts := NewIndexer(m, nil).Build(linksFor(hrefs...))
	assert.Equal(t, expected, counts.Matched)
	assert.Equal(t, expected, ix.LinkCount())
	assert.Equal(t, ix.Len(), counts.Unique)
}

func TestBuildIndexSkipsRepeatedLink(t *testing.T) {
	link := NewLink("https://example.com/9780306406157")
	ix, counts := newTestIndexer().Build([]*Link{link, link, nil})

	assert.Equal(t, 1, counts.Matched)
	assert.Len(t, ix.Links("9780306406157"), 1)
}

func TestIdentifiersReturnsCopy(t *testing.T) {
	ix, _ := newTestIndexer().Build(linksFor("https://example.com/9780306406157"))
	ids := ix.Identifiers()
	ids[0] = "changed"
	assert.Equal(t, []string{"9780306406157"}, ix.Identifiers())
}

func TestBuildIndexSurvivesPanickingHeuristic(t *testing.T) {
	cfg := identifier.DefaultConfig()
	cfg.Segments = append([]identifier.SegmentHeuristic{{
		Name: "explodes",
		Match: func(_ *url.URL, _ []string, _ int, seg string) (string, bool) {
			if seg == "boom" {
				panic("bad heuristic")
			}
			return "", false
		},
	}}, cfg.Segments...)
	indexer := NewIndexer(identifier.NewMatcher(cfg, nil), nil)

	ix, counts := indexer.Build(linksFor(
		"https://example.com/boom/9780306406157",
		"https://example.com/9780593085172",
	))
	require.Equal(t, 1, counts.Matched)
	assert.Equal(t, []string{"9780593085172"}, ix.Identifiers())
}
