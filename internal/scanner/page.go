package scanner

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Link is a reference to one anchor element. Href is the resolved target,
// or empty when the anchor has none.
type Link struct {
	Href string
	sel  *goquery.Selection
}

// NewLink returns a Link that is not attached to any document.
func NewLink(href string) *Link {
	return &Link{Href: href}
}

// Text returns the anchor's text content.
func (l *Link) Text() string {
	if l.sel == nil {
		return ""
	}
	return strings.TrimSpace(l.sel.Text())
}

const styleElementID = "shelfscan-styles"

// The opacity lets content underneath show through when a highlighted link
// sits on top of something else.
const stylesheet = `
.shelfscan-highlight-unknown { background: pink !important; opacity: 0.9; }
.shelfscan-highlight-unknown:hover { opacity: 0.5; }
.shelfscan-highlight-unknown img { border: 5px solid pink !important; opacity: 0.9; }
.shelfscan-highlight-unknown img:hover { opacity: 0.5; }
.shelfscan-highlight-known-to-secondary { background: purple !important; opacity: 0.9; }
.shelfscan-highlight-known-to-secondary:hover { opacity: 0.5; }
.shelfscan-highlight-known-to-secondary img { border: 5px solid purple !important; opacity: 0.9; }
.shelfscan-highlight-known-to-secondary img:hover { opacity: 0.5; }
`

// ErrForeignLink is returned when annotating a link that does not belong to
// the page.
var ErrForeignLink = errors.New("link does not belong to this page")

// Page is a parsed HTML document. It is the link source for a scan and the
// annotation sink for its results.
type Page struct {
	doc      *goquery.Document
	base     *url.URL
	detached atomic.Bool
}

// NewPage parses an HTML document. Relative hrefs are resolved against
// baseURL, or against the document's own <base href> when it has one.
func NewPage(r io.Reader, baseURL string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var base *url.URL
	if baseURL != "" {
		base, err = url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			if base != nil {
				base = base.ResolveReference(ref)
			} else if ref.IsAbs() {
				base = ref
			}
		}
	}

	return &Page{doc: doc, base: base}, nil
}

// URL returns the base URL links are resolved against, if any.
func (p *Page) URL() string {
	if p.base == nil {
		return ""
	}
	return p.base.String()
}

// Links returns every anchor on the page in document order.
func (p *Page) Links() []*Link {
	var links []*Link
	p.doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		links = append(links, &Link{Href: p.resolve(href), sel: sel})
	})
	return links
}

func (p *Page) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		// left as is; the matcher will not accept it
		return href
	}
	if p.base == nil {
		return ref.String()
	}
	return p.base.ResolveReference(ref).String()
}

// AddClassification adds the classification's CSS class to the link.
func (p *Page) AddClassification(link *Link, c Classification) error {
	if p.detached.Load() {
		return ErrDetached
	}
	if link == nil || link.sel == nil {
		return ErrForeignLink
	}
	link.sel.AddClass(c.CSSClass())
	return nil
}

// Classifications returns the highlight classes currently on the link.
func (p *Page) Classifications(link *Link) []Classification {
	if link == nil || link.sel == nil {
		return nil
	}
	var out []Classification
	for _, c := range []Classification{ClassUnknown, ClassKnownToSecondary} {
		if link.sel.HasClass(c.CSSClass()) {
			out = append(out, c)
		}
	}
	return out
}

// InjectStyles adds the highlight stylesheet to the document head. Calling
// it again has no effect.
func (p *Page) InjectStyles() {
	if p.doc.Find("style#"+styleElementID).Length() > 0 {
		return
	}
	head := p.doc.Find("head").First()
	if head.Length() == 0 {
		p.doc.Find("html").First().PrependHtml("<head></head>")
		head = p.doc.Find("head").First()
	}
	head.AppendHtml(`<style id="` + styleElementID + `">` + stylesheet + `</style>`)
}

// Close detaches the page. Annotations arriving afterwards are dropped.
func (p *Page) Close() {
	p.detached.Store(true)
}

// Render writes the document, including any annotations, as HTML.
func (p *Page) Render(w io.Writer) error {
	for _, n := range p.doc.Nodes {
		if err := html.Render(w, n); err != nil {
			return err
		}
	}
	return nil
}

// HTML returns the rendered document.
func (p *Page) HTML() (string, error) {
	var b strings.Builder
	if err := p.Render(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}
