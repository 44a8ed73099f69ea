package identifier

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// SegmentFunc inspects the path segment at index i. segs holds the raw path
// segments; seg is segs[i] with any ".html" suffix already removed.
type SegmentFunc func(u *url.URL, segs []string, i int, seg string) (string, bool)

// URLFunc inspects a whole URL. URL heuristics only run once no path segment
// produced an identifier.
type URLFunc func(u *url.URL) (string, bool)

// SegmentHeuristic is a named per-segment extractor.
type SegmentHeuristic struct {
	Name  string
	Match SegmentFunc
}

// URLHeuristic is a named whole-URL extractor.
type URLHeuristic struct {
	Name  string
	Match URLFunc
}

// Config drives a Matcher. Heuristics run in slice order and the first one to
// produce an identifier wins.
type Config struct {
	Ignore    []*regexp.Regexp
	Segments  []SegmentHeuristic
	Fallbacks []URLHeuristic
}

// DefaultIgnorePatterns lists sites whose URLs carry numeric IDs that look
// like ISBN-10s but never are.
var DefaultIgnorePatterns = []string{
	`www\.goodreads\.com`,
}

// DefaultSegmentHeuristics returns the built-in per-segment chain.
func DefaultSegmentHeuristics() []SegmentHeuristic {
	return []SegmentHeuristic{
		{Name: "amazon-dp", Match: amazonDP},
		{Name: "amazon-gp-product", Match: amazonGPProduct},
		{Name: "amazon-entity", Match: amazonEntity},
		{Name: "isbn13", Match: isbn13Segment},
		{Name: "isbn10", Match: isbn10Segment},
	}
}

// DefaultFallbacks returns the built-in whole-URL chain.
func DefaultFallbacks() []URLHeuristic {
	return []URLHeuristic{
		{Name: "amazon-search", Match: FromAmazonSearch},
	}
}

// DefaultConfig returns the stock matcher configuration.
func DefaultConfig() Config {
	ignore, _ := CompileIgnoreList(DefaultIgnorePatterns)
	return Config{
		Ignore:    ignore,
		Segments:  DefaultSegmentHeuristics(),
		Fallbacks: DefaultFallbacks(),
	}
}

// CompileIgnoreList compiles domain patterns for Config.Ignore.
func CompileIgnoreList(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("ignore pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// SiteRule is a configurable extractor for one site's URL scheme. Host is
// matched against the URL host, Pattern against path plus query; the first
// capture group must hold the identifier.
type SiteRule struct {
	Name    string `toml:"name"`
	Host    string `toml:"host"`
	Pattern string `toml:"pattern"`
}

// Compile turns the rule into a URLHeuristic.
func (r SiteRule) Compile() (URLHeuristic, error) {
	host, err := regexp.Compile(r.Host)
	if err != nil {
		return URLHeuristic{}, fmt.Errorf("site rule %s host: %w", r.Name, err)
	}
	pattern, err := regexp.Compile(r.Pattern)
	if err != nil {
		return URLHeuristic{}, fmt.Errorf("site rule %s pattern: %w", r.Name, err)
	}
	if pattern.NumSubexp() < 1 {
		return URLHeuristic{}, fmt.Errorf("site rule %s: pattern needs a capture group", r.Name)
	}
	return URLHeuristic{
		Name: "site:" + r.Name,
		Match: func(u *url.URL) (string, bool) {
			if !host.MatchString(u.Host) {
				return "", false
			}
			m := pattern.FindStringSubmatch(u.RequestURI())
			if m == nil {
				return "", false
			}
			return Normalize(m[1])
		},
	}, nil
}

// Matcher finds a book identifier embedded in a URL.
type Matcher struct {
	cfg    Config
	logger *slog.Logger
}

// NewMatcher creates a Matcher. A nil logger uses slog.Default().
func NewMatcher(cfg Config, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{cfg: cfg, logger: logger}
}

// Match returns the identifier embedded in rawURL, if any. Anything that is
// not an absolute http(s) URL, is on an ignored site, or fails to parse is
// simply not a match.
func (m *Matcher) Match(rawURL string) (string, bool) {
	if !hasHTTPScheme(rawURL) {
		return "", false
	}
	if m.Ignored(rawURL) {
		return "", false
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}

	segs := strings.Split(u.Path, "/")
	for i := range segs {
		seg := strings.TrimSuffix(segs[i], ".html")
		for _, h := range m.cfg.Segments {
			if id, ok := h.Match(u, segs, i, seg); ok {
				m.logger.Debug("identifier found", slog.String("id", id), slog.String("heuristic", h.Name))
				return id, true
			}
		}
	}

	for _, h := range m.cfg.Fallbacks {
		if id, ok := h.Match(u); ok {
			m.logger.Debug("identifier found", slog.String("id", id), slog.String("heuristic", h.Name))
			return id, true
		}
	}
	return "", false
}

// Ignored reports whether rawURL belongs to an ignore-listed site.
func (m *Matcher) Ignored(rawURL string) bool {
	for _, re := range m.cfg.Ignore {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
