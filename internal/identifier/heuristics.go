package identifier

import (
	"net/url"
	"regexp"
	"strings"
)

// Both patterns are anchored at the start of the segment. A run elsewhere in
// the segment (e.g. a slug ending in digits) is not an identifier.
var (
	isbn13Run = regexp.MustCompile(`^[\d \-]{13,}`)
	isbn10Run = regexp.MustCompile(`^[\dXx \-]{10,}`)
)

// amazonDP handles /dp/{ASIN}.
func amazonDP(_ *url.URL, segs []string, i int, seg string) (string, bool) {
	if seg != "dp" || i+1 >= len(segs) || len(segs[i+1]) != 10 {
		return "", false
	}
	return segs[i+1], true
}

// amazonGPProduct handles /gp/product/{ASIN}, as linked from author pages.
func amazonGPProduct(_ *url.URL, segs []string, i int, seg string) (string, bool) {
	if seg != "gp" || i+2 >= len(segs) || segs[i+1] != "product" || len(segs[i+2]) != 10 {
		return "", false
	}
	return segs[i+2], true
}

// amazonEntity handles /{name}/e/{ASIN} entity pages on Amazon hosts.
func amazonEntity(u *url.URL, segs []string, i int, seg string) (string, bool) {
	if seg != "e" || i+1 >= len(segs) || !isAmazonHost(u) {
		return "", false
	}
	next := strings.ToUpper(segs[i+1])
	if !isASIN(next) {
		return "", false
	}
	return segs[i+1], true
}

func isbn13Segment(_ *url.URL, _ []string, _ int, seg string) (string, bool) {
	if !isbn13Run.MatchString(seg) {
		return "", false
	}
	candidate := stripSeparators(seg)
	if !isISBN13(candidate) {
		return "", false
	}
	return candidate, true
}

func isbn10Segment(_ *url.URL, _ []string, _ int, seg string) (string, bool) {
	if !isbn10Run.MatchString(seg) {
		return "", false
	}
	candidate := strings.ToUpper(stripSeparators(seg))
	if !isISBN10(candidate) {
		return "", false
	}
	return candidate, true
}

func isAmazonHost(u *url.URL) bool {
	return strings.Contains(strings.ToLower(u.Hostname()), "amazon")
}
