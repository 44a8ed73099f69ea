package identifier

import (
	"net/url"
	"strings"
)

// FromAmazonSearch extracts an identifier from an Amazon search-results URL.
// Two URL schemes are in use:
//
//	/gp/search?keywords=9781250176202&index=books   (until early 2021)
//	/s?k=9780593085172&tag=...                       (since)
//
// The query value is accepted as an ISBN when it has 10 or 13 ISBN
// characters once separators are dropped, or as an ASIN when it is exactly
// ten characters starting with 'B'.
func FromAmazonSearch(u *url.URL) (string, bool) {
	if u == nil || !isAmazonHost(u) {
		return "", false
	}

	var val string
	switch {
	case strings.HasPrefix(u.Path, "/gp/search"):
		val = u.Query().Get("keywords")
	case u.Path == "/s":
		// exact: plenty of other paths start with /s
		val = u.Query().Get("k")
	}
	if val == "" {
		return "", false
	}

	cleaned := keepISBNChars(strings.ToUpper(val))
	if len(cleaned) == 10 || len(cleaned) == 13 {
		return cleaned, true
	}
	if len(val) == 10 && val[0] == 'B' {
		return val, true
	}
	return "", false
}
