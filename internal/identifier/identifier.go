package identifier

import (
	"strconv"
	"strings"
)

// Kind classifies a normalized identifier.
type Kind int

const (
	KindUnknown Kind = iota
	KindISBN10
	KindISBN13
	KindASIN
)

func (k Kind) String() string {
	switch k {
	case KindISBN10:
		return "ISBN-10"
	case KindISBN13:
		return "ISBN-13"
	case KindASIN:
		return "ASIN"
	default:
		return "unknown"
	}
}

// Normalize reduces a raw identifier to its canonical form: uppercase, with
// separators removed. ISBNs keep only digits and the ISBN-10 check character;
// ASINs keep their ten alphanumerics. Normalizing an already normalized value
// returns it unchanged.
func Normalize(raw string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(raw))

	isbn := keepISBNChars(upper)
	if isISBN13(isbn) || isISBN10(isbn) {
		return isbn, true
	}

	alnum := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') {
			return r
		}
		return -1
	}, upper)
	if isASIN(alnum) {
		return alnum, true
	}
	return "", false
}

// KindOf reports which identifier family a normalized value belongs to.
func KindOf(id string) Kind {
	switch {
	case isISBN13(id):
		return KindISBN13
	case isISBN10(id):
		return KindISBN10
	case isASIN(id):
		return KindASIN
	default:
		return KindUnknown
	}
}

// PossibleASIN reports whether id could be an ASIN rather than an ISBN.
// Every ISBN starts with a digit.
func PossibleASIN(id string) bool {
	return id != "" && (id[0] < '0' || id[0] > '9')
}

// ToISBN13 converts an ISBN-10 to its 978-prefixed ISBN-13. Anything that is
// not ten characters long, or whose first nine characters are not digits, is
// returned as given.
func ToISBN13(isbn10 string) string {
	if len(isbn10) != 10 || !allDigits(isbn10[:9]) {
		return isbn10
	}
	body := "978" + isbn10[:9]
	sum := 0
	for i, r := range body {
		d := int(r - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return body + strconv.Itoa(check)
}

// ToISBN10 converts a 978-prefixed ISBN-13 back to ISBN-10. Other values,
// including 979-prefixed ISBNs which have no ISBN-10 form, are returned as
// given.
func ToISBN10(isbn13 string) string {
	if len(isbn13) != 13 || !strings.HasPrefix(isbn13, "978") || !allDigits(isbn13) {
		return isbn13
	}
	body := isbn13[3:12]
	sum := 0
	for i, r := range body {
		sum += (i + 1) * int(r-'0')
	}
	remain := sum % 11
	if remain == 10 {
		return body + "X"
	}
	return body + strconv.Itoa(remain)
}

// Variants returns the ISBN-10 and ISBN-13 spellings of the same ISBN,
// without duplicates. Values with no alternate form yield a single entry.
func Variants(isbn string) []string {
	if isbn == "" {
		return nil
	}
	ten, thirteen := ToISBN10(isbn), ToISBN13(isbn)
	if ten == thirteen {
		return []string{ten}
	}
	return []string{ten, thirteen}
}

func keepISBNChars(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == 'X' {
			return r
		}
		return -1
	}, s)
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, s)
}

func isISBN13(s string) bool {
	return len(s) == 13 && allDigits(s)
}

func isISBN10(s string) bool {
	if len(s) != 10 || !allDigits(s[:9]) {
		return false
	}
	last := s[9]
	return (last >= '0' && last <= '9') || last == 'X'
}

func isASIN(s string) bool {
	if len(s) != 10 || s[0] != 'B' {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z')) {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
