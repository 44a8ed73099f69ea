package storage

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/justyntemme/shelfscan/internal/identifier"
	"github.com/justyntemme/shelfscan/internal/models"
)

const maxDumpLine = 1 << 20

func newLineScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxDumpLine)
	return sc
}

// ParseSecondaryISBNs reads a pipe-separated ISBN dump. Three layouts have
// been published over time and all are accepted:
//
//	isbn|status|priority
//	isbn|priority
//	isbn10|isbn13|priority|asin
//
// Lines that fit none of them are skipped and counted.
func ParseSecondaryISBNs(r io.Reader) ([]models.SecondaryISBN, int, error) {
	var out []models.SecondaryISBN
	skipped := 0

	sc := newLineScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}

		fields := strings.Split(line, "|")
		rec := models.SecondaryISBN{}
		switch len(fields) {
		case 3:
			status, err := strconv.Atoi(strings.TrimSpace(fields[1]))
			if err != nil {
				skipped++
				continue
			}
			rec.ISBN, rec.Status, rec.Priority = fields[0], status, parsePriority(fields[2])
		case 2:
			rec.ISBN, rec.Priority = fields[0], parsePriority(fields[1])
		case 4:
			rec.ISBN, rec.Priority, rec.ASIN = fields[1], parsePriority(fields[2]), strings.TrimSpace(fields[3])
		default:
			skipped++
			continue
		}

		rec.ISBN = strings.TrimSpace(rec.ISBN)
		if rec.ISBN == "" {
			skipped++
			continue
		}
		out = append(out, rec)
	}
	return out, skipped, sc.Err()
}

// ParseSecondaryASINs reads a pipe-separated ASIN dump in any of its
// layouts: asin|isbn, asin|flag|isbn, or asin|isbn|queue. A three-field line
// is read as asin|flag|isbn when its last field looks like an ISBN.
func ParseSecondaryASINs(r io.Reader) ([]models.SecondaryASIN, int, error) {
	var out []models.SecondaryASIN
	skipped := 0

	sc := newLineScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}

		fields := strings.Split(line, "|")
		var rec models.SecondaryASIN
		switch {
		case len(fields) == 2:
			rec.ASIN, rec.ISBN = fields[0], fields[1]
		case len(fields) == 3 && len(fields[2]) >= 10:
			rec.ASIN, rec.ISBN = fields[0], fields[2]
		case len(fields) == 3:
			rec.ASIN, rec.ISBN = fields[0], fields[1]
		default:
			skipped++
			continue
		}

		rec.ASIN = strings.TrimSpace(rec.ASIN)
		rec.ISBN = strings.TrimSpace(rec.ISBN)
		if rec.ASIN == "" {
			skipped++
			continue
		}
		out = append(out, rec)
	}
	return out, skipped, sc.Err()
}

// ParseKnownIdentifiers reads one identifier per line. Blank lines and lines
// starting with # are ignored; values that do not normalize to an ISBN or
// ASIN are skipped and counted.
func ParseKnownIdentifiers(r io.Reader, source string) ([]models.KnownIdentifier, int, error) {
	var out []models.KnownIdentifier
	skipped := 0
	now := time.Now()

	sc := newLineScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		id, ok := identifier.Normalize(line)
		if !ok {
			skipped++
			continue
		}
		out = append(out, models.KnownIdentifier{
			Value:   id,
			Kind:    identifier.KindOf(id).String(),
			Source:  source,
			AddedAt: now,
		})
	}
	return out, skipped, sc.Err()
}

func parsePriority(raw string) models.Priority {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return models.Priority(strconv.Itoa(n))
	}
	return models.Priority(raw)
}
