package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// LookupResult is one entry of a batch check response
type LookupResult struct {
	ID                   string   `json:"id"`
	SuppliedID           string   `json:"supplied_id,omitempty"`
	Known                bool     `json:"known"`
	MatchedID            string   `json:"matched_id,omitempty"`
	Status               *int     `json:"status,omitempty"`
	Priority             Priority `json:"priority,omitempty"`
	ASINKnownToSecondary *bool    `json:"asin_known_to_secondary,omitempty"`
}

// KnownToSecondary reports whether the secondary source has a record for
// this identifier. Only the presence of a status matters.
func (r LookupResult) KnownToSecondary() bool {
	return r.Status != nil
}

// SecondaryDescription describes the secondary source's queue state.
func (r LookupResult) SecondaryDescription() string {
	if r.Status == nil {
		return ""
	}
	if r.Priority != "" {
		return r.Priority.Description()
	}
	return fmt.Sprintf("status %d", *r.Status)
}

// Priority is a secondary-source queue marker: a small integer, "n" for new
// and unprioritized entries, or empty. Older servers send it as a JSON number.
type Priority string

// PriorityNew marks entries that have not been prioritized yet.
const PriorityNew Priority = "n"

// QueueNames maps numeric priorities to their meaning.
var QueueNames = map[int]string{
	0: "Insufficient information",
	1: "High priority",
	2: "Medium priority",
	3: "Low priority",
	4: "Already uploaded",
	5: "Pending upload",
	8: "Submitted to server",
	9: "Manually rejected",
}

// Description returns a human readable name for the priority.
func (p Priority) Description() string {
	if p == PriorityNew {
		return "New/unprioritized"
	}
	n, err := strconv.Atoi(string(p))
	if err != nil {
		return string(p)
	}
	if name, ok := QueueNames[n]; ok {
		return name
	}
	return fmt.Sprintf("Unused #%d", n)
}

// UnmarshalJSON accepts a string, a number, or null.
func (p *Priority) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Priority(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("priority: %w", err)
	}
	*p = Priority(n.String())
	return nil
}

// KnownIdentifier is an identifier present in the primary catalog
type KnownIdentifier struct {
	Value   string    `json:"value"`
	Kind    string    `json:"kind"`
	Source  string    `json:"source,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

// SecondaryISBN is an ISBN known to the secondary source
type SecondaryISBN struct {
	ISBN     string   `json:"isbn"`
	Status   int      `json:"status"`
	Priority Priority `json:"priority,omitempty"`
	ASIN     string   `json:"asin,omitempty"`
}

// SecondaryASIN is an ASIN known to the secondary source, with the ISBN it
// maps to when there is one
type SecondaryASIN struct {
	ASIN string `json:"asin"`
	ISBN string `json:"isbn,omitempty"`
}

// Import kinds recorded in ImportRecord.Kind
const (
	ImportKnown          = "known"
	ImportSecondaryISBNs = "secondary_isbns"
	ImportSecondaryASINs = "secondary_asins"
)

// ImportRecord tracks a data file loaded into the store
type ImportRecord struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Path       string    `json:"path"`
	SHA256     string    `json:"sha256"`
	Rows       int       `json:"rows"`
	ImportedAt time.Time `json:"imported_at"`
}
