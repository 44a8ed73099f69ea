// Package lookup answers "is this identifier already catalogued?" either from
// an in-memory catalog or from a remote lookup server.
package lookup

import (
	"context"
	"errors"

	"github.com/justyntemme/shelfscan/internal/models"
)

// Common errors
var (
	ErrTransport   = errors.New("lookup server unreachable")
	ErrBadResponse = errors.New("malformed lookup response")
)

// APIVersion is sent by the server with every batch response.
const APIVersion = "0.2"

// Headers exchanged between client and server
const (
	HeaderAPIVersion = "X-Shelfscan-API-Version"
	HeaderClient     = "X-Shelfscan-Client"
)

// Checker checks a batch of normalized identifiers. Results come back in the
// order the identifiers were supplied.
type Checker interface {
	BatchCheck(ctx context.Context, ids []string) ([]models.LookupResult, error)
}
