package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/justyntemme/shelfscan/internal/models"
)

// Common errors
var (
	ErrNotFound  = errors.New("not found")
	ErrUnchanged = errors.New("file unchanged since last import")
	ErrLocked    = errors.New("another import is running")
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store persists the identifiers the lookup catalog is built from.
type Store interface {
	// AddKnown inserts primary-catalog identifiers, ignoring ones already
	// present, and returns how many were new.
	AddKnown(ctx context.Context, ids []models.KnownIdentifier) (int, error)
	KnownIdentifiers(ctx context.Context) ([]string, error)

	// ReplaceSecondary swaps the secondary-source tables for the given
	// contents. A nil slice leaves that table untouched.
	ReplaceSecondary(ctx context.Context, isbns []models.SecondaryISBN, asins []models.SecondaryASIN) error
	SecondaryISBNs(ctx context.Context) ([]models.SecondaryISBN, error)
	SecondaryASINs(ctx context.Context) ([]models.SecondaryASIN, error)

	RecordImport(ctx context.Context, rec models.ImportRecord) error
	// LastImport returns the most recent import of kind, or ErrNotFound.
	LastImport(ctx context.Context, kind string) (*models.ImportRecord, error)

	Close() error
}

// Options selects and configures a Store.
type Options struct {
	Driver string
	Path   string
	DSN    string
}

// Open creates the store described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverSQLite:
		return NewSQLite(opts.Path)
	case DriverPostgres:
		return NewPostgres(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
