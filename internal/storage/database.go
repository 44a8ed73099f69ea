package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/justyntemme/shelfscan/internal/models"
)

// SQLite is the default Store, kept in a single database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the SQLite database at dbPath
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS known_identifiers (
		value TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS secondary_isbns (
		isbn TEXT PRIMARY KEY,
		status INTEGER NOT NULL DEFAULT 0,
		priority TEXT NOT NULL DEFAULT '',
		asin TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS secondary_asins (
		asin TEXT PRIMARY KEY,
		isbn TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS imports (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		path TEXT NOT NULL,
		sha256 TEXT NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		imported_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_imports_kind ON imports(kind, imported_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// AddKnown inserts identifiers into the primary catalog
func (s *SQLite) AddKnown(ctx context.Context, ids []models.KnownIdentifier) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO known_identifiers (value, kind, source, added_at)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	added := 0
	for _, id := range ids {
		addedAt := id.AddedAt
		if addedAt.IsZero() {
			addedAt = time.Now()
		}
		res, err := stmt.ExecContext(ctx, id.Value, id.Kind, id.Source, addedAt)
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}

	return added, tx.Commit()
}

// KnownIdentifiers returns every identifier in the primary catalog
func (s *SQLite) KnownIdentifiers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT value FROM known_identifiers ORDER BY value`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReplaceSecondary replaces the secondary-source tables in one transaction
func (s *SQLite) ReplaceSecondary(ctx context.Context, isbns []models.SecondaryISBN, asins []models.SecondaryASIN) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if isbns != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM secondary_isbns`); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO secondary_isbns (isbn, status, priority, asin)
			VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range isbns {
			if _, err := stmt.ExecContext(ctx, r.ISBN, r.Status, string(r.Priority), r.ASIN); err != nil {
				return err
			}
		}
	}

	if asins != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM secondary_asins`); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO secondary_asins (asin, isbn) VALUES (?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range asins {
			if _, err := stmt.ExecContext(ctx, r.ASIN, r.ISBN); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// SecondaryISBNs returns the secondary source's ISBN records
func (s *SQLite) SecondaryISBNs(ctx context.Context) ([]models.SecondaryISBN, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT isbn, status, priority, asin FROM secondary_isbns ORDER BY isbn`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SecondaryISBN
	for rows.Next() {
		var r models.SecondaryISBN
		var priority string
		if err := rows.Scan(&r.ISBN, &r.Status, &priority, &r.ASIN); err != nil {
			return nil, err
		}
		r.Priority = models.Priority(priority)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SecondaryASINs returns the secondary source's ASIN records
func (s *SQLite) SecondaryASINs(ctx context.Context) ([]models.SecondaryASIN, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT asin, isbn FROM secondary_asins ORDER BY asin`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SecondaryASIN
	for rows.Next() {
		var r models.SecondaryASIN
		if err := rows.Scan(&r.ASIN, &r.ISBN); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordImport saves an import record
func (s *SQLite) RecordImport(ctx context.Context, rec models.ImportRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO imports (id, kind, path, sha256, row_count, imported_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind, rec.Path, rec.SHA256, rec.Rows, rec.ImportedAt,
	)
	return err
}

// LastImport returns the latest import of the given kind
func (s *SQLite) LastImport(ctx context.Context, kind string) (*models.ImportRecord, error) {
	rec := &models.ImportRecord{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, kind, path, sha256, row_count, imported_at
		FROM imports WHERE kind = ?
		ORDER BY imported_at DESC LIMIT 1`, kind,
	).Scan(&rec.ID, &rec.Kind, &rec.Path, &rec.SHA256, &rec.Rows, &rec.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Close closes the database connection
func (s *SQLite) Close() error {
	return s.db.Close()
}
