package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justyntemme/shelfscan/internal/models"
)

// Postgres is a Store backed by a PostgreSQL connection pool.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres connects to dsn and creates the tables if needed.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := &Postgres{db: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS known_identifiers (
		value TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		added_at TIMESTAMPTZ NOT NULL DEFAULT now()
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
		id UUID PRIMARY KEY,
		kind TEXT NOT NULL,
		path TEXT NOT NULL,
		sha256 TEXT NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_imports_kind ON imports(kind, imported_at);`

	_, err := p.db.Exec(ctx, schema)
	return err
}

func (p *Postgres) AddKnown(ctx context.Context, ids []models.KnownIdentifier) (int, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	const q = `
		INSERT INTO known_identifiers (value, kind, source, added_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (value) DO NOTHING`

	added := 0
	for _, id := range ids {
		addedAt := id.AddedAt
		if addedAt.IsZero() {
			addedAt = time.Now()
		}
		tag, err := tx.Exec(ctx, q, id.Value, id.Kind, id.Source, addedAt)
		if err != nil {
			return 0, fmt.Errorf("insert known identifier: %w", err)
		}
		added += int(tag.RowsAffected())
	}

	return added, tx.Commit(ctx)
}

func (p *Postgres) KnownIdentifiers(ctx context.Context) ([]string, error) {
	rows, err := p.db.Query(ctx, `SELECT value FROM known_identifiers ORDER BY value`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (p *Postgres) ReplaceSecondary(ctx context.Context, isbns []models.SecondaryISBN, asins []models.SecondaryASIN) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if isbns != nil {
		if _, err := tx.Exec(ctx, `TRUNCATE secondary_isbns`); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, r := range isbns {
			batch.Queue(`
				INSERT INTO secondary_isbns (isbn, status, priority, asin) VALUES ($1, $2, $3, $4)
				ON CONFLICT (isbn) DO UPDATE SET status = EXCLUDED.status, priority = EXCLUDED.priority, asin = EXCLUDED.asin`,
				r.ISBN, r.Status, string(r.Priority), r.ASIN)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert secondary isbns: %w", err)
		}
	}

	if asins != nil {
		if _, err := tx.Exec(ctx, `TRUNCATE secondary_asins`); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, r := range asins {
			batch.Queue(`
				INSERT INTO secondary_asins (asin, isbn) VALUES ($1, $2)
				ON CONFLICT (asin) DO UPDATE SET isbn = EXCLUDED.isbn`,
				r.ASIN, r.ISBN)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert secondary asins: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (p *Postgres) SecondaryISBNs(ctx context.Context) ([]models.SecondaryISBN, error) {
	rows, err := p.db.Query(ctx, `SELECT isbn, status, priority, asin FROM secondary_isbns ORDER BY isbn`)
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

func (p *Postgres) SecondaryASINs(ctx context.Context) ([]models.SecondaryASIN, error) {
	rows, err := p.db.Query(ctx, `SELECT asin, isbn FROM secondary_asins ORDER BY asin`)
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

func (p *Postgres) RecordImport(ctx context.Context, rec models.ImportRecord) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO imports (id, kind, path, sha256, row_count, imported_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.Kind, rec.Path, rec.SHA256, rec.Rows, rec.ImportedAt)
	return err
}

func (p *Postgres) LastImport(ctx context.Context, kind string) (*models.ImportRecord, error) {
	rec := &models.ImportRecord{}
	err := p.db.QueryRow(ctx, `
		SELECT id::text, kind, path, sha256, row_count, imported_at
		FROM imports WHERE kind = $1
		ORDER BY imported_at DESC LIMIT 1`, kind,
	).Scan(&rec.ID, &rec.Kind, &rec.Path, &rec.SHA256, &rec.Rows, &rec.ImportedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}
