package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/justyntemme/shelfscan/internal/models"
)

// ImportResult describes one imported data file.
type ImportResult struct {
	Kind      string `json:"kind"`
	Path      string `json:"path"`
	Rows      int    `json:"rows"`
	Added     int    `json:"added"`
	Skipped   int    `json:"skipped"`
	Unchanged bool   `json:"unchanged"`
	SHA256    string `json:"sha256"`
}

// Importer loads data files into a Store. Only one import runs at a time
// across processes sharing the lock file.
type Importer struct {
	store  Store
	lock   *flock.Flock
	logger *slog.Logger
}

// NewImporter creates an Importer that serialises on lockPath.
func NewImporter(store Store, lockPath string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		store:  store,
		lock:   flock.New(lockPath),
		logger: logger,
	}
}

func (im *Importer) acquire() (func(), error) {
	ok, err := im.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire import lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		if err := im.lock.Unlock(); err != nil {
			im.logger.Warn("failed to release import lock", slog.Any("error", err))
		}
	}, nil
}

// unchanged reports whether the last import of kind had the same fingerprint.
func (im *Importer) unchanged(ctx context.Context, kind, sum string) (bool, error) {
	last, err := im.store.LastImport(ctx, kind)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return last.SHA256 == sum, nil
}

func (im *Importer) record(ctx context.Context, res ImportResult) error {
	return im.store.RecordImport(ctx, models.ImportRecord{
		ID:         uuid.New().String(),
		Kind:       res.Kind,
		Path:       res.Path,
		SHA256:     res.SHA256,
		Rows:       res.Rows,
		ImportedAt: time.Now(),
	})
}

// ImportKnown adds the identifiers listed in path to the primary catalog.
// An unchanged file is skipped with ErrUnchanged unless force is set.
func (im *Importer) ImportKnown(ctx context.Context, path, source string, force bool) (ImportResult, error) {
	release, err := im.acquire()
	if err != nil {
		return ImportResult{}, err
	}
	defer release()

	res := ImportResult{Kind: models.ImportKnown, Path: path}
	data, sum, err := ReadFingerprinted(path)
	if err != nil {
		return res, err
	}
	res.SHA256 = sum

	if !force {
		same, err := im.unchanged(ctx, res.Kind, sum)
		if err != nil {
			return res, err
		}
		if same {
			res.Unchanged = true
			return res, ErrUnchanged
		}
	}

	if source == "" {
		source = path
	}
	ids, skipped, err := ParseKnownIdentifiers(bytes.NewReader(data), source)
	if err != nil {
		return res, fmt.Errorf("parse %s: %w", path, err)
	}
	res.Rows, res.Skipped = len(ids), skipped

	if res.Added, err = im.store.AddKnown(ctx, ids); err != nil {
		return res, fmt.Errorf("store known identifiers: %w", err)
	}
	if err := im.record(ctx, res); err != nil {
		return res, fmt.Errorf("record import: %w", err)
	}

	im.logger.Info("known identifiers imported",
		slog.String("path", path),
		slog.Int("rows", res.Rows),
		slog.Int("added", res.Added),
		slog.Int("skipped", res.Skipped))
	return res, nil
}

type secondaryFile struct {
	res   ImportResult
	isbns []models.SecondaryISBN
	asins []models.SecondaryASIN
}

// ImportSecondary replaces the secondary-source tables from the ISBN and
// ASIN dump files. Either path may be empty. Files whose fingerprint matches
// the previous import are left alone unless force is set; if nothing
// changed the result carries ErrUnchanged.
func (im *Importer) ImportSecondary(ctx context.Context, isbnPath, asinPath string, force bool) ([]ImportResult, error) {
	if isbnPath == "" && asinPath == "" {
		return nil, errors.New("no dump files given")
	}

	release, err := im.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	var isbnFile, asinFile *secondaryFile
	g, gctx := errgroup.WithContext(ctx)
	if isbnPath != "" {
		isbnFile = &secondaryFile{res: ImportResult{Kind: models.ImportSecondaryISBNs, Path: isbnPath}}
		g.Go(func() error {
			return im.loadDump(gctx, isbnFile, force, func(data []byte) (int, int, error) {
				rows, skipped, err := ParseSecondaryISBNs(bytes.NewReader(data))
				isbnFile.isbns = rows
				return len(rows), skipped, err
			})
		})
	}
	if asinPath != "" {
		asinFile = &secondaryFile{res: ImportResult{Kind: models.ImportSecondaryASINs, Path: asinPath}}
		g.Go(func() error {
			return im.loadDump(gctx, asinFile, force, func(data []byte) (int, int, error) {
				rows, skipped, err := ParseSecondaryASINs(bytes.NewReader(data))
				asinFile.asins = rows
				return len(rows), skipped, err
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var results []ImportResult
	var isbns []models.SecondaryISBN
	var asins []models.SecondaryASIN
	changed := false
	for _, f := range []*secondaryFile{isbnFile, asinFile} {
		if f == nil {
			continue
		}
		results = append(results, f.res)
		if f.res.Unchanged {
			continue
		}
		changed = true
		if f.res.Kind == models.ImportSecondaryISBNs {
			isbns = nonNil(f.isbns)
		} else {
			asins = nonNil(f.asins)
		}
	}
	if !changed {
		return results, ErrUnchanged
	}

	if err := im.store.ReplaceSecondary(ctx, isbns, asins); err != nil {
		return results, fmt.Errorf("store secondary data: %w", err)
	}
	for i, res := range results {
		if res.Unchanged {
			continue
		}
		results[i].Added = res.Rows
		if err := im.record(ctx, res); err != nil {
			return results, fmt.Errorf("record import: %w", err)
		}
		im.logger.Info("secondary dump imported",
			slog.String("kind", res.Kind),
			slog.String("path", res.Path),
			slog.Int("rows", res.Rows),
			slog.Int("skipped", res.Skipped))
	}
	return results, nil
}

func (im *Importer) loadDump(ctx context.Context, f *secondaryFile, force bool, parse func([]byte) (int, int, error)) error {
	data, sum, err := ReadFingerprinted(f.res.Path)
	if err != nil {
		return err
	}
	f.res.SHA256 = sum

	if !force {
		same, err := im.unchanged(ctx, f.res.Kind, sum)
		if err != nil {
			return err
		}
		if same {
			f.res.Unchanged = true
			return nil
		}
	}

	rows, skipped, err := parse(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", f.res.Path, err)
	}
	f.res.Rows, f.res.Skipped = rows, skipped
	return nil
}

// nonNil turns an empty parse into an empty replacement rather than "leave
// the table alone".
func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
