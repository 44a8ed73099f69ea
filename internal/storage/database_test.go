package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/shelfscan/internal/models"
)

func setupTestDB(t *testing.T) (*SQLite, func()) {
	tmpFile, err := os.CreateTemp("", "shelfscan-test-*.db")
	require.NoError(t, err)
	tmpFile.Close()

	db, err := NewSQLite(tmpFile.Name())
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(tmpFile.Name())
	}

	return db, cleanup
}

func TestAddAndListKnown(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	added, err := db.AddKnown(ctx, []models.KnownIdentifier{
		{Value: "9780306406157", Kind: "ISBN-13", Source: "test"},
		{Value: "B07XJ8C8F5", Kind: "ASIN", Source: "test"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	// Re-adding is a no-op
	added, err = db.AddKnown(ctx, []models.KnownIdentifier{
		{Value: "9780306406157", Kind: "ISBN-13"},
		{Value: "0316098094", Kind: "ISBN-10"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	ids, err := db.KnownIdentifiers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0316098094", "9780306406157", "B07XJ8C8F5"}, ids)
}

func TestReplaceSecondary(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	err := db.ReplaceSecondary(ctx,
		[]models.SecondaryISBN{
			{ISBN: "9780593085172", Status: 0, Priority: "1"},
			{ISBN: "0575114959", Status: 2, Priority: models.PriorityNew, ASIN: "B000APZNR0"},
		},
		[]models.SecondaryASIN{{ASIN: "B000APZNR0", ISBN: "0575114959"}},
	)
	require.NoError(t, err)

	isbns, err := db.SecondaryISBNs(ctx)
	require.NoError(t, err)
	require.Len(t, isbns, 2)
	assert.Equal(t, models.SecondaryISBN{ISBN: "0575114959", Status: 2, Priority: "n", ASIN: "B000APZNR0"}, isbns[0])
	assert.Equal(t, models.Priority("1"), isbns[1].Priority)

	// Replacing only ISBNs leaves ASINs alone
	err = db.ReplaceSecondary(ctx, []models.SecondaryISBN{{ISBN: "9780306406157"}}, nil)
	require.NoError(t, err)

	isbns, err = db.SecondaryISBNs(ctx)
	require.NoError(t, err)
	assert.Len(t, isbns, 1)

	asins, err := db.SecondaryASINs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.SecondaryASIN{{ASIN: "B000APZNR0", ISBN: "0575114959"}}, asins)
}

func TestImportRecords(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := db.LastImport(ctx, models.ImportKnown)
	assert.ErrorIs(t, err, ErrNotFound)

	older := models.ImportRecord{ID: "a", Kind: models.ImportKnown, Path: "ids.txt", SHA256: "111", Rows: 3, ImportedAt: time.Now().Add(-time.Hour)}
	newer := models.ImportRecord{ID: "b", Kind: models.ImportKnown, Path: "ids.txt", SHA256: "222", Rows: 4, ImportedAt: time.Now()}
	other := models.ImportRecord{ID: "c", Kind: models.ImportSecondaryASINs, Path: "asins.txt", SHA256: "333", ImportedAt: time.Now()}
	for _, rec := range []models.ImportRecord{older, newer, other} {
		require.NoError(t, db.RecordImport(ctx, rec))
	}

	last, err := db.LastImport(ctx, models.ImportKnown)
	require.NoError(t, err)
	assert.Equal(t, "b", last.ID)
	assert.Equal(t, "222", last.SHA256)
	assert.Equal(t, 4, last.Rows)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "mysql"})
	assert.Error(t, err)
}

func TestOpenDefaultsToSQLite(t *testing.T) {
	path := t.TempDir() + "/shelfscan.db"
	store, err := Open(context.Background(), Options{Path: path})
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*SQLite)
	assert.True(t, ok)
}
