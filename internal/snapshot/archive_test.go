package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sigrank/internal/store/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveWithoutIndex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := NewArchive(dir, nil)

	_, _, err := a.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoArchive)

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(5 * time.Minute)
	_, err = a.Save(ctx, []byte(`{"a":{}}`), first, "")
	require.NoError(t, err)
	path, err := a.Save(ctx, []byte(`{"b":{}}`), second, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "snapshot_20240101T000500.000Z.json"), path)

	raw, at, err := a.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"b":{}}`, string(raw))
	assert.Equal(t, second, at)
}

func TestArchiveIndexed(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := sqlite.NewSqliteStore(filepath.Join(dir, "sigrank.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	a := NewArchive(filepath.Join(dir, "raw"), db)
	raw := loadFixture(t)
	at := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	path, err := a.Save(ctx, raw, at, "run-42")
	require.NoError(t, err)

	uow, err := db.Begin(ctx)
	require.NoError(t, err)
	rec, err := uow.Archives().Latest(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Rollback())
	require.NotNil(t, rec)
	assert.Equal(t, path, rec.Path)
	assert.Equal(t, 3, rec.Miners)
	assert.Equal(t, int64(len(raw)), rec.Bytes)
	assert.Equal(t, "run-42", rec.RunID)
	assert.Len(t, rec.SHA256, 64)

	got, gotAt, err := a.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
	assert.Equal(t, at, gotAt)
}

func TestLoadFileUsesModTimeForForeignNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manual.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	mod := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mod, mod))

	_, at, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, at.Equal(mod))
}
