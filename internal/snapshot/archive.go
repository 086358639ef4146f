package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sigrank/internal/store"
	"sigrank/internal/store/model"
)

// ErrNoArchive is returned by Latest when nothing has been archived yet.
var ErrNoArchive = errors.New("no archived snapshot")

const archiveLayout = "20060102T150405.000Z"

// Archive keeps every raw payload on disk and, when a store is configured, indexes it.
type Archive struct {
	dir   string
	store store.Store
}

func NewArchive(dir string, st store.Store) *Archive {
	return &Archive{dir: dir, store: st}
}

func (a *Archive) Dir() string { return a.dir }

// Save writes raw to <dir>/snapshot_<fetchedAt>.json and returns the path.
func (a *Archive) Save(ctx context.Context, raw []byte, fetchedAt time.Time, runID string) (string, error) {
	if strings.TrimSpace(a.dir) == "" {
		return "", fmt.Errorf("archive dir is not configured")
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", err
	}
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	name := "snapshot_" + fetchedAt.UTC().Format(archiveLayout) + ".json"
	path := filepath.Join(a.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return "", fmt.Errorf("write archive failed: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("finalise archive failed: %w", err)
	}
	if a.store == nil {
		return path, nil
	}
	sum := sha256.Sum256(raw)
	rec := &model.ArchiveModel{
		RunID:     runID,
		Path:      path,
		Miners:    MinerCount(raw),
		Bytes:     int64(len(raw)),
		SHA256:    hex.EncodeToString(sum[:]),
		FetchedAt: fetchedAt.UnixMilli(),
	}
	err := store.WithTx(ctx, a.store, func(uow store.UnitOfWork) error {
		return uow.Archives().Save(ctx, rec)
	})
	if err != nil {
		return path, fmt.Errorf("index archive failed: %w", err)
	}
	return path, nil
}

// Latest loads the newest archived payload, preferring the index and falling back to the
// directory listing.
func (a *Archive) Latest(ctx context.Context) ([]byte, time.Time, error) {
	if a.store != nil {
		uow, err := a.store.Begin(ctx)
		if err != nil {
			return nil, time.Time{}, err
		}
		rec, err := uow.Archives().Latest(ctx)
		_ = uow.Rollback()
		if err != nil {
			return nil, time.Time{}, err
		}
		if rec != nil {
			raw, err := os.ReadFile(rec.Path)
			if err == nil {
				return raw, time.UnixMilli(rec.FetchedAt).UTC(), nil
			}
			if !errors.Is(err, os.ErrNotExist) {
				return nil, time.Time{}, err
			}
		}
	}
	matches, err := filepath.Glob(filepath.Join(a.dir, "snapshot_*.json"))
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(matches) == 0 {
		return nil, time.Time{}, ErrNoArchive
	}
	sort.Strings(matches)
	return LoadFile(matches[len(matches)-1])
}

// LoadFile reads a payload from disk. The fetch time comes from an archive file name when it
// has one, else from the file's modification time.
func LoadFile(path string) ([]byte, time.Time, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	base := strings.TrimSuffix(filepath.Base(path), ".json")
	if ts, ok := strings.CutPrefix(base, "snapshot_"); ok {
		if at, err := time.Parse(archiveLayout, ts); err == nil {
			return raw, at.UTC(), nil
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	return raw, info.ModTime().UTC(), nil
}
