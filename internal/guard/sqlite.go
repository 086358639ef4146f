package guard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const countKey = "miner_count"

// SQLiteStore keeps the count in a small key/value table so it survives restarts.
type SQLiteStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the guard database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("guard store path cannot be empty")
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) handle() (*sql.DB, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, fmt.Errorf("guard store is closed")
	}
	return db, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (int, bool, error) {
	db, err := s.handle()
	if err != nil {
		return 0, false, err
	}
	var count int
	err = db.QueryRowContext(ctx, `SELECT value FROM guard_state WHERE key = ?`, countKey).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, count int) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO guard_state(key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at;
	`, countKey, count, time.Now().UnixMilli())
	return err
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS guard_state (
		key TEXT PRIMARY KEY,
		value INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`)
	return err
}
