package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/mdaly0277/marketintel/pkg/metrics"
)

// DefaultFavoritesKey is the key the list is stored under.
const DefaultFavoritesKey = "mi_favs"

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteFavorites stores the list as a JSON array in a key/value table.
type SQLiteFavorites struct {
	db  *sql.DB
	key string
}

// OpenSQLiteFavorites opens (creating if needed) the database at dsn.
// Use ":memory:" for a throwaway store.
func OpenSQLiteFavorites(ctx context.Context, dsn string, opts ...FavoritesOption) (*SQLiteFavorites, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open favorites db: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serialises writes.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create favorites schema: %w", err)
	}
	f := &SQLiteFavorites{db: db, key: DefaultFavoritesKey}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *SQLiteFavorites) Load(ctx context.Context) ([]string, error) {
	var raw string
	err := f.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, f.key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}
	var tickers []string
	if err := json.Unmarshal([]byte(raw), &tickers); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFavorites, err)
	}
	if tickers == nil {
		tickers = []string{}
	}
	return tickers, nil
}

func (f *SQLiteFavorites) Save(ctx context.Context, tickers []string) error {
	if tickers == nil {
		tickers = []string{}
	}
	b, err := json.Marshal(tickers)
	if err != nil {
		return fmt.Errorf("encode favorites: %w", err)
	}
	_, err = f.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		f.key, string(b), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save favorites: %w", err)
	}
	metrics.RecordFavoritesWrite()
	return nil
}

func (f *SQLiteFavorites) Close() error {
	return f.db.Close()
}

// MemoryFavorites is a process-local Favorites.
type MemoryFavorites struct {
	mu      sync.Mutex
	tickers []string
	closed  bool
}

// NewMemoryFavorites returns an empty in-memory store.
func NewMemoryFavorites() *MemoryFavorites {
	return &MemoryFavorites{tickers: []string{}}
}

func (m *MemoryFavorites) Load(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return slices.Clone(m.tickers), nil
}

func (m *MemoryFavorites) Save(ctx context.Context, tickers []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.tickers = slices.Clone(tickers)
	if m.tickers == nil {
		m.tickers = []string{}
	}
	metrics.RecordFavoritesWrite()
	return nil
}

func (m *MemoryFavorites) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
