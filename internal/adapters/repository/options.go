package repository

import "time"

// Option applies a configuration option to the SnapshotStore.
type Option func(*SnapshotStore)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *SnapshotStore) {
		if now != nil {
			s.now = now
		}
	}
}

// FavoritesOption configures a SQLiteFavorites.
type FavoritesOption func(*SQLiteFavorites)

// WithKey sets the key the favorites list is stored under.
func WithKey(key string) FavoritesOption {
	return func(f *SQLiteFavorites) {
		if key != "" {
			f.key = key
		}
	}
}
