package tripadvisor

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Store is the local SQLite cache and quota ledger.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the store at the given path and configures WAL
// mode.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "tripadvisor: open store")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "tripadvisor: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const storeMigration = `
CREATE TABLE IF NOT EXISTS details_cache (
	key        TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS api_quota (
	month TEXT PRIMARY KEY,
	used  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_details_cache_expires_at ON details_cache(expires_at);
`

// Migrate creates the store schema.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, storeMigration)
	return eris.Wrap(err, "tripadvisor: migrate store")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns a fresh cached entry for key, if any.
func (s *Store) Get(ctx context.Context, key string) (*Details, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM details_cache WHERE key = ? AND expires_at > datetime('now')`,
		key,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "tripadvisor: cache get")
	}

	var d Details
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return nil, false, eris.Wrap(err, "tripadvisor: decode cache entry")
	}
	return &d, true, nil
}

// Put stores details under key for ttl.
func (s *Store) Put(ctx context.Context, key string, d Details, ttl time.Duration) error {
	data, err := json.Marshal(d)
	if err != nil {
		return eris.Wrap(err, "tripadvisor: encode cache entry")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO details_cache (key, data, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, cached_at = datetime('now'), expires_at = excluded.expires_at`,
		key, string(data), time.Now().UTC().Add(ttl),
	)
	return eris.Wrap(err, "tripadvisor: cache put")
}

// QuotaUsed returns the API calls recorded for a month ("2026-08").
func (s *Store) QuotaUsed(ctx context.Context, month string) (int, error) {
	var used int
	err := s.db.QueryRowContext(ctx,
		`SELECT used FROM api_quota WHERE month = ?`, month,
	).Scan(&used)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrap(err, "tripadvisor: quota read")
	}
	return used, nil
}

// AddQuota records n API calls against a month.
func (s *Store) AddQuota(ctx context.Context, month string, n int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_quota (month, used) VALUES (?, ?)
		 ON CONFLICT(month) DO UPDATE SET used = used + excluded.used`,
		month, n,
	)
	return eris.Wrap(err, "tripadvisor: quota add")
}

// PruneExpired deletes stale cache entries.
func (s *Store) PruneExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM details_cache WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, eris.Wrap(err, "tripadvisor: prune cache")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "tripadvisor: prune rows affected")
	}
	return n, nil
}
