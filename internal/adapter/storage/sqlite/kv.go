// Package sqlite is a ports.SharedStorage over a SQLite file, so ledger
// contexts in separate processes on one host share state. Change
// notifications come from polling an append-only change log.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const (
	DefaultPollInterval = 250 * time.Millisecond

	// changeRetention is how many change rows survive a prune. Pollers that
	// fall further behind skip to the newest value on their next write.
	changeRetention = 1000
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS kv_changes (
	seq     INTEGER PRIMARY KEY AUTOINCREMENT,
	key     TEXT NOT NULL,
	value   BLOB,
	deleted INTEGER NOT NULL DEFAULT 0,
	origin  TEXT NOT NULL
);
`

// Storage is one context's handle on the database file.
type Storage struct {
	db     *sql.DB
	origin string
	poll   time.Duration
	log    zerolog.Logger

	mu     sync.Mutex
	stops  []func()
	closed bool
}

// Open opens or creates the database at path.
func Open(path string, poll time.Duration, log zerolog.Logger) (*Storage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Storage{db: db, origin: uuid.NewString(), poll: poll, log: log}, nil
}

// Close stops every subscription and releases the database.
func (s *Storage) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stops := s.stops
	s.stops = nil
	s.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
	return s.db.Close()
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if v == nil {
		v = []byte{}
	}
	return v, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		return s.logChange(ctx, tx, key, value, false)
	})
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
		if err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return s.logChange(ctx, tx, key, nil, true)
	})
}

func (s *Storage) logChange(ctx context.Context, tx *sql.Tx, key string, value []byte, deleted bool) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO kv_changes (key, value, deleted, origin) VALUES (?, ?, ?, ?)`,
		key, value, deleted, s.origin)
	if err != nil {
		return fmt.Errorf("log change %s: %w", key, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("log change %s: %w", key, err)
	}
	if seq%changeRetention == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv_changes WHERE seq <= ?`, seq-changeRetention); err != nil {
			return fmt.Errorf("prune changes: %w", err)
		}
	}
	return nil
}

func (s *Storage) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Subscribe polls the change log for writes to key made by other handles and
// delivers them in commit order.
func (s *Storage) Subscribe(key string, fn func(ports.StorageChange)) (func(), error) {
	var last int64
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM kv_changes`).Scan(&last); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", key, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				next, err := s.deliver(ctx, key, last, fn)
				if err != nil {
					if ctx.Err() == nil {
						s.log.Warn().Err(err).Str("key", key).Msg("polling storage changes failed")
					}
					continue
				}
				last = next
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		stop()
		return nil, fmt.Errorf("subscribe %s: storage closed", key)
	}
	s.stops = append(s.stops, stop)
	s.mu.Unlock()
	return stop, nil
}

func (s *Storage) deliver(ctx context.Context, key string, after int64, fn func(ports.StorageChange)) (int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, value, deleted, origin FROM kv_changes WHERE seq > ? AND key = ? ORDER BY seq`,
		after, key)
	if err != nil {
		return after, err
	}
	defer rows.Close()

	type row struct {
		seq     int64
		value   []byte
		deleted bool
		origin  string
	}
	var batch []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.seq, &r.value, &r.deleted, &r.origin); err != nil {
			return after, err
		}
		batch = append(batch, r)
	}
	if err := rows.Err(); err != nil {
		return after, err
	}

	for _, r := range batch {
		after = r.seq
		if r.origin == s.origin {
			continue
		}
		c := ports.StorageChange{Key: key}
		if !r.deleted {
			c.Value = r.value
			if c.Value == nil {
				c.Value = []byte{}
			}
		}
		fn(c)
	}
	return after, nil
}
