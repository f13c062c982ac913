// Package history keeps a local log of past scans in SQLite.
//
// Each record stores the report JSON, compressed with the configured
// algorithm, next to a few columns used for listing (kind, grade, score,
// language, source). Records are identified by a random UUID.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/exploopio/codeguard/pkg/compress"
	"github.com/exploopio/codeguard/pkg/core"
	"github.com/exploopio/codeguard/pkg/errors"
	"github.com/exploopio/codeguard/pkg/metrics"
)

// DefaultListLimit is used by List when no limit is given.
const DefaultListLimit = 50

// Config configures a Store.
type Config struct {
	// Path of the database file. ":memory:" opens a private in-memory store.
	Path string

	// Compression applied to payloads. Defaults to zstd.
	Compression compress.Algorithm

	Logger  core.Logger
	Metrics metrics.Collector
}

// DefaultPath returns ~/.codeguard/history.db, or a path in the working
// directory when the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".codeguard", "history.db")
	}
	return filepath.Join(home, ".codeguard", "history.db")
}

// Store is a SQLite-backed scan history. It is safe for concurrent use.
type Store struct {
	db         *sql.DB
	mu         sync.RWMutex
	compressor *compress.Compressor
	logger     core.Logger
	metrics    metrics.Collector

	// now is replaced in tests.
	now func() time.Time
}

// Open opens (creating if needed) the history database.
func Open(cfg Config) (*Store, error) {
	const op = "history.Open"

	if cfg.Path == "" {
		cfg.Path = DefaultPath()
	}
	if cfg.Compression == "" {
		cfg.Compression = compress.AlgorithmZSTD
	}
	if cfg.Logger == nil {
		cfg.Logger = core.GetDefaultLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.GetDefaultCollector()
	}

	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, errors.E(errors.KindStorage, op, "create history directory", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, errors.E(errors.KindStorage, op, "open database", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.E(errors.KindStorage, op, "set pragma", err)
		}
	}

	s := &Store{
		db:         db,
		compressor: compress.NewCompressor(cfg.Compression, compress.LevelDefault),
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		now:        time.Now,
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, errors.E(errors.KindStorage, op, "init schema", err)
	}

	s.logger.Debug("history store opened at %s (compression %s)", cfg.Path, cfg.Compression)
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL DEFAULT '',
		grade TEXT NOT NULL DEFAULT '',
		score INTEGER NOT NULL,
		payload BLOB NOT NULL,
		payload_size INTEGER NOT NULL,
		compression TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at);
	CREATE INDEX IF NOT EXISTS idx_scans_kind ON scans(kind);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save stores rec. ID and CreatedAt are filled when empty; Payload must hold
// the report JSON.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	const op = "history.Save"

	if err := rec.validate(); err != nil {
		return errors.E(errors.KindInvalidInput, op, err)
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	blob, stats, err := s.compressor.CompressWithStats(rec.Payload)
	if err != nil {
		s.metrics.CounterInc(metrics.HistoryWritesTotal.Name, "status", "error")
		return errors.E(errors.KindInternal, op, "compress payload", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scans (
			id, kind, language, source, content_hash, grade, score,
			payload, payload_size, compression, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, string(rec.Kind), rec.Language, rec.Source, rec.ContentHash,
		rec.Grade, rec.Score, blob, stats.OriginalSize, string(stats.Algorithm),
		rec.CreatedAt,
	)
	if err != nil {
		s.metrics.CounterInc(metrics.HistoryWritesTotal.Name, "status", "error")
		return errors.E(errors.KindStorage, op, fmt.Sprintf("insert %s", rec.ID), err)
	}

	s.metrics.CounterInc(metrics.HistoryWritesTotal.Name, "status", "ok")
	s.logger.Debug("saved %s scan %s: %d bytes stored as %d (%s)",
		rec.Kind, rec.ID, stats.OriginalSize, stats.CompressedSize, stats.Algorithm)
	return nil
}

// Get returns the record with the given id, payload included.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	const op = "history.Get"

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		rec  Record
		kind string
		blob []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, kind, language, source, content_hash, grade, score, created_at, payload
		FROM scans WHERE id = ?
	`, id).Scan(
		&rec.ID, &kind, &rec.Language, &rec.Source, &rec.ContentHash,
		&rec.Grade, &rec.Score, &rec.CreatedAt, &blob,
	)
	if err == sql.ErrNoRows {
		return nil, errors.E(errors.KindNotFound, op, fmt.Sprintf("scan %s", id), errors.ErrNotFound)
	}
	if err != nil {
		return nil, errors.E(errors.KindStorage, op, err)
	}
	rec.Kind = Kind(kind)

	payload, err := compress.Decompress(blob)
	if err != nil {
		return nil, errors.E(errors.KindStorage, op, fmt.Sprintf("decompress %s", id), err)
	}
	rec.Payload = json.RawMessage(payload)
	return &rec, nil
}

// ListOptions filters List.
type ListOptions struct {
	// Limit caps the number of records. 0 means DefaultListLimit.
	Limit int

	// Kind restricts the listing to one report kind.
	Kind Kind
}

// List returns the most recent records first, without payloads.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	const op = "history.List"

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, language, source, content_hash, grade, score, created_at
		FROM scans
		WHERE (? = '' OR kind = ?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, string(opts.Kind), string(opts.Kind), limit)
	if err != nil {
		return nil, errors.E(errors.KindStorage, op, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			rec  Record
			kind string
		)
		if err := rows.Scan(
			&rec.ID, &kind, &rec.Language, &rec.Source, &rec.ContentHash,
			&rec.Grade, &rec.Score, &rec.CreatedAt,
		); err != nil {
			return nil, errors.E(errors.KindStorage, op, err)
		}
		rec.Kind = Kind(kind)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.E(errors.KindStorage, op, err)
	}
	return records, nil
}

// Delete removes one record.
func (s *Store) Delete(ctx context.Context, id string) error {
	const op = "history.Delete"

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE id = ?`, id)
	if err != nil {
		return errors.E(errors.KindStorage, op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.E(errors.KindStorage, op, err)
	}
	if n == 0 {
		return errors.E(errors.KindNotFound, op, fmt.Sprintf("scan %s", id), errors.ErrNotFound)
	}
	s.logger.Debug("deleted scan %s", id)
	return nil
}

// Clear removes every record and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	const op = "history.Clear"

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM scans`)
	if err != nil {
		return 0, errors.E(errors.KindStorage, op, err)
	}
	n, _ := result.RowsAffected()
	s.logger.Info("cleared %d scans from history", n)
	return n, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans`).Scan(&n); err != nil {
		return 0, errors.E(errors.KindStorage, "history.Count", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database answers queries.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.E(errors.KindStorage, "history.Ping", err)
	}
	return nil
}
