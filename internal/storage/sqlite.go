//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/vitaly-krugl/htmresearch/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveConfig(ctx context.Context, record model.ConfigRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeConfigRecord(record)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO network_configs (name, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, record.Name, record.SchemaVersion, record.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetConfig(ctx context.Context, name string) (model.ConfigRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.ConfigRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM network_configs WHERE name = ?`, name).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ConfigRecord{}, false, nil
		}
		return model.ConfigRecord{}, false, err
	}

	record, err := DecodeConfigRecord(payload)
	if err != nil {
		return model.ConfigRecord{}, false, fmt.Errorf("decode config %s: %w", name, err)
	}
	return record, true, nil
}

func (s *SQLiteStore) ListConfigs(ctx context.Context) ([]string, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT name FROM network_configs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStore) SaveAssemblySummary(ctx context.Context, summary model.AssemblySummary) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeAssemblySummary(summary)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO assembly_summaries (id, created_at, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, summary.ID, summary.CreatedAt.UnixNano(), summary.SchemaVersion, summary.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetAssemblySummary(ctx context.Context, id string) (model.AssemblySummary, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.AssemblySummary{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM assembly_summaries WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.AssemblySummary{}, false, nil
		}
		return model.AssemblySummary{}, false, err
	}

	summary, err := DecodeAssemblySummary(payload)
	if err != nil {
		return model.AssemblySummary{}, false, fmt.Errorf("decode summary %s: %w", id, err)
	}
	return summary, true, nil
}

func (s *SQLiteStore) ListAssemblySummaries(ctx context.Context) ([]model.AssemblySummary, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM assembly_summaries ORDER BY created_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AssemblySummary
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		summary, err := DecodeAssemblySummary(payload)
		if err != nil {
			return nil, fmt.Errorf("decode summary %s: %w", id, err)
		}
		out = append(out, summary)
	}
	return out, rows.Err()
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

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS network_configs (
			name TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS assembly_summaries (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
