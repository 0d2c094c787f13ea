// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collection

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/litreview/pkg/types"
)

// DBFile is the database file name inside the data directory.
const DBFile = "litreview.db"

// Store persists AnalyzedPapers. Load returns them in insertion order.
type Store interface {
	Load(ctx context.Context) ([]types.AnalyzedPaper, error)
	Put(ctx context.Context, p types.AnalyzedPaper) error
	Delete(ctx context.Context, id string) error
	Replace(ctx context.Context, papers []types.AnalyzedPaper) error
	Close() error
}

// SQLiteStore keeps the collection in a single SQLite table. The
// PaperRecord is stored as a JSON column.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates dataDir/litreview.db and its schema.
func OpenSQLite(cfg types.CollectionConfig) (*SQLiteStore, error) {
	dir := cfg.DataDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return OpenSQLiteFile(filepath.Join(dir, DBFile))
}

// OpenSQLiteFile opens the database at path.
func OpenSQLiteFile(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			file_name TEXT NOT NULL,
			uploaded_at TEXT NOT NULL,
			status TEXT NOT NULL,
			record TEXT,
			error TEXT,
			is_duplicate INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_file_name ON papers(file_name)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_status ON papers(status)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Load reads every paper in insertion order.
func (s *SQLiteStore) Load(ctx context.Context) ([]types.AnalyzedPaper, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_name, uploaded_at, status, record, error, is_duplicate
		 FROM papers ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	var out []types.AnalyzedPaper
	for rows.Next() {
		var (
			p        types.AnalyzedPaper
			uploaded string
			status   string
			record   sql.NullString
			errMsg   sql.NullString
			dup      int
		)
		if err := rows.Scan(&p.ID, &p.FileName, &uploaded, &status, &record, &errMsg, &dup); err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, uploaded)
		if err != nil {
			return nil, fmt.Errorf("paper %s: parsing uploaded_at: %w", p.ID, err)
		}
		p.UploadedAt = t
		p.Status = types.Status(status)
		p.Error = errMsg.String
		p.IsDuplicate = dup != 0
		if record.Valid && record.String != "" {
			var r types.PaperRecord
			if err := json.Unmarshal([]byte(record.String), &r); err != nil {
				return nil, fmt.Errorf("paper %s: decoding record: %w", p.ID, err)
			}
			p.Record = &r
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, p types.AnalyzedPaper) error {
	var record sql.NullString
	if p.Record != nil {
		data, err := json.Marshal(p.Record)
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		record = sql.NullString{String: string(data), Valid: true}
	}
	dup := 0
	if p.IsDuplicate {
		dup = 1
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO papers (id, file_name, uploaded_at, status, record, error, is_duplicate)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			file_name=excluded.file_name, uploaded_at=excluded.uploaded_at,
			status=excluded.status, record=excluded.record,
			error=excluded.error, is_duplicate=excluded.is_duplicate`,
		p.ID, p.FileName, p.UploadedAt.UTC().Format(time.RFC3339Nano), string(p.Status),
		record, p.Error, dup,
	)
	if err != nil {
		return fmt.Errorf("upserting paper: %w", err)
	}
	return nil
}

// Put inserts or updates one paper.
func (s *SQLiteStore) Put(ctx context.Context, p types.AnalyzedPaper) error {
	return upsert(ctx, s.db, p)
}

// Delete removes one paper. Deleting a missing id is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM papers WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting paper: %w", err)
	}
	return nil
}

// Replace swaps the whole table for papers in one transaction.
func (s *SQLiteStore) Replace(ctx context.Context, papers []types.AnalyzedPaper) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM papers`); err != nil {
		return fmt.Errorf("clearing papers: %w", err)
	}
	for _, p := range papers {
		if err := upsert(ctx, tx, p); err != nil {
			return fmt.Errorf("paper %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}
