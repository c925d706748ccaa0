// Package database stores extraction results in an embedded database.
// SQLite is the default; a .duckdb path switches drivers.
package database

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/marcboeker/go-duckdb"
	_ "github.com/mattn/go-sqlite3"
)

// Extraction is one stored result row. Leaves holds the text-leaf set as
// a JSON array string.
type Extraction struct {
	FilePath  string `db:"file_path"`
	MediaKind string `db:"media_kind"`
	RawJSON   string `db:"raw_json"`
	Positive  string `db:"positive"`
	Negative  string `db:"negative"`
	Leaves    string `db:"leaves"`
}

type Store struct {
	db *sqlx.DB
}

const schema = `
	CREATE TABLE IF NOT EXISTS extractions (
		file_path  TEXT PRIMARY KEY,
		media_kind TEXT,
		raw_json   TEXT,
		positive   TEXT,
		negative   TEXT,
		leaves     TEXT
	)
`

// Open creates or opens the store at dbPath, picking the driver from the
// file extension.
func Open(dbPath string) (*Store, error) {
	var db *sqlx.DB
	var err error
	switch strings.ToLower(filepath.Ext(dbPath)) {
	case ".duckdb":
		db, err = sqlx.Open("duckdb", dbPath)
	default:
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_fk=1", dbPath)
		db, err = sqlx.Open("sqlite3", dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ExistingPaths returns the set of file paths already loaded, so directory
// scans can skip them.
func (s *Store) ExistingPaths(ctx context.Context) (map[string]struct{}, error) {
	var paths []string
	if err := s.db.SelectContext(ctx, &paths, "SELECT file_path FROM extractions"); err != nil {
		return nil, err
	}
	existing := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		existing[p] = struct{}{}
	}
	return existing, nil
}

// InsertBatch upserts a batch of rows in one statement.
func (s *Store) InsertBatch(ctx context.Context, batch []Extraction) error {
	if len(batch) == 0 {
		return nil
	}
	valueStrings := make([]string, 0, len(batch))
	args := make([]any, 0, len(batch)*6)
	for _, e := range batch {
		valueStrings = append(valueStrings, "(?, ?, ?, ?, ?, ?)")
		args = append(args, e.FilePath, e.MediaKind, e.RawJSON, e.Positive, e.Negative, e.Leaves)
	}
	stmt := fmt.Sprintf(
		"INSERT INTO extractions (file_path, media_kind, raw_json, positive, negative, leaves) VALUES %s "+
			"ON CONFLICT(file_path) DO UPDATE SET media_kind=excluded.media_kind, raw_json=excluded.raw_json, "+
			"positive=excluded.positive, negative=excluded.negative, leaves=excluded.leaves",
		strings.Join(valueStrings, ","),
	)
	_, err := s.db.ExecContext(ctx, stmt, args...)
	return err
}

// List returns up to limit stored rows, prompts first.
func (s *Store) List(ctx context.Context, limit int) ([]Extraction, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []Extraction
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM extractions ORDER BY positive != '' DESC, file_path LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list extractions: %w", err)
	}
	return rows, nil
}

// Get fetches one row by path.
func (s *Store) Get(ctx context.Context, path string) (Extraction, error) {
	var e Extraction
	if err := s.db.GetContext(ctx, &e, "SELECT * FROM extractions WHERE file_path = ?", path); err != nil {
		return Extraction{}, fmt.Errorf("get extraction %s: %w", path, err)
	}
	return e, nil
}
