// Package indexstore keeps the link summaries and search index records of
// compilation runs in SQLite, so other tools can resolve links into a
// compiled bundle and search it without loading render units.
package indexstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/doctopics/internal/foundation/errors"
	"git.home.luguber.info/inful/doctopics/internal/renderunit"
)

// ErrNotFound is returned when a run has no summary for an identifier.
var ErrNotFound = errors.New("indexstore: not found")

// SQLiteStore stores link summaries and index records per run.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates or opens the index database at path.
// Use ":memory:" for an in-memory database.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		bundle TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS link_summaries (
		run_id TEXT NOT NULL,
		identifier TEXT NOT NULL,
		path TEXT NOT NULL,
		title TEXT NOT NULL,
		kind TEXT NOT NULL,
		abstract TEXT,
		languages TEXT,
		fragments TEXT,
		PRIMARY KEY (run_id, identifier)
	);
	CREATE TABLE IF NOT EXISTS index_records (
		run_id TEXT NOT NULL,
		identifier TEXT NOT NULL,
		kind TEXT NOT NULL,
		title TEXT NOT NULL,
		summary TEXT,
		module TEXT,
		PRIMARY KEY (run_id, identifier)
	);
	CREATE INDEX IF NOT EXISTS idx_link_path ON link_summaries(run_id, path);
	CREATE INDEX IF NOT EXISTS idx_record_title ON index_records(run_id, title);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Write stores the summaries and records of one run in a single transaction,
// replacing anything stored under the same run id.
func (s *SQLiteStore) Write(ctx context.Context, runID, bundle string, summaries []renderunit.LinkSummary, records []renderunit.IndexRecord) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range []string{
		"DELETE FROM link_summaries WHERE run_id = ?",
		"DELETE FROM index_records WHERE run_id = ?",
		"DELETE FROM runs WHERE run_id = ?",
	} {
		if _, err = tx.ExecContext(ctx, stmt, runID); err != nil {
			return fmt.Errorf("clear run: %w", err)
		}
	}
	if _, err = tx.ExecContext(ctx, "INSERT INTO runs (run_id, bundle, created_at) VALUES (?, ?, ?)",
		runID, bundle, time.Now().Unix()); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, ls := range summaries {
		langs, _ := json.Marshal(ls.Languages)
		frags, _ := json.Marshal(ls.Fragments)
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO link_summaries (run_id, identifier, path, title, kind, abstract, languages, fragments) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			runID, ls.Identifier, ls.Path, ls.Title, ls.Kind, ls.Abstract, string(langs), string(frags)); err != nil {
			return fmt.Errorf("insert link summary %s: %w", ls.Identifier, err)
		}
	}
	for _, r := range records {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO index_records (run_id, identifier, kind, title, summary, module) VALUES (?, ?, ?, ?, ?, ?)",
			runID, r.Identifier, r.Kind, r.Title, r.Summary, r.Module); err != nil {
			return fmt.Errorf("insert index record %s: %w", r.Identifier, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LinkSummary returns the summary of identifier in run.
func (s *SQLiteStore) LinkSummary(ctx context.Context, runID, identifier string) (renderunit.LinkSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		ls           renderunit.LinkSummary
		langs, frags string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT identifier, path, title, kind, abstract, languages, fragments FROM link_summaries WHERE run_id = ? AND identifier = ?",
		runID, identifier).Scan(&ls.Identifier, &ls.Path, &ls.Title, &ls.Kind, &ls.Abstract, &langs, &frags)
	if errors.Is(err, sql.ErrNoRows) {
		return renderunit.LinkSummary{}, ferrors.NotFoundError("link summary").Wrap(ErrNotFound).
			WithContext("run_id", runID).WithContext("identifier", identifier).Build()
	}
	if err != nil {
		return renderunit.LinkSummary{}, fmt.Errorf("query link summary: %w", err)
	}
	if err := json.Unmarshal([]byte(langs), &ls.Languages); err != nil {
		return renderunit.LinkSummary{}, fmt.Errorf("decode languages: %w", err)
	}
	if err := json.Unmarshal([]byte(frags), &ls.Fragments); err != nil {
		return renderunit.LinkSummary{}, fmt.Errorf("decode fragments: %w", err)
	}
	return ls, nil
}

// Search returns up to limit records of run whose title contains query,
// case-insensitively, pages before sections and then by title.
func (s *SQLiteStore) Search(ctx context.Context, runID, query string, limit int) ([]renderunit.IndexRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT identifier, kind, title, summary, module FROM index_records
		 WHERE run_id = ? AND lower(title) LIKE ? ESCAPE '\'
		 ORDER BY kind = 'section', title, identifier LIMIT ?`,
		runID, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("query index records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []renderunit.IndexRecord
	for rows.Next() {
		var r renderunit.IndexRecord
		var summary, module sql.NullString
		if err := rows.Scan(&r.Identifier, &r.Kind, &r.Title, &summary, &module); err != nil {
			return nil, fmt.Errorf("scan index record: %w", err)
		}
		r.Summary, r.Module = summary.String, module.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Runs returns the run ids stored for bundle, newest first.
func (s *SQLiteStore) Runs(ctx context.Context, bundle string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id FROM runs WHERE bundle = ? ORDER BY created_at DESC, run_id", bundle)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
