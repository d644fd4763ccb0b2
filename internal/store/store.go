// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store indexes persisted candidate sets in SQLite so that the
// downstream labelling stage can query candidates by set, label, document,
// or full-text search over sentence text.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/candidate-engine/internal/extract"
	"github.com/pdiddy/candidate-engine/pkg/types"
)

const (
	extractedDir = "extracted"
	indexDir     = "index"
	dbFile       = "candidates.db"

	defaultMaxResults = 20
)

// Store manages the candidate index database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
}

// NewStore opens or creates the database at cfg.Dir/index/candidates.db
// and creates the schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.Dir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, dir: cfg.Dir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ExtractedDir returns the directory Ingest reads candidate sets from.
func (s *Store) ExtractedDir() string {
	return filepath.Join(s.dir, extractedDir)
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sets (
			name TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			candidates INTEGER NOT NULL,
			file_mod_time TEXT NOT NULL,
			file_hash TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sentences (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			set_name TEXT NOT NULL REFERENCES sets(name) ON DELETE CASCADE,
			doc_id TEXT NOT NULL,
			sent_id INTEGER NOT NULL,
			text TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS candidates (
			set_name TEXT NOT NULL REFERENCES sets(name) ON DELETE CASCADE,
			id INTEGER NOT NULL,
			sentence INTEGER NOT NULL REFERENCES sentences(rowid) ON DELETE CASCADE,
			start1 INTEGER NOT NULL,
			end1 INTEGER NOT NULL,
			label1 TEXT NOT NULL,
			text1 TEXT NOT NULL,
			start2 INTEGER,
			end2 INTEGER,
			label2 TEXT,
			text2 TEXT,
			PRIMARY KEY (set_name, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_label1 ON candidates(label1)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_label2 ON candidates(label2)`,
		`CREATE INDEX IF NOT EXISTS idx_sentences_doc ON sentences(doc_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sentences_set ON sentences(set_name)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table over sentence text, kept in sync by triggers.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='sentences_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE sentences_fts USING fts5(text, content=sentences, content_rowid=rowid)`,
			`CREATE TRIGGER sentences_ai AFTER INSERT ON sentences BEGIN
				INSERT INTO sentences_fts(rowid, text) VALUES (new.rowid, new.text);
			END`,
			`CREATE TRIGGER sentences_ad AFTER DELETE ON sentences BEGIN
				INSERT INTO sentences_fts(sentences_fts, rowid, text) VALUES('delete', old.rowid, old.text);
			END`,
			`CREATE TRIGGER sentences_au AFTER UPDATE ON sentences BEGIN
				INSERT INTO sentences_fts(sentences_fts, rowid, text) VALUES('delete', old.rowid, old.text);
				INSERT INTO sentences_fts(rowid, text) VALUES (new.rowid, new.text);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from an indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of candidate set files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest reads candidate set files from <dir>/extracted/ and indexes them.
// A file is skipped when its modification time or content hash matches
// the last indexed version; a changed file replaces its previous rows in
// one transaction. On changes it writes export.yaml.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	dir := s.ExtractedDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading extraction directory %s: %w", dir, err)
	}

	var summary IngestSummary

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), extract.SetSuffix) {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		name := strings.TrimSuffix(entry.Name(), extract.SetSuffix)
		path := filepath.Join(dir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime, storedHash string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time, file_hash FROM sets WHERE name = ?`, name,
		).Scan(&storedModTime, &storedHash)
		isUpdate := err == nil

		if isUpdate && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", name)
			summary.Skipped++
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}
		hash := fmt.Sprintf("%016x", xxhash.Sum64(data))
		if isUpdate && storedHash == hash {
			if _, err := s.db.ExecContext(ctx,
				`UPDATE sets SET file_mod_time = ? WHERE name = ?`, modTime, name); err != nil {
				fmt.Fprintf(w, "failed  %s: %v\n", name, err)
				summary.Failed++
				continue
			}
			fmt.Fprintf(w, "skipped %s (unchanged content)\n", name)
			summary.Skipped++
			continue
		}

		set, err := extract.Load(path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		if err := s.ingestSet(ctx, name, set, modTime, hash); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d candidates)\n", name, set.Len())
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d candidates)\n", name, set.Len())
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	if summary.Indexed > 0 || summary.Updated > 0 {
		if err := s.ExportYAML(ctx, QueryOptions{}); err != nil {
			fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
		}
	}

	return summary, nil
}

func (s *Store) ingestSet(ctx context.Context, name string, set *extract.CandidateSet, modTime, hash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Explicit deletes keep the FTS triggers firing for every old row.
	for _, stmt := range []string{
		`DELETE FROM candidates WHERE set_name = ?`,
		`DELETE FROM sentences WHERE set_name = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, name); err != nil {
			return fmt.Errorf("deleting old rows: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sets (name, kind, candidates, file_mod_time, file_hash) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			kind=excluded.kind, candidates=excluded.candidates,
			file_mod_time=excluded.file_mod_time, file_hash=excluded.file_hash`,
		name, string(set.Kind()), set.Len(), modTime, hash,
	); err != nil {
		return fmt.Errorf("upserting set: %w", err)
	}

	sentStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sentences (set_name, doc_id, sent_id, text) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing sentence insert: %w", err)
	}
	defer sentStmt.Close()

	rowids := make(map[*types.Sentence]int64)
	for _, sent := range set.Sentences() {
		res, err := sentStmt.ExecContext(ctx, name, sent.DocID, sent.ID, sent.Text)
		if err != nil {
			return fmt.Errorf("inserting sentence %s: %w", sent.Key(), err)
		}
		rowid, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading sentence rowid: %w", err)
		}
		rowids[sent] = rowid
	}

	candStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO candidates (set_name, id, sentence, start1, end1, label1, text1, start2, end2, label2, text2)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing candidate insert: %w", err)
	}
	defer candStmt.Close()

	for id, c := range set.All() {
		first := c.Span1()
		var (
			start2, end2  sql.NullInt64
			label2, text2 sql.NullString
		)
		if c.Arity() > 1 {
			second := c.Span2()
			start2 = sql.NullInt64{Int64: int64(second.Start), Valid: true}
			end2 = sql.NullInt64{Int64: int64(second.End), Valid: true}
			label2 = sql.NullString{String: second.Label, Valid: true}
			text2 = sql.NullString{String: c.Text(1), Valid: true}
		}
		if _, err := candStmt.ExecContext(ctx,
			name, id, rowids[c.Sentence],
			first.Start, first.End, first.Label, c.Text(0),
			start2, end2, label2, text2,
		); err != nil {
			return fmt.Errorf("inserting candidate %d: %w", id, err)
		}
	}

	return tx.Commit()
}
