package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/FocuswithJustin/tafsirseg/core/digest"
	"github.com/FocuswithJustin/tafsirseg/core/errors"
	"github.com/FocuswithJustin/tafsirseg/core/segment"
	"github.com/FocuswithJustin/tafsirseg/core/sqlite"
	"github.com/FocuswithJustin/tafsirseg/core/verse"
	"github.com/FocuswithJustin/tafsirseg/internal/logging"
)

const schema = `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL DEFAULT '',
		run_id TEXT NOT NULL DEFAULT '',
		segmented_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS segments (
		document_id TEXT NOT NULL,
		name TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		first_verse INTEGER NOT NULL,
		last_verse INTEGER NOT NULL,
		verses TEXT NOT NULL,
		body TEXT NOT NULL,
		sha256 TEXT NOT NULL,
		blake3 TEXT NOT NULL,
		PRIMARY KEY (document_id, name),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_segments_span ON segments(document_id, first_verse, last_verse);
`

// Record is one stored segment.
type Record struct {
	Document string
	Name     string
	Ordinal  int       // 0 for the intro
	Verses   verse.Set // nil for the intro
	Body     string
	Hashes   digest.Hashes
}

// SQLiteSink stores segments as rows, one transaction per document.
type SQLiteSink struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) a segment database at path.
func OpenSQLite(path string) (*SQLiteSink, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.NewIO("open database", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteSink{db: db, now: time.Now}, nil
}

// OpenSQLiteReadOnly opens an existing segment database for lookups only.
func OpenSQLiteReadOnly(path string) (*SQLiteSink, error) {
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, errors.NewIO("open database", path, err)
	}
	return &SQLiteSink{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// Name implements Sink.
func (s *SQLiteSink) Name() string {
	return "sqlite"
}

// Write replaces every row of res.Document inside a single transaction.
func (s *SQLiteSink) Write(ctx context.Context, res *segment.Result) error {
	p, err := s.Stage(ctx, res)
	if err != nil {
		return err
	}
	if err := p.Commit(); err != nil {
		return err
	}
	return p.Close()
}

// Stage implements Stager. The rows stay inside an open transaction until
// Commit; Rollback after Commit cannot undo them.
func (s *SQLiteSink) Stage(ctx context.Context, res *segment.Result) (Pending, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	if err := s.insert(ctx, tx, res); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	return &txPending{tx: tx, doc: res.Document}, nil
}

func (s *SQLiteSink) insert(ctx context.Context, tx *sql.Tx, res *segment.Result) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, res.Document); err != nil {
		return fmt.Errorf("delete previous document: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (id, source, run_id, segmented_at) VALUES (?, ?, ?, ?)`,
		res.Document, res.Source, logging.GetRunID(ctx), s.now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO segments
		(document_id, name, ordinal, first_verse, last_verse, verses, body, sha256, blake3)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare segment insert: %w", err)
	}
	defer stmt.Close()

	for _, seg := range res.All() {
		body := seg.Body()
		h := digest.Sum([]byte(body))
		if _, err := stmt.ExecContext(ctx, res.Document, seg.Name, seg.Ordinal,
			seg.Verses.Min(), seg.Verses.Max(), seg.Verses.String(), body, h.SHA256, h.BLAKE3); err != nil {
			return fmt.Errorf("insert segment %s: %w", seg.Name, err)
		}
		logging.SegmentWritten(ctx, s.Name(), seg.Name)
	}
	return nil
}

type txPending struct {
	tx  *sql.Tx
	doc string
}

func (p *txPending) Commit() error {
	if err := p.tx.Commit(); err != nil {
		return fmt.Errorf("commit document %s: %w", p.doc, err)
	}
	return nil
}

func (p *txPending) Rollback() error {
	if err := p.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (p *txPending) Close() error {
	return p.Rollback()
}

const selectRecord = `SELECT document_id, name, ordinal, verses, body, sha256, blake3 FROM segments`

// Segments returns every stored segment of doc in ordinal order, intro first.
func (s *SQLiteSink) Segments(ctx context.Context, doc string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, selectRecord+` WHERE document_id = ? ORDER BY ordinal`, doc)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.NewNotFound("document", doc)
	}
	return out, nil
}

// Segment returns the verse segment of doc whose verse set contains v.
func (s *SQLiteSink) Segment(ctx context.Context, doc string, v int) (Record, error) {
	rows, err := s.db.QueryContext(ctx, selectRecord+`
		WHERE document_id = ? AND ordinal > 0 AND first_verse <= ? AND last_verse >= ?
		ORDER BY ordinal`, doc, v, v)
	if err != nil {
		return Record{}, fmt.Errorf("query segment: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return Record{}, err
		}
		if rec.Verses.Contains(v) {
			return rec, nil
		}
	}
	if err := rows.Err(); err != nil {
		return Record{}, err
	}
	return Record{}, errors.NewNotFound("segment", fmt.Sprintf("%s:%d", doc, v))
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	var verses string
	if err := rows.Scan(&rec.Document, &rec.Name, &rec.Ordinal, &verses, &rec.Body,
		&rec.Hashes.SHA256, &rec.Hashes.BLAKE3); err != nil {
		return Record{}, fmt.Errorf("scan segment: %w", err)
	}
	if rec.Ordinal > 0 {
		set, err := verse.Normalize(verses)
		if err != nil {
			return Record{}, fmt.Errorf("segment %s/%s: stored verses %q: %w", rec.Document, rec.Name, verses, err)
		}
		rec.Verses = set
	}
	return rec, nil
}
