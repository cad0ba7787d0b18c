// Package store persists provisions and their version history in an embedded
// SQLite database and answers point-in-time queries over validity windows.
//
// Writes (ingestion) are serialized through transactions; reads run lock-free
// against the same handle, so callers may issue concurrent queries.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nordlex/lagrum/pkg/types"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested document or provision does not
// exist at all. Absence of a version at a particular date is not an error;
// it is a VersionStatus.
var ErrNotFound = errors.New("not found")

// Store wraps the SQLite database.
type Store struct {
	db              *sql.DB
	log             zerolog.Logger
	strictIntervals bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a structured logger; the default discards output.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithStrictIntervals makes ingestion reject writes that would produce
// overlapping validity windows instead of recording them as-is.
func WithStrictIntervals(on bool) Option {
	return func(s *Store) { s.strictIntervals = on }
}

// Open opens (creating if needed) the statute database at path and applies
// the schema. Use ":memory:" for an ephemeral store.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// An in-memory database exists per connection; the pool must not hand
	// out a second, empty one.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	s := &Store{db: db, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for read-only collaborators such as the
// search adapter.
func (s *Store) DB() *sql.DB {
	return s.db
}

// UpsertDocument inserts or updates statute-level metadata.
func (s *Store) UpsertDocument(ctx context.Context, doc types.Document) error {
	if doc.DocumentID == "" {
		return fmt.Errorf("document id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (document_id, title, repealed_by, repeal_date, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			title = excluded.title,
			repealed_by = excluded.repealed_by,
			repeal_date = excluded.repeal_date,
			updated_at = excluded.updated_at`,
		doc.DocumentID, doc.Title, nullString(doc.RepealedBy), dateArg(doc.RepealDate),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upserting document %s: %w", doc.DocumentID, err)
	}
	return nil
}

// GetDocument returns statute metadata, or ErrNotFound.
func (s *Store) GetDocument(ctx context.Context, documentID string) (types.Document, error) {
	if documentID == "" {
		return types.Document{}, fmt.Errorf("document id is required")
	}
	var doc types.Document
	var repealedBy, repealDate sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT document_id, title, repealed_by, repeal_date
		FROM documents WHERE document_id = ?`, documentID).
		Scan(&doc.DocumentID, &doc.Title, &repealedBy, &repealDate)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Document{}, fmt.Errorf("document %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return types.Document{}, fmt.Errorf("reading document %s: %w", documentID, err)
	}
	doc.RepealedBy = repealedBy.String
	doc.RepealDate = scanDate(repealDate)
	return doc, nil
}

// ListDocuments returns all documents, ordered by identifier.
func (s *Store) ListDocuments(ctx context.Context) ([]types.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, title, repealed_by, repeal_date
		FROM documents ORDER BY document_id`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var out []types.Document
	for rows.Next() {
		var doc types.Document
		var repealedBy, repealDate sql.NullString
		if err := rows.Scan(&doc.DocumentID, &doc.Title, &repealedBy, &repealDate); err != nil {
			return nil, err
		}
		doc.RepealedBy = repealedBy.String
		doc.RepealDate = scanDate(repealDate)
		out = append(out, doc)
	}
	return out, rows.Err()
}

// CurrentProvision returns the current wording of a provision, or ErrNotFound.
func (s *Store) CurrentProvision(ctx context.Context, documentID, ref string) (types.Provision, error) {
	if documentID == "" || ref == "" {
		return types.Provision{}, fmt.Errorf("document id and provision ref are required")
	}
	var p types.Provision
	err := s.db.QueryRowContext(ctx, `
		SELECT document_id, chapter, section, title, content
		FROM provisions WHERE document_id = ? AND provision_ref = ?`,
		documentID, ref).
		Scan(&p.DocumentID, &p.Chapter, &p.Section, &p.Title, &p.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Provision{}, fmt.Errorf("provision %s %s: %w", documentID, ref, ErrNotFound)
	}
	if err != nil {
		return types.Provision{}, fmt.Errorf("reading provision %s %s: %w", documentID, ref, err)
	}
	return p, nil
}

// ListProvisions returns the current wording of every provision in a
// document, in stored order.
func (s *Store) ListProvisions(ctx context.Context, documentID string) ([]types.Provision, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document id is required")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, chapter, section, title, content
		FROM provisions WHERE document_id = ? ORDER BY rowid`, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing provisions for %s: %w", documentID, err)
	}
	defer rows.Close()

	var out []types.Provision
	for rows.Next() {
		var p types.Provision
		if err := rows.Scan(&p.DocumentID, &p.Chapter, &p.Section, &p.Title, &p.Content); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Stats summarizes the database contents.
type Stats struct {
	Documents      int `json:"documents"`
	Provisions     int `json:"provisions"`
	Versions       int `json:"versions"`
	OpenVersions   int `json:"open_versions"`
	AmendmentFacts int `json:"amendment_facts"`
}

// DatabaseStats returns row counts for the status command.
func (s *Store) DatabaseStats(ctx context.Context) (Stats, error) {
	var st Stats
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM provisions),
			(SELECT COUNT(*) FROM provision_versions),
			(SELECT COUNT(*) FROM provision_versions WHERE valid_to IS NULL),
			(SELECT COUNT(*) FROM amendment_log)`)
	if err := row.Scan(&st.Documents, &st.Provisions, &st.Versions, &st.OpenVersions, &st.AmendmentFacts); err != nil {
		return Stats{}, fmt.Errorf("reading stats: %w", err)
	}
	return st, nil
}

// nullString maps "" to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// dateArg maps a *Date to its ISO string or NULL.
func dateArg(d *types.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

// scanDate maps a nullable ISO column back to *Date. Unparseable stored
// values come back as nil rather than failing the read.
func scanDate(ns sql.NullString) *types.Date {
	if !ns.Valid {
		return nil
	}
	d, err := types.ParseDate(ns.String)
	if err != nil {
		return nil
	}
	return &d
}

// newRunID returns the identifier stamped on rows written by one ingest run.
func newRunID() string {
	return uuid.NewString()
}
