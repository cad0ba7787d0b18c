package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nordlex/lagrum/pkg/types"
)

// IngestParams describes one ingestion run for a single document.
type IngestParams struct {
	// DocumentID is the statute being (re)ingested.
	DocumentID string

	// Provisions is the segmenter output for the full document.
	Provisions []types.Provision

	// Effective is the date on which changed wordings take effect. It may
	// be nil only for the first-ever ingest of a document, where every
	// opening window starts at the beginning of time.
	Effective *types.Date
}

// IngestResult summarizes what one run changed.
type IngestResult struct {
	RunID     string `json:"run_id"`
	Opened    int    `json:"opened"`    // brand-new provisions
	Reworded  int    `json:"reworded"`  // closed old window, opened new one
	Closed    int    `json:"closed"`    // provisions absent from this run
	Unchanged int    `json:"unchanged"`
}

// IngestDocument applies a segmentation run to the store. Unchanged wordings
// keep their window; changed wordings close the open window at the effective
// date and open a new one; provisions absent from the run have their window
// closed. Historical rows are never mutated in place.
func (s *Store) IngestDocument(ctx context.Context, params IngestParams) (IngestResult, error) {
	if params.DocumentID == "" {
		return IngestResult{}, fmt.Errorf("document id is required")
	}

	result := IngestResult{RunID: newRunID()}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return IngestResult{}, fmt.Errorf("beginning ingest: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (document_id, updated_at) VALUES (?, '')
		ON CONFLICT(document_id) DO NOTHING`, params.DocumentID); err != nil {
		return IngestResult{}, fmt.Errorf("registering document: %w", err)
	}

	current, err := loadCurrent(ctx, tx, params.DocumentID)
	if err != nil {
		return IngestResult{}, err
	}

	var versionCount int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM provision_versions WHERE document_id = ?`,
		params.DocumentID).Scan(&versionCount); err != nil {
		return IngestResult{}, fmt.Errorf("counting versions: %w", err)
	}
	firstIngest := versionCount == 0

	// The first ingest establishes wordings "since the beginning of time"
	// (NULL valid_from) unless an explicit effective date is provided. Later
	// runs must carry a date whenever they change anything.
	openFrom := dateArg(params.Effective)
	if !firstIngest && params.Effective == nil && changesPending(current, params.Provisions) {
		return IngestResult{}, fmt.Errorf("effective date is required when re-ingesting %s with changes", params.DocumentID)
	}

	seen := make(map[string]bool, len(params.Provisions))
	for _, p := range params.Provisions {
		ref := p.Ref()
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		p.DocumentID = params.DocumentID

		cur, exists := current[ref]
		switch {
		case !exists:
			if err := s.openWindow(ctx, tx, p, ref, openFrom, result.RunID); err != nil {
				return IngestResult{}, err
			}
			result.Opened++

		case cur.Content != p.Content || cur.Title != p.Title:
			if err := s.rewordProvision(ctx, tx, p, ref, params.Effective, result.RunID); err != nil {
				return IngestResult{}, err
			}
			result.Reworded++

		default:
			result.Unchanged++
		}
	}

	for ref := range current {
		if seen[ref] {
			continue
		}
		if err := s.closeWindow(ctx, tx, params.DocumentID, ref, params.Effective); err != nil {
			return IngestResult{}, err
		}
		result.Closed++
	}

	if err := tx.Commit(); err != nil {
		return IngestResult{}, fmt.Errorf("committing ingest: %w", err)
	}

	s.log.Info().
		Str("document", params.DocumentID).
		Str("run", result.RunID).
		Int("opened", result.Opened).
		Int("reworded", result.Reworded).
		Int("closed", result.Closed).
		Int("unchanged", result.Unchanged).
		Msg("ingest complete")

	return result, nil
}

// loadCurrent reads the current wording of every provision in the document.
func loadCurrent(ctx context.Context, tx *sql.Tx, documentID string) (map[string]types.Provision, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT provision_ref, chapter, section, title, content
		FROM provisions WHERE document_id = ?`, documentID)
	if err != nil {
		return nil, fmt.Errorf("loading current provisions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]types.Provision)
	for rows.Next() {
		var ref string
		var p types.Provision
		if err := rows.Scan(&ref, &p.Chapter, &p.Section, &p.Title, &p.Content); err != nil {
			return nil, err
		}
		p.DocumentID = documentID
		out[ref] = p
	}
	return out, rows.Err()
}

// changesPending reports whether the run would modify any window.
func changesPending(current map[string]types.Provision, incoming []types.Provision) bool {
	seen := make(map[string]bool, len(incoming))
	for _, p := range incoming {
		ref := p.Ref()
		seen[ref] = true
		cur, ok := current[ref]
		if !ok || cur.Content != p.Content || cur.Title != p.Title {
			return true
		}
	}
	for ref := range current {
		if !seen[ref] {
			return true
		}
	}
	return false
}

// openWindow inserts a brand-new provision: a current row plus its first
// version window.
func (s *Store) openWindow(ctx context.Context, tx *sql.Tx, p types.Provision, ref string, from sql.NullString, runID string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO provisions (document_id, provision_ref, chapter, section, title, content)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.DocumentID, ref, p.Chapter, p.Section, p.Title, p.Content); err != nil {
		return fmt.Errorf("inserting provision %s: %w", ref, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO provision_versions (document_id, provision_ref, chapter, section, title, content, valid_from, valid_to, ingest_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?)`,
		p.DocumentID, ref, p.Chapter, p.Section, p.Title, p.Content, from, runID); err != nil {
		return fmt.Errorf("inserting version for %s: %w", ref, err)
	}
	return nil
}

// rewordProvision closes the open window at the effective date and opens a
// new one carrying the changed wording.
func (s *Store) rewordProvision(ctx context.Context, tx *sql.Tx, p types.Provision, ref string, effective *types.Date, runID string) error {
	if effective == nil {
		return fmt.Errorf("effective date is required to reword %s %s", p.DocumentID, ref)
	}

	if violation, err := windowWouldOverlap(ctx, tx, p.DocumentID, ref, *effective); err != nil {
		return err
	} else if violation != "" {
		if s.strictIntervals {
			return fmt.Errorf("rewording %s %s at %s: %s", p.DocumentID, ref, effective, violation)
		}
		s.log.Warn().
			Str("document", p.DocumentID).
			Str("ref", ref).
			Str("effective", effective.String()).
			Str("violation", violation).
			Msg("recording version window despite interval violation")
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE provision_versions SET valid_to = ?
		WHERE document_id = ? AND provision_ref = ? AND valid_to IS NULL`,
		effective.String(), p.DocumentID, ref); err != nil {
		return fmt.Errorf("closing window for %s: %w", ref, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO provision_versions (document_id, provision_ref, chapter, section, title, content, valid_from, valid_to, ingest_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?)`,
		p.DocumentID, ref, p.Chapter, p.Section, p.Title, p.Content, effective.String(), runID); err != nil {
		return fmt.Errorf("opening window for %s: %w", ref, err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE provisions SET chapter = ?, section = ?, title = ?, content = ?
		WHERE document_id = ? AND provision_ref = ?`,
		p.Chapter, p.Section, p.Title, p.Content, p.DocumentID, ref); err != nil {
		return fmt.Errorf("updating current wording for %s: %w", ref, err)
	}
	return nil
}

// closeWindow ends the open window of a provision absent from this run and
// removes it from the current table.
func (s *Store) closeWindow(ctx context.Context, tx *sql.Tx, documentID, ref string, effective *types.Date) error {
	if effective == nil {
		return fmt.Errorf("effective date is required to close %s %s", documentID, ref)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE provision_versions SET valid_to = ?
		WHERE document_id = ? AND provision_ref = ? AND valid_to IS NULL`,
		effective.String(), documentID, ref); err != nil {
		return fmt.Errorf("closing window for %s: %w", ref, err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM provisions WHERE document_id = ? AND provision_ref = ?`,
		documentID, ref); err != nil {
		return fmt.Errorf("removing current row for %s: %w", ref, err)
	}
	return nil
}

// windowWouldOverlap reports a human-readable violation when opening a window
// at effective would overlap stored history, "" when the write is clean.
func windowWouldOverlap(ctx context.Context, tx *sql.Tx, documentID, ref string, effective types.Date) (string, error) {
	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM provision_versions
		WHERE document_id = ? AND provision_ref = ?
		AND valid_from IS NOT NULL AND valid_from >= ?`,
		documentID, ref, effective.String()).Scan(&count)
	if err != nil {
		return "", fmt.Errorf("checking window overlap for %s: %w", ref, err)
	}
	if count > 0 {
		return fmt.Sprintf("%d stored window(s) start at or after the effective date", count), nil
	}
	return "", nil
}
