package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nordlex/lagrum/pkg/types"
)

// AmendmentFact is an extractor-produced amendment reference as recorded in
// the change log, with its recording timestamp.
type AmendmentFact struct {
	DocumentID   string `json:"document_id"`
	ProvisionRef string `json:"provision_ref,omitempty"`
	types.AmendmentReference
	RecordedAt string `json:"recorded_at"`
}

// PromoteAmendments writes extractor facts into the amendment log. Nothing in
// the ingestion path calls this; promotion is a deliberate, separate step so
// that derived annotations never silently become change history.
func (s *Store) PromoteAmendments(ctx context.Context, documentID, ref string, refs []types.AmendmentReference) (int, error) {
	if documentID == "" {
		return 0, fmt.Errorf("document id is required")
	}
	if len(refs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning promotion: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	written := 0
	for _, r := range refs {
		if r.AmendedBySFS == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO amendment_log (document_id, provision_ref, amended_by_sfs, amendment_type, position, raw_text, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			documentID, ref, r.AmendedBySFS, string(r.Type), string(r.Position), r.RawText, now); err != nil {
			return 0, fmt.Errorf("recording amendment %s: %w", r.AmendedBySFS, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing promotion: %w", err)
	}

	s.log.Info().
		Str("document", documentID).
		Str("ref", ref).
		Int("facts", written).
		Msg("amendment facts promoted")

	return written, nil
}

// AmendmentsFor returns the recorded amendment facts for a document, or for
// one provision when ref is non-empty. Most recently recorded first.
func (s *Store) AmendmentsFor(ctx context.Context, documentID, ref string) ([]AmendmentFact, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document id is required")
	}

	query := `
		SELECT document_id, provision_ref, amended_by_sfs, amendment_type, position, raw_text, recorded_at
		FROM amendment_log WHERE document_id = ?`
	args := []any{documentID}
	if ref != "" {
		query += ` AND provision_ref = ?`
		args = append(args, ref)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reading amendment log for %s: %w", documentID, err)
	}
	defer rows.Close()

	var out []AmendmentFact
	for rows.Next() {
		var f AmendmentFact
		var typ, pos string
		if err := rows.Scan(&f.DocumentID, &f.ProvisionRef, &f.AmendedBySFS, &typ, &pos, &f.RawText, &f.RecordedAt); err != nil {
			return nil, err
		}
		f.Type = types.AmendmentType(typ)
		f.Position = types.ReferencePosition(pos)
		out = append(out, f)
	}
	return out, rows.Err()
}
