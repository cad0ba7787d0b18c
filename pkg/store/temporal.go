package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/nordlex/lagrum/pkg/types"
)

// VersionResult is the outcome of a point-in-time lookup.
type VersionResult struct {
	Status  types.VersionStatus     `json:"status"`
	Version *types.ProvisionVersion `json:"version,omitempty"`
}

// VersionAt returns the wording of a provision valid at the given date.
// When stored intervals accidentally overlap, the row with the latest
// valid_from wins; the read path never reports overlap as an error.
func (s *Store) VersionAt(ctx context.Context, documentID, ref string, date types.Date) (VersionResult, error) {
	if documentID == "" || ref == "" {
		return VersionResult{}, fmt.Errorf("document id and provision ref are required")
	}

	day := date.String()
	row := s.db.QueryRowContext(ctx, `
		SELECT document_id, chapter, section, title, content, valid_from, valid_to, ingest_run
		FROM provision_versions
		WHERE document_id = ? AND provision_ref = ?
		AND (valid_from IS NULL OR valid_from <= ?)
		AND (valid_to IS NULL OR valid_to > ?)
		ORDER BY valid_from DESC
		LIMIT 1`, documentID, ref, day, day)

	v, err := scanVersion(row)
	switch {
	case err == nil:
		status := types.VersionHistorical
		if v.Open() {
			status = types.VersionCurrent
		}
		return VersionResult{Status: status, Version: &v}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return VersionResult{}, fmt.Errorf("resolving %s %s at %s: %w", documentID, ref, day, err)
	}

	// Nothing valid at that date: distinguish a provision that does not
	// exist yet from one that never existed. A NULL valid_from window is
	// the earliest possible, so "future" requires every window to carry a
	// date and the earliest of them to lie past the query date.
	var count, dated int
	var earliest sql.NullString
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(valid_from), MIN(valid_from) FROM provision_versions
		WHERE document_id = ? AND provision_ref = ?`,
		documentID, ref).Scan(&count, &dated, &earliest); err != nil {
		return VersionResult{}, fmt.Errorf("probing versions for %s %s: %w", documentID, ref, err)
	}
	if count > 0 && dated == count && earliest.Valid && earliest.String > day {
		return VersionResult{Status: types.VersionFuture}, nil
	}
	return VersionResult{Status: types.VersionNotFound}, nil
}

// DiffResult compares the wording of one provision at two dates. A false
// Changed flag is itself meaningful: it asserts no wording change across the
// window, not an absence of data.
type DiffResult struct {
	DocumentID   string        `json:"document_id"`
	ProvisionRef string        `json:"provision_ref"`
	From         VersionResult `json:"from"`
	To           VersionResult `json:"to"`
	Changed      bool          `json:"changed"`
	Diff         string        `json:"diff,omitempty"`
}

// Diff resolves both endpoints independently and returns a textual diff of
// the wordings. Two dates resolving to the same version (or equal wordings)
// yield Changed=false and an empty diff payload.
func (s *Store) Diff(ctx context.Context, documentID, ref string, from, to types.Date) (DiffResult, error) {
	a, err := s.VersionAt(ctx, documentID, ref, from)
	if err != nil {
		return DiffResult{}, err
	}
	b, err := s.VersionAt(ctx, documentID, ref, to)
	if err != nil {
		return DiffResult{}, err
	}

	result := DiffResult{
		DocumentID:   documentID,
		ProvisionRef: ref,
		From:         a,
		To:           b,
	}

	oldText := ""
	if a.Version != nil {
		oldText = a.Version.Content
	}
	newText := ""
	if b.Version != nil {
		newText = b.Version.Content
	}
	if oldText == newText {
		return result, nil
	}

	result.Changed = true
	result.Diff = renderDiff(oldText, newText)
	return result, nil
}

// renderDiff produces a compact inline diff: deletions as [-...-],
// insertions as {+...+}.
func renderDiff(oldText, newText string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			sb.WriteString("[-")
			sb.WriteString(d.Text)
			sb.WriteString("-]")
		case diffmatchpatch.DiffInsert:
			sb.WriteString("{+")
			sb.WriteString(d.Text)
			sb.WriteString("+}")
		default:
			sb.WriteString(d.Text)
		}
	}
	return sb.String()
}

// ChangesSince returns every version row whose window opened on or after the
// given date, most recent first. An empty documentID spans all documents.
// This is a change-feed read, not a diff.
func (s *Store) ChangesSince(ctx context.Context, since types.Date, documentID string) ([]types.ProvisionVersion, error) {
	query := `
		SELECT document_id, chapter, section, title, content, valid_from, valid_to, ingest_run
		FROM provision_versions
		WHERE valid_from IS NOT NULL AND valid_from >= ?`
	args := []any{since.String()}
	if documentID != "" {
		query += ` AND document_id = ?`
		args = append(args, documentID)
	}
	query += ` ORDER BY valid_from DESC, document_id, provision_ref`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reading change feed since %s: %w", since, err)
	}
	defer rows.Close()

	var out []types.ProvisionVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// IntervalViolation describes a stored window set that breaks the
// non-overlap / single-open invariant.
type IntervalViolation struct {
	ProvisionRef string `json:"provision_ref"`
	Kind         string `json:"kind"` // "overlap", "inverted" or "multiple-open"
	Detail       string `json:"detail"`
}

// CheckIntervalInvariants verifies that, per provision, the stored validity
// windows do not overlap and at most one is open. Reads never enforce this;
// the check exists for ingestion-time and offline data-quality review.
func (s *Store) CheckIntervalInvariants(ctx context.Context, documentID string) ([]IntervalViolation, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document id is required")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT provision_ref, valid_from, valid_to
		FROM provision_versions WHERE document_id = ?`, documentID)
	if err != nil {
		return nil, fmt.Errorf("loading windows for %s: %w", documentID, err)
	}
	defer rows.Close()

	windows := make(map[string][]types.ValidityWindow)
	for rows.Next() {
		var ref string
		var from, to sql.NullString
		if err := rows.Scan(&ref, &from, &to); err != nil {
			return nil, err
		}
		windows[ref] = append(windows[ref], types.ValidityWindow{
			ValidFrom: scanDate(from),
			ValidTo:   scanDate(to),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]string, 0, len(windows))
	for ref := range windows {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	var violations []IntervalViolation
	for _, ref := range refs {
		ws := windows[ref]
		open := 0
		for _, w := range ws {
			if w.Open() {
				open++
			}
		}
		if open > 1 {
			violations = append(violations, IntervalViolation{
				ProvisionRef: ref,
				Kind:         "multiple-open",
				Detail:       fmt.Sprintf("%d open windows", open),
			})
		}
		for _, w := range ws {
			if w.ValidFrom != nil && w.ValidTo != nil && w.ValidTo.Before(*w.ValidFrom) {
				violations = append(violations, IntervalViolation{
					ProvisionRef: ref,
					Kind:         "inverted",
					Detail:       fmt.Sprintf("window %s ends before it starts", formatWindow(w)),
				})
			}
		}
		for i := 0; i < len(ws); i++ {
			for j := i + 1; j < len(ws); j++ {
				if ws[i].Overlaps(ws[j]) {
					violations = append(violations, IntervalViolation{
						ProvisionRef: ref,
						Kind:         "overlap",
						Detail: fmt.Sprintf("windows %s and %s overlap",
							formatWindow(ws[i]), formatWindow(ws[j])),
					})
				}
			}
		}
	}
	return violations, nil
}

func formatWindow(w types.ValidityWindow) string {
	from := "-inf"
	if w.ValidFrom != nil {
		from = w.ValidFrom.String()
	}
	to := "open"
	if w.ValidTo != nil {
		to = w.ValidTo.String()
	}
	return fmt.Sprintf("[%s, %s)", from, to)
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanVersion.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (types.ProvisionVersion, error) {
	var v types.ProvisionVersion
	var from, to sql.NullString
	err := row.Scan(&v.DocumentID, &v.Provision.Chapter, &v.Provision.Section,
		&v.Provision.Title, &v.Provision.Content, &from, &to, &v.IngestRun)
	if err != nil {
		return types.ProvisionVersion{}, err
	}
	v.ValidFrom = scanDate(from)
	v.ValidTo = scanDate(to)
	return v, nil
}
