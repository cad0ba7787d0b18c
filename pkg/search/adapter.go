// Package search answers full-text queries over statute provisions, either
// against the current wordings or against the wordings valid at a given date.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/nordlex/lagrum/pkg/types"
)

const defaultLimit = 20

// Request is one search invocation. AsOf switches from current-wording
// search to point-in-time search over the version history.
type Request struct {
	Query      string `json:"query" validate:"required"`
	DocumentID string `json:"document_id,omitempty"`
	AsOf       string `json:"as_of,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Limit      int    `json:"limit,omitempty" validate:"omitempty,min=1,max=500"`
}

// Hit is one matching provision. Score carries the index relevance rank for
// current-wording searches only; point-in-time hits are ordered by citation
// instead, because ranks computed against the full version history would
// compare wordings the reader cannot see.
type Hit struct {
	DocumentID   string               `json:"document_id"`
	ProvisionRef string               `json:"provision_ref"`
	Title        string               `json:"title,omitempty"`
	Snippet      string               `json:"snippet"`
	Score        float64              `json:"score,omitempty"`
	Status       types.VersionStatus  `json:"status,omitempty"`
	Window       types.ValidityWindow `json:"window"`
}

// Response carries the hits plus how the query was executed.
type Response struct {
	Hits         []Hit  `json:"hits"`
	UsedFallback bool   `json:"used_fallback,omitempty"`
	EffectiveFTS string `json:"effective_fts,omitempty"`
}

// Adapter runs FTS5 queries against the store's database handle.
type Adapter struct {
	db             *sql.DB
	log            zerolog.Logger
	validate       *validator.Validate
	enableFallback bool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger attaches a structured logger; the default discards output.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Adapter) { a.log = log }
}

// WithFallback enables the relaxed OR-of-terms retry when the precise
// phrase query matches nothing.
func WithFallback(on bool) Option {
	return func(a *Adapter) { a.enableFallback = on }
}

// New builds an adapter over the given database handle, normally the one
// returned by store.Store.DB.
func New(db *sql.DB, opts ...Option) *Adapter {
	a := &Adapter{
		db:       db,
		log:      zerolog.Nop(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Search validates the request and dispatches to the current or the
// point-in-time path.
func (a *Adapter) Search(ctx context.Context, req Request) (Response, error) {
	if err := a.validate.Struct(req); err != nil {
		return Response{}, fmt.Errorf("invalid search request: %w", err)
	}
	if req.Limit == 0 {
		req.Limit = defaultLimit
	}

	var asOf *types.Date
	if req.AsOf != "" {
		d, err := types.ParseDate(req.AsOf)
		if err != nil {
			return Response{}, err
		}
		asOf = &d
	}

	resp, err := a.run(ctx, req, asOf, phraseQuery(req.Query))
	if err != nil {
		return Response{}, err
	}
	if len(resp.Hits) > 0 || !a.enableFallback {
		return resp, nil
	}

	relaxed := relaxedQuery(req.Query)
	if relaxed == "" || relaxed == resp.EffectiveFTS {
		return resp, nil
	}
	a.log.Debug().
		Str("query", req.Query).
		Str("relaxed", relaxed).
		Msg("precise search empty, retrying relaxed")

	resp, err = a.run(ctx, req, asOf, relaxed)
	if err != nil {
		return Response{}, err
	}
	resp.UsedFallback = true
	return resp, nil
}

func (a *Adapter) run(ctx context.Context, req Request, asOf *types.Date, fts string) (Response, error) {
	var (
		hits []Hit
		err  error
	)
	if asOf == nil {
		hits, err = a.searchCurrent(ctx, fts, req.DocumentID, req.Limit)
	} else {
		hits, err = a.searchAsOf(ctx, fts, req.DocumentID, *asOf, req.Limit)
	}
	if err != nil {
		return Response{}, err
	}
	return Response{Hits: hits, EffectiveFTS: fts}, nil
}

// searchCurrent queries the current-wording index and keeps the native
// bm25 relevance order. The open version window supplies each hit's
// validity: a nil ValidFrom means the wording has never been changed.
func (a *Adapter) searchCurrent(ctx context.Context, fts, documentID string, limit int) ([]Hit, error) {
	query := `
		SELECT p.document_id, p.provision_ref, p.title,
			snippet(provisions_fts, 1, '>>', '<<', '...', 12),
			bm25(provisions_fts),
			(SELECT v.valid_from FROM provision_versions v
			 WHERE v.document_id = p.document_id
			 AND v.provision_ref = p.provision_ref
			 AND v.valid_to IS NULL)
		FROM provisions_fts
		JOIN provisions p ON p.rowid = provisions_fts.rowid
		WHERE provisions_fts MATCH ?`
	args := []any{fts}
	if documentID != "" {
		query += ` AND p.document_id = ?`
		args = append(args, documentID)
	}
	query += ` ORDER BY bm25(provisions_fts) LIMIT ?`
	args = append(args, limit)

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("current search %q: %w", fts, err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var from sql.NullString
		if err := rows.Scan(&h.DocumentID, &h.ProvisionRef, &h.Title, &h.Snippet, &h.Score, &from); err != nil {
			return nil, err
		}
		h.Window.ValidFrom = parseNullDate(from)
		h.Status = types.VersionCurrent
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// searchAsOf queries the version-history index restricted to windows valid
// at the given date, picking the latest-opening window per provision when
// sloppy data left several valid. Hits are ordered by citation; the index
// rank is discarded on this path.
func (a *Adapter) searchAsOf(ctx context.Context, fts, documentID string, asOf types.Date, limit int) ([]Hit, error) {
	day := asOf.String()
	query := `
		SELECT document_id, provision_ref, title, snip, valid_from, valid_to
		FROM (
			SELECT v.document_id, v.provision_ref, v.title,
				snippet(provision_versions_fts, 1, '>>', '<<', '...', 12) AS snip,
				v.valid_from, v.valid_to,
				ROW_NUMBER() OVER (
					PARTITION BY v.document_id, v.provision_ref
					ORDER BY v.valid_from DESC
				) AS rn
			FROM provision_versions_fts
			JOIN provision_versions v ON v.id = provision_versions_fts.rowid
			WHERE provision_versions_fts MATCH ?
			AND (v.valid_from IS NULL OR v.valid_from <= ?)
			AND (v.valid_to IS NULL OR v.valid_to > ?)`
	args := []any{fts, day, day}
	if documentID != "" {
		query += ` AND v.document_id = ?`
		args = append(args, documentID)
	}
	query += `
		)
		WHERE rn = 1
		ORDER BY document_id, provision_ref
		LIMIT ?`
	args = append(args, limit)

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("as-of search %q at %s: %w", fts, day, err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var from, to sql.NullString
		if err := rows.Scan(&h.DocumentID, &h.ProvisionRef, &h.Title, &h.Snippet, &from, &to); err != nil {
			return nil, err
		}
		h.Window.ValidFrom = parseNullDate(from)
		h.Window.ValidTo = parseNullDate(to)
		if h.Window.Open() {
			h.Status = types.VersionCurrent
		} else {
			h.Status = types.VersionHistorical
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// phraseQuery wraps the raw query as one exact FTS5 phrase so that user
// punctuation (paragraph signs, colons in SFS numbers) cannot be parsed as
// query syntax.
func phraseQuery(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}

// relaxedQuery de-tokenizes the raw query into an OR of its alphanumeric
// terms. Returns "" when no terms survive.
func relaxedQuery(q string) string {
	terms := strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR ")
}

func parseNullDate(ns sql.NullString) *types.Date {
	if !ns.Valid {
		return nil
	}
	d, err := types.ParseDate(ns.String)
	if err != nil {
		return nil
	}
	return &d
}
