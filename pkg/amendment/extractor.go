// Package amendment extracts references to amending, repealing, and
// introducing legislation from provision text and document metadata.
//
// Extracted references are derived annotations, recomputed on every parse;
// they are never written back into the version history implicitly. Promotion
// into the change log is a separate, explicit step owned by the store.
package amendment

import (
	"regexp"
	"strings"

	"github.com/nordlex/lagrum/pkg/types"
)

// Extractor scans statute text for embedded amendment references.
type Extractor struct {
	// Trailing "Lag (YYYY:NNN)." suffix, authoritative when present.
	suffixPattern *regexp.Regexp

	// Inline phrase patterns, each capturing an SFS identifier.
	repealedPatterns  []*regexp.Regexp
	introducedPattern *regexp.Regexp
	newWordingPattern *regexp.Regexp

	// Transitional-block heuristics.
	entryIntoForce *regexp.Regexp
	sfsToken       *regexp.Regexp
}

// NewExtractor creates an Extractor with the standard SFS phrase patterns.
func NewExtractor() *Extractor {
	return &Extractor{
		suffixPattern: regexp.MustCompile(`(?:Lag|Förordning) \((\d{4}:\d+)\)\.\s*$`),
		repealedPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)har upphävts genom (?:lag(?:en)?|förordning(?:en)?)?\s*\(?(\d{4}:\d+)\)?`),
			regexp.MustCompile(`(?i)upphävd genom (?:lag(?:en)?|förordning(?:en)?)?\s*\(?(\d{4}:\d+)\)?`),
			regexp.MustCompile(`(?i)upphävs genom (?:lag(?:en)?|förordning(?:en)?)?\s*\(?(\d{4}:\d+)\)?`),
		},
		introducedPattern: regexp.MustCompile(`(?i)införd genom (?:lag(?:en)?|förordning(?:en)?)?\s*\(?(\d{4}:\d+)\)?`),
		newWordingPattern: regexp.MustCompile(`(?i)ny lydelse genom (?:lag(?:en)?|förordning(?:en)?)?\s*\(?(\d{4}:\d+)\)?`),
		entryIntoForce:    regexp.MustCompile(`(?i)träder i kraft`),
		sfsToken:          regexp.MustCompile(`\b(\d{4}:\d{1,4})\b`),
	}
}

// ExtractFromProvisionText returns the amendment references found in a single
// provision's text, in document order. The cascade short-circuits: a trailing
// amendment suffix alone is authoritative.
func (e *Extractor) ExtractFromProvisionText(content string) []types.AmendmentReference {
	if m := e.suffixPattern.FindStringSubmatch(content); m != nil {
		return []types.AmendmentReference{{
			AmendedBySFS: m[1],
			Type:         types.AmendmentAmended,
			Position:     types.PositionSuffix,
			RawText:      strings.TrimSpace(m[0]),
		}}
	}

	var out []types.AmendmentReference
	seen := make(map[string]bool)

	collect := func(pattern *regexp.Regexp, typ types.AmendmentType) {
		for _, m := range pattern.FindAllStringSubmatch(content, -1) {
			key := m[1] + "/" + string(typ)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, types.AmendmentReference{
				AmendedBySFS: m[1],
				Type:         typ,
				Position:     types.PositionInline,
				RawText:      strings.TrimSpace(m[0]),
			})
		}
	}

	for _, p := range e.repealedPatterns {
		collect(p, types.AmendmentRepealed)
	}
	collect(e.introducedPattern, types.AmendmentIntroduced)
	collect(e.newWordingPattern, types.AmendmentNewWording)

	// A provision mentioning entry into force is likely a transitional block;
	// sweep every legislation-shaped token as a weakly-confident reference,
	// deduplicated against what the phrase patterns already collected.
	if e.entryIntoForce.MatchString(content) {
		collected := make(map[string]bool)
		for _, ref := range out {
			collected[ref.AmendedBySFS] = true
		}
		for _, m := range e.sfsToken.FindAllStringSubmatch(content, -1) {
			if collected[m[1]] {
				continue
			}
			collected[m[1]] = true
			out = append(out, types.AmendmentReference{
				AmendedBySFS: m[1],
				Type:         types.AmendmentTransitional,
				Position:     types.PositionTransitional,
				RawText:      m[1],
			})
		}
	}

	return out
}

// Metadata field keys recognized by ExtractFromDocumentMetadata.
const (
	FieldRepealDate = "upphävd"
	FieldRepealedBy = "upphävd_genom"
)

// ExtractFromDocumentMetadata pulls a repeal date and repealing identifier
// from structured document metadata. Malformed dates are simply not matched;
// no error is produced.
func (e *Extractor) ExtractFromDocumentMetadata(fields map[string]string) types.RepealSummary {
	var summary types.RepealSummary

	if raw, ok := fields[FieldRepealedBy]; ok {
		if m := e.sfsToken.FindStringSubmatch(raw); m != nil {
			summary.RepealedBySFS = m[1]
		}
	}
	if raw, ok := fields[FieldRepealDate]; ok {
		if d, err := types.ParseDate(strings.TrimSpace(raw)); err == nil {
			summary.RepealDate = &d
		}
	}

	return summary
}

// InForce reports whether a statute with the given repeal summary is still in
// force at date. A statute with no parseable repeal date counts as in force.
func InForce(summary types.RepealSummary, date types.Date) bool {
	if summary.RepealDate == nil {
		return true
	}
	return date.Before(*summary.RepealDate)
}
