package types

// SuppressionReason names why a section-marker candidate was rejected and
// folded back into the open provision's text.
type SuppressionReason string

const (
	// SuppressDuplicateRef: the derived reference was already emitted.
	SuppressDuplicateRef SuppressionReason = "duplicate-ref"
	// SuppressNonMonotonic: the ordinal does not advance past the section
	// currently open.
	SuppressNonMonotonic SuppressionReason = "non-monotonic-open"
	// SuppressStaleOrdinal: the ordinal does not advance past the last
	// confirmed section of its chapter.
	SuppressStaleOrdinal SuppressionReason = "stale-chapter-ordinal"
	// SuppressInlineReference: the text after the marker continues a
	// sentence (lowercase start), so the marker is a grammatical reference.
	SuppressInlineReference SuppressionReason = "inline-reference"
	// SuppressEnumerationJump: an implausibly large numeric jump inside an
	// unchaptered statute, typical of enumeration lists.
	SuppressEnumerationJump SuppressionReason = "enumeration-jump"
)

// ParseDiagnostics carries data-quality counters for a single parse run.
// The counters never influence control flow; they exist for offline review.
type ParseDiagnostics struct {
	// IgnoredChapterMarkers counts chapter-like lines that were never
	// confirmed by a following section and were discarded as spurious.
	IgnoredChapterMarkers int `json:"ignored_chapter_markers"`

	// SuppressedSectionCandidates counts section-like lines treated as body
	// text instead of provision starts.
	SuppressedSectionCandidates int `json:"suppressed_section_candidates"`

	// DiscardedPreambleLines counts non-blank lines before the first
	// accepted section that were neither kept as a heading nor attached
	// to any provision.
	DiscardedPreambleLines int `json:"discarded_preamble_lines"`

	// SuppressionsByReason breaks the suppressed count down per reason.
	SuppressionsByReason map[SuppressionReason]int `json:"suppressions_by_reason,omitempty"`
}

// CountSuppression records one suppressed candidate with its reason.
func (d *ParseDiagnostics) CountSuppression(reason SuppressionReason) {
	d.SuppressedSectionCandidates++
	if d.SuppressionsByReason == nil {
		d.SuppressionsByReason = make(map[SuppressionReason]int)
	}
	d.SuppressionsByReason[reason]++
}
