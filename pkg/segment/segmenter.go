// Package segment converts raw statute text into an ordered list of
// chapter/section-addressable provisions.
//
// The input is arbitrary multi-line text with no guaranteed structure beyond
// the presence of chapter markers ("N kap. <title>") and section markers
// ("N[ letter]? § <remainder>"). Segmentation never fails on malformed
// input; every ambiguous line degrades into body text of the open provision
// and is reported through diagnostics counters.
package segment

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nordlex/lagrum/pkg/types"
)

// maxTitleLength bounds heading capture; real section headings are short.
const maxTitleLength = 100

// enumerationJumpThreshold is the smallest ordinal jump treated as an
// enumeration list rather than a real provision start in unchaptered text.
const enumerationJumpThreshold = 8

// Segmenter parses statute text into provisions. It holds only compiled
// patterns; all per-run state lives in a parse state owned by Segment, so a
// single Segmenter is safe for concurrent use across documents.
type Segmenter struct {
	chapterPattern *regexp.Regexp
	sectionPattern *regexp.Regexp
	lawSuffix      *regexp.Regexp
}

// New creates a Segmenter with the standard SFS text patterns.
func New() *Segmenter {
	return &Segmenter{
		// "3 kap. Om domstolar" or "4 a kap."
		chapterPattern: regexp.MustCompile(`^(\d+)(?: ?([a-z]))? [Kk]ap\.\s*(.*)$`),
		// "5 § ..." or "5 a § ..."
		sectionPattern: regexp.MustCompile(`^(\d+)(?: ?([a-z]))? §\s*(.*)$`),
		// Trailing amendment suffix, used to reject heading candidates.
		lawSuffix: regexp.MustCompile(`(?:Lag|Förordning) \(\d{4}:\d+\)\.\s*$`),
	}
}

// parseState is the mutable cursor for a single segmentation run.
type parseState struct {
	documentID string

	chapter           string
	pendingChapter    string
	hasPendingChapter bool

	section string
	title   string
	pending string // heading waiting for the next accepted section

	buf []string

	emitted     map[string]bool
	lastOrdinal map[string]float64 // last confirmed section ordinal per chapter

	provisions []types.Provision
	diag       types.ParseDiagnostics
}

// Segment parses rawText into the ordered provisions of documentID.
// It never returns an error: worst case it emits zero provisions and
// diagnostics showing everything suppressed.
func (s *Segmenter) Segment(documentID, rawText string) ([]types.Provision, types.ParseDiagnostics) {
	st := &parseState{
		documentID:  documentID,
		emitted:     make(map[string]bool),
		lastOrdinal: make(map[string]float64),
		provisions:  make([]types.Provision, 0),
	}

	for _, raw := range strings.Split(rawText, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if m := s.chapterPattern.FindStringSubmatch(line); m != nil {
			// Chapter markers are held, not applied: a marker replaced by a
			// later one without ever being confirmed was spurious.
			if st.hasPendingChapter {
				st.diag.IgnoredChapterMarkers++
			}
			st.pendingChapter = joinNumber(m[1], m[2])
			st.hasPendingChapter = true
			continue
		}

		if m := s.sectionPattern.FindStringSubmatch(line); m != nil {
			s.handleSectionCandidate(st, line, joinNumber(m[1], m[2]), m[3])
			continue
		}

		s.handlePlainLine(st, line)
	}

	s.flush(st)
	if st.hasPendingChapter {
		st.diag.IgnoredChapterMarkers++
	}
	if st.pending != "" {
		st.diag.DiscardedPreambleLines++
	}

	return st.provisions, st.diag
}

// handleSectionCandidate validates a section marker against the suppression
// rules and either opens a new provision or folds the line into the current
// one. The rules run in a fixed priority order and each suppression is
// reported under a named reason.
func (s *Segmenter) handleSectionCandidate(st *parseState, line, section, remainder string) {
	ord := types.SectionOrdinal(section)

	// A pending chapter is confirmed only when numbering restarts at 1 or no
	// chapter is active yet. Anything else leaves it pending.
	wouldActivate := st.hasPendingChapter && (st.chapter == "" || numericPart(section) == 1)

	effChapter := st.chapter
	if wouldActivate {
		effChapter = st.pendingChapter
	}
	ref := types.MakeRef(effChapter, section)

	if reason, suppressed := s.suppressionReason(st, ref, effChapter, ord, remainder, wouldActivate); suppressed {
		// The full line becomes body text of the open provision; losing a
		// boundary is safer than fabricating one.
		if st.section != "" {
			st.buf = append(st.buf, line)
		}
		st.diag.CountSuppression(reason)
		return
	}

	s.flush(st)

	if wouldActivate {
		st.chapter = st.pendingChapter
		st.hasPendingChapter = false
	} else if st.hasPendingChapter {
		// A confirmed section that does not restart numbering rejects the
		// pending chapter for good.
		st.hasPendingChapter = false
		st.diag.IgnoredChapterMarkers++
	}

	st.section = section
	st.title = st.pending
	st.pending = ""
	st.buf = st.buf[:0]
	if remainder != "" {
		st.buf = append(st.buf, remainder)
	}
	st.emitted[ref] = true
}

// suppressionReason evaluates the suppression rules in priority order.
func (s *Segmenter) suppressionReason(st *parseState, ref, effChapter string, ord float64, remainder string, wouldActivate bool) (types.SuppressionReason, bool) {
	if st.emitted[ref] {
		return types.SuppressDuplicateRef, true
	}
	if !wouldActivate && st.section != "" && ord <= types.SectionOrdinal(st.section) {
		return types.SuppressNonMonotonic, true
	}
	if !wouldActivate {
		if last, ok := st.lastOrdinal[effChapter]; ok && ord <= last {
			return types.SuppressStaleOrdinal, true
		}
	}
	if !wouldActivate && st.section != "" && len(st.buf) > 0 && startsLowercase(remainder) {
		return types.SuppressInlineReference, true
	}
	if effChapter == "" && !wouldActivate && st.section != "" && len(st.buf) > 0 &&
		ord-types.SectionOrdinal(st.section) >= enumerationJumpThreshold {
		return types.SuppressEnumerationJump, true
	}
	return "", false
}

// handlePlainLine routes a non-marker line: heading capture or body text.
func (s *Segmenter) handlePlainLine(st *parseState, line string) {
	if st.section == "" {
		// Before any section is open, only heading-shaped lines are kept;
		// preamble text carries no provision content, but its loss is
		// counted so no line disappears unaccounted.
		if s.isTitleLine(line) {
			if st.pending != "" {
				st.diag.DiscardedPreambleLines++
			}
			st.pending = line
		} else {
			st.diag.DiscardedPreambleLines++
		}
		return
	}
	if len(st.buf) == 0 && st.title == "" && s.isTitleLine(line) {
		st.title = line
		return
	}
	st.buf = append(st.buf, line)
}

// flush finalizes the open section into a Provision and records its ordinal
// against its chapter.
func (s *Segmenter) flush(st *parseState) {
	if st.section == "" {
		return
	}
	st.provisions = append(st.provisions, types.Provision{
		DocumentID: st.documentID,
		Chapter:    st.chapter,
		Section:    st.section,
		Title:      st.title,
		Content:    normalizeContent(st.buf),
	})
	st.lastOrdinal[st.chapter] = types.SectionOrdinal(st.section)
	st.section = ""
	st.title = ""
	st.buf = st.buf[:0]
}

// isTitleLine reports whether a line looks like a section heading: short,
// capitalized, not numbered, and not an amendment suffix line.
func (s *Segmenter) isTitleLine(line string) bool {
	if utf8.RuneCountInString(line) >= maxTitleLength {
		return false
	}
	r, _ := utf8.DecodeRuneInString(line)
	if !unicode.IsUpper(r) {
		return false
	}
	if s.lawSuffix.MatchString(line) {
		return false
	}
	return true
}

// normalizeContent joins accumulated lines with single spaces and collapses
// internal whitespace.
func normalizeContent(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(strings.Fields(strings.Join(lines, " ")), " ")
}

// joinNumber combines a numeric part and an optional letter suffix into the
// canonical "N" / "N x" form.
func joinNumber(num, letter string) string {
	if letter == "" {
		return num
	}
	return num + " " + letter
}

// numericPart returns the integer part of a section number, 0 if unparseable.
func numericPart(section string) int {
	i := 0
	for i < len(section) && section[i] >= '0' && section[i] <= '9' {
		i++
	}
	n, err := strconv.Atoi(section[:i])
	if err != nil {
		return 0
	}
	return n
}

// startsLowercase reports whether the first rune of text is a lowercase
// letter, the signature of a grammatical inline reference such as
// "... enligt 2 § ska tillämpas ...".
func startsLowercase(text string) bool {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(text))
	return unicode.IsLower(r)
}
