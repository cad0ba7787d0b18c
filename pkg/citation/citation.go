// Package citation parses and formats Swedish statute citations: SFS
// numbers ("SFS 2010:110", "lagen (2010:110)") and provision pinpoints
// ("3 kap. 5 a § socialförsäkringsbalken (2010:110)").
package citation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nordlex/lagrum/pkg/types"
)

// Citation is one parsed statute reference.
type Citation struct {
	// RawText is the matched text as found in the source.
	RawText string `json:"raw_text"`

	// SFSNumber is the "year:number" identifier, e.g. "2010:110".
	SFSNumber string `json:"sfs_number"`

	// Chapter and Section pinpoint a provision when the citation carries
	// one; both empty for a bare statute reference.
	Chapter string `json:"chapter,omitempty"`
	Section string `json:"section,omitempty"`

	// TextOffset is the byte offset of the match in the source text.
	TextOffset int `json:"text_offset"`
}

// Ref returns the provision reference for pinpoint citations, "" for bare
// statute references.
func (c Citation) Ref() string {
	if c.Section == "" {
		return ""
	}
	return types.MakeRef(c.Chapter, c.Section)
}

// Normalize returns the canonical form: "SFS 2010:110" for a bare statute,
// "3 kap. 5 § (2010:110)" for a pinpoint.
func (c Citation) Normalize() string {
	if c.Section == "" {
		return "SFS " + c.SFSNumber
	}
	return fmt.Sprintf("%s(%s)", FormatPinpoint(c.Chapter, c.Section), c.SFSNumber)
}

// FormatPinpoint renders a chapter/section pair the way statute text cites
// it: "3 kap. 5 § " or "5 a § " for unchaptered statutes. The trailing
// space matches how a statute name follows the pinpoint.
func FormatPinpoint(chapter, section string) string {
	var sb strings.Builder
	if chapter != "" {
		sb.WriteString(chapter)
		sb.WriteString(" kap. ")
	}
	sb.WriteString(section)
	sb.WriteString(" § ")
	return sb.String()
}

var (
	// "3 kap. 5 §" or "5 a §", optionally followed by a statute name and
	// its SFS number in parentheses. The name between pinpoint and number
	// never contains digits; anything with a digit is a different citation.
	pinpointPattern = regexp.MustCompile(
		`(?:(\d+(?: ?[a-z])?) kap\. )?(\d+(?: ?[a-z])?) §(?:[^(.\d]{0,60}\((\d{4}:\d{1,4})\))?`)

	// "SFS 2010:110" or a bare parenthesized "(2010:110)" after a statute
	// word such as "lagen" or "förordningen".
	statutePattern = regexp.MustCompile(
		`(?:SFS (\d{4}:\d{1,4}))|(?:(?:lag|lagen|förordning|förordningen|balken)\s*\((\d{4}:\d{1,4})\))`)
)

// Parse extracts every statute citation from the text. Pinpoint citations
// that name their statute carry its SFS number; bare pinpoints (common
// inside the statute they refer to) have an empty SFSNumber. Returns an
// empty slice, not nil, when nothing matches.
func Parse(text string) []Citation {
	out := []Citation{}
	claimed := map[int]bool{}

	for _, m := range pinpointPattern.FindAllStringSubmatchIndex(text, -1) {
		c := Citation{
			RawText:    text[m[0]:m[1]],
			Chapter:    group(text, m, 1),
			Section:    group(text, m, 2),
			SFSNumber:  group(text, m, 3),
			TextOffset: m[0],
		}
		c.Chapter = canonicalNumber(c.Chapter)
		c.Section = canonicalNumber(c.Section)
		out = append(out, c)
		if m[6] >= 0 {
			claimed[m[6]] = true
		}
	}

	for _, m := range statutePattern.FindAllStringSubmatchIndex(text, -1) {
		sfs := group(text, m, 1)
		offset := m[2]
		if sfs == "" {
			sfs = group(text, m, 2)
			offset = m[4]
		}
		if claimed[offset] {
			continue
		}
		out = append(out, Citation{
			RawText:    text[m[0]:m[1]],
			SFSNumber:  sfs,
			TextOffset: m[0],
		})
	}
	return out
}

// canonicalNumber normalizes "5a" and "5 a" to the "5 a" form the rest of
// the system stores, so parsed pinpoints produce matching provision refs.
func canonicalNumber(n string) string {
	if n == "" {
		return ""
	}
	last := n[len(n)-1]
	if last < 'a' || last > 'z' {
		return n
	}
	digits := strings.TrimRight(n[:len(n)-1], " ")
	return digits + " " + string(last)
}

// group returns the text of capture group i, "" when it did not match.
func group(text string, m []int, i int) string {
	if m[2*i] < 0 {
		return ""
	}
	return text[m[2*i]:m[2*i+1]]
}
