// Package types provides the core domain types for the statute database:
// provisions, provision versions, amendment references, and parse diagnostics.
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Provision is the smallest addressable unit of statute text: a numbered
// section, optionally within a chapter.
type Provision struct {
	// DocumentID identifies the parent statute, e.g. "2010:110".
	DocumentID string `json:"document_id"`

	// Chapter is the chapter number ("3", "4 a"), empty for unchaptered
	// statutes.
	Chapter string `json:"chapter,omitempty"`

	// Section is the section number within the chapter, possibly with a
	// letter suffix ("5", "5 a").
	Section string `json:"section"`

	// Title is the optional heading preceding the section.
	Title string `json:"title,omitempty"`

	// Content is the normalized body text: single-spaced, trimmed.
	Content string `json:"content"`
}

// Ref returns the canonical provision address: "chapter:section" when the
// provision belongs to a chapter, bare "section" otherwise. The address is
// always derived from Chapter and Section, never stored independently.
func (p Provision) Ref() string {
	return MakeRef(p.Chapter, p.Section)
}

// MakeRef derives a canonical provision reference from chapter and section.
func MakeRef(chapter, section string) string {
	if chapter == "" {
		return section
	}
	return chapter + ":" + section
}

// SplitRef splits a canonical provision reference into chapter and section.
// A bare reference yields an empty chapter.
func SplitRef(ref string) (chapter, section string) {
	if i := strings.IndexByte(ref, ':'); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return "", ref
}

// SectionOrdinal converts a section number with an optional letter suffix
// into a sortable ordering key. The letter suffix contributes a fractional
// offset so that "5 a" sorts strictly between 5 and 6 and below "5 b".
// Unparseable sections yield 0.
func SectionOrdinal(section string) float64 {
	section = strings.TrimSpace(section)
	if section == "" {
		return 0
	}
	num := section
	suffix := ""
	if i := strings.LastIndexByte(section, ' '); i >= 0 {
		num = section[:i]
		suffix = strings.TrimSpace(section[i+1:])
	} else if last := section[len(section)-1]; last >= 'a' && last <= 'z' {
		num = section[:len(section)-1]
		suffix = section[len(section)-1:]
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return 0
	}
	ord := float64(n)
	if suffix != "" {
		c := suffix[0]
		if c >= 'a' && c <= 'z' {
			ord += float64(c-'a'+1) / 27.0
		}
	}
	return ord
}

// Document carries statute-level metadata.
type Document struct {
	// DocumentID is the stable statute identifier, e.g. "2010:110".
	DocumentID string `json:"document_id"`

	// Title is the statute's short title.
	Title string `json:"title,omitempty"`

	// RepealedBy is the identifier of the repealing act, when known.
	RepealedBy string `json:"repealed_by,omitempty"`

	// RepealDate is the date the repeal took effect, when known.
	RepealDate *Date `json:"repeal_date,omitempty"`
}

// InForceAt reports whether the statute is still in force at the given date.
// A statute with no recorded repeal is always in force.
func (d Document) InForceAt(date Date) bool {
	if d.RepealDate == nil {
		return true
	}
	return date.Before(*d.RepealDate)
}

// String implements fmt.Stringer for log output.
func (p Provision) String() string {
	return fmt.Sprintf("%s %s", p.DocumentID, p.Ref())
}
