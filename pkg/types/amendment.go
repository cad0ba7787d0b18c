package types

// AmendmentType classifies what an amending act did to a provision.
type AmendmentType string

const (
	AmendmentAmended      AmendmentType = "amended"
	AmendmentNewWording   AmendmentType = "new-wording"
	AmendmentIntroduced   AmendmentType = "introduced"
	AmendmentRepealed     AmendmentType = "repealed"
	AmendmentTransitional AmendmentType = "transitional"
)

// ReferencePosition records where in the text an amendment reference was
// found. Consumers use it as a confidence signal: a trailing suffix is
// authoritative, a transitional-block sweep is weak.
type ReferencePosition string

const (
	PositionSuffix       ReferencePosition = "suffix"
	PositionInline       ReferencePosition = "inline"
	PositionTransitional ReferencePosition = "transitional"
)

// AmendmentReference is a fact extracted from statute text. It is derived,
// not authoritative on its own, and is recomputed each time text is parsed.
type AmendmentReference struct {
	// AmendedBySFS identifies the amending/repealing act, e.g. "2018:218".
	AmendedBySFS string `json:"amended_by_sfs"`

	// Type is what the referenced act did.
	Type AmendmentType `json:"amendment_type"`

	// Position is where in the text the reference was found.
	Position ReferencePosition `json:"position"`

	// RawText is the exact matched fragment, retained for audit.
	RawText string `json:"raw_text"`
}

// RepealSummary is extracted from document-level metadata fields.
type RepealSummary struct {
	// RepealedBySFS identifies the repealing act.
	RepealedBySFS string `json:"repealed_by_sfs,omitempty"`

	// RepealDate is when the repeal took effect; nil when the metadata
	// carried no parseable date.
	RepealDate *Date `json:"repeal_date,omitempty"`
}
