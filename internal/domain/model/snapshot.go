package model

import "time"

// NoRef marks an absent parent/section reference inside a RevisionSnapshot.
// References are slice indices rather than pointers so snapshots stay plain
// serializable values with no object cycles.
const NoRef = -1

// CommentSnapshot is one comment as extracted from one page revision.
// Snapshots are immutable after extraction; match results live in a separate
// MatchSet side table, never on the snapshot itself.
type CommentSnapshot struct {
	// ID is a content-derived identifier (author + timestamp + disambiguator).
	// Unique within a revision, not guaranteed stable across revisions.
	ID string `json:"id"`

	Author string `json:"author"`

	// Date is nil when the signature timestamp could not be parsed. Comments
	// without a date can never pass the author/date gate and are always
	// reported as newly appeared or entirely deleted, never as modified.
	Date *time.Time `json:"date,omitempty"`

	// ParentIdx references the comment this one replies to, or NoRef.
	ParentIdx int `json:"parent_idx"`

	// Index is the zero-based ordinal among all comments in the revision.
	Index int `json:"index"`

	// Fragments holds the normalized per-element HTML strings composing the
	// comment body, in document order. Used for positional overlap scoring.
	Fragments []string `json:"fragments"`

	// Text is the plain-text rendering, the fallback overlap signal when
	// structural fragments diverge.
	Text string `json:"text"`

	// SectionIdx references the owning section, or NoRef.
	SectionIdx int `json:"section_idx"`

	// TextHTML and HeadingHTML are the raw comparison strings used by the
	// change classifier, kept separate from the normalized Fragments.
	TextHTML    string `json:"text_html"`
	HeadingHTML string `json:"heading_html,omitempty"`
}

// SectionSnapshot is one heading-delimited section of a revision.
type SectionSnapshot struct {
	Headline string `json:"headline"`
	TOCLevel int    `json:"toc_level"`

	// ParentIdx references the nearest enclosing section, or NoRef.
	ParentIdx int `json:"parent_idx"`

	// CommentIdxs lists the comments belonging directly to this section,
	// in document order. Descendant sections hold their own comments.
	CommentIdxs []int `json:"comment_idxs"`
}

// RevisionSnapshot is the full parsed state of one page revision: an arena of
// comments and sections with index-based cross references.
type RevisionSnapshot struct {
	PageTitle  string            `json:"page_title"`
	RevisionID int64             `json:"revision_id"`
	Comments   []CommentSnapshot `json:"comments"`
	Sections   []SectionSnapshot `json:"sections"`
}

// Parent returns the parent comment of the comment at idx, or nil.
func (r *RevisionSnapshot) Parent(idx int) *CommentSnapshot {
	p := r.Comments[idx].ParentIdx
	if p == NoRef {
		return nil
	}
	return &r.Comments[p]
}

// Headline returns the owning section headline of the comment at idx, or ""
// for comments above the first heading.
func (r *RevisionSnapshot) Headline(idx int) string {
	s := r.Comments[idx].SectionIdx
	if s == NoRef {
		return ""
	}
	return r.Sections[s].Headline
}
