package model

// CommentMatch records the reconciliation outcome for a single comment:
// the index of its counterpart in the other revision (or NoRef), the score
// that won the match, and whether the comment had viable candidates that
// all lost to better-scoring competitors.
type CommentMatch struct {
	TargetIdx int
	Score     float64

	// PoorMatch means at least one candidate cleared the acceptance
	// threshold but a different comment won the target. It distinguishes
	// "plausibly the same comment, but ambiguous" from "no relation at all"
	// and suppresses false deletion reports.
	PoorMatch bool
}

// MatchSet is the comment reconciliation side table, indexed by comment
// position in the "current" revision. Keeping matches out of the snapshots
// keeps the snapshots immutable and makes re-running reconciliation a matter
// of building a fresh table, with no reset pass.
type MatchSet struct {
	Comments []CommentMatch
}

// NewMatchSet returns a MatchSet for n comments with every entry unmatched.
func NewMatchSet(n int) *MatchSet {
	ms := &MatchSet{Comments: make([]CommentMatch, n)}
	for i := range ms.Comments {
		ms.Comments[i].TargetIdx = NoRef
	}
	return ms
}

// Matched reports whether the comment at idx has a counterpart.
func (m *MatchSet) Matched(idx int) bool {
	return m.Comments[idx].TargetIdx != NoRef
}

// TargetedBy returns a reverse index: for each comment index in the other
// revision, the index of the current comment matched to it, or NoRef.
func (m *MatchSet) TargetedBy(otherLen int) []int {
	rev := make([]int, otherLen)
	for i := range rev {
		rev[i] = NoRef
	}
	for ci, cm := range m.Comments {
		if cm.TargetIdx != NoRef {
			rev[cm.TargetIdx] = ci
		}
	}
	return rev
}

// SectionMatch records the reconciliation outcome for a single section.
type SectionMatch struct {
	TargetIdx int
	Score     float64
}

// SectionMatchSet is the section reconciliation side table, indexed by
// section position in the "current" revision.
type SectionMatchSet struct {
	Sections []SectionMatch
}

// NewSectionMatchSet returns a SectionMatchSet with every entry unmatched.
func NewSectionMatchSet(n int) *SectionMatchSet {
	sm := &SectionMatchSet{Sections: make([]SectionMatch, n)}
	for i := range sm.Sections {
		sm.Sections[i].TargetIdx = NoRef
	}
	return sm
}

// Matched reports whether the section at idx has a counterpart.
func (m *SectionMatchSet) Matched(idx int) bool {
	return m.Sections[idx].TargetIdx != NoRef
}
