package model

// ChangeKind classifies what happened to a comment between two revisions.
type ChangeKind string

const (
	ChangeKindChanged   ChangeKind = "changed"
	ChangeKindUnchanged ChangeKind = "unchanged" // a previously changed comment reverted to the baseline
	ChangeKindDeleted   ChangeKind = "deleted"
	ChangeKindUndeleted ChangeKind = "undeleted"
)

// CommentChange is one entry of the ordered change list produced by the
// classifier for a single check cycle.
type CommentChange struct {
	// CommentID identifies the comment in the baseline revision.
	CommentID string `json:"comment_id"`

	Kind ChangeKind `json:"kind"`

	// NewTextHTML carries the counterpart's comparison HTML for changed
	// comments, so consumers can re-render without another fetch.
	NewTextHTML string `json:"new_text_html,omitempty"`

	// VerifiedDiff is set when a line-level wikitext diff corroborated the
	// change. Without it the change is still recorded, but consumers should
	// not offer a "view diff" affordance.
	VerifiedDiff bool `json:"verified_diff,omitempty"`
}

// PriorFlags carries the persisted per-comment state from earlier check
// cycles, needed to detect reverts and undeletions.
type PriorFlags struct {
	Changed bool `json:"changed"`
	Deleted bool `json:"deleted"`
}

// SectionRename is emitted when a matched section pair has different
// headlines with enough supporting signal to migrate subscriptions.
type SectionRename struct {
	PageTitle   string  `json:"page_title"`
	OldHeadline string  `json:"old_headline"`
	NewHeadline string  `json:"new_headline"`
	Score       float64 `json:"score"`
}

// CheckResult is the per-cycle payload handed to consumers: every comment in
// the fresh revision, the notification-worthy subset, and a section grouping.
// The BySection key is the section headline, "" for comments above the first
// heading.
type CheckResult struct {
	PageTitle  string                       `json:"page_title"`
	RevisionID int64                        `json:"revision_id"`
	All        []CommentSnapshot            `json:"all"`
	Relevant   []CommentSnapshot            `json:"relevant"`
	BySection  map[string][]CommentSnapshot `json:"by_section"`
	Changes    []CommentChange              `json:"changes"`
	Renames    []SectionRename              `json:"renames,omitempty"`
}
