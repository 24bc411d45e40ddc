// Package reconcile implements the cross-revision reconciliation engine:
// scoring candidate comment pairs, resolving bipartite matches between two
// revision snapshots, matching sections, and classifying per-comment changes.
// Everything in this package is pure, synchronous computation over in-memory
// snapshots; orchestration and I/O live in the application layer.
package reconcile

// Weights holds the scoring constants of the match scorer. The defaults were
// tuned against real talk-page edit histories; treat them as configuration to
// be re-validated against a corpus, not values to re-derive analytically.
type Weights struct {
	// ParentAuthor is added when the target has a parent with an identified
	// author and the candidate's parent author equals it.
	ParentAuthor float64

	// BothParentless is added when candidate and target are both top-level.
	// Weaker than ParentAuthor since "no parent" is common.
	BothParentless float64

	// Headline is added when the owning section headlines are equal.
	Headline float64

	// SameIndex is added when the ordinal positions are equal, counted only
	// when both revisions have the same total comment count.
	SameIndex float64

	// Threshold is the acceptance bar: only scores strictly above it make a
	// pair a viable match. Calibrated so that two distinct comments by the
	// same author on the same topic almost never clear it, while a genuine
	// edit clears it comfortably.
	Threshold float64

	// SectionMin is the minimal score for a section match.
	SectionMin float64

	// RenameMin is the minimal score at which a matched section pair with
	// differing headlines is reported as a rename. A renamed section gets no
	// headline term, so the bar is carried almost entirely by comment
	// membership.
	RenameMin float64
}

// DefaultWeights returns the tuned scoring constants.
func DefaultWeights() Weights {
	return Weights{
		ParentAuthor:   1.0,
		BothParentless: 0.75,
		Headline:       1.0,
		SameIndex:      0.25,
		Threshold:      1.66,
		SectionMin:     1.0,
		RenameMin:      1.2,
	}
}
