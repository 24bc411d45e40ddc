package reconcile

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/talkwatch/talkwatch/internal/domain/model"
)

// maxVerifiedChanges bounds the wikitext diff verification step: above this
// many candidate changes the diff is skipped entirely and no change carries
// the verified flag.
const maxVerifiedChanges = 20

// Classify produces the ordered change list for one check cycle. current is
// the baseline revision consumers last saw, other the freshly fetched one,
// cm the match table from Comments(current, other). prior carries per-comment
// flags persisted from earlier cycles, keyed by baseline comment id.
//
// Rules:
//   - matched with differing comparison HTML: changed
//   - matched, equal again, previously flagged changed: unchanged (reverts
//     are detected, not just forward diffs)
//   - unmatched without PoorMatch: deleted (nothing remotely resembled it)
//   - unmatched with PoorMatch: no event; ambiguity is not a deletion
//   - matched, previously flagged deleted: undeleted
func Classify(current, other *model.RevisionSnapshot, cm *model.MatchSet, prior map[string]model.PriorFlags) []model.CommentChange {
	var changes []model.CommentChange

	for ci := range current.Comments {
		c := &current.Comments[ci]
		entry := cm.Comments[ci]
		flags := prior[c.ID]

		if entry.TargetIdx == model.NoRef {
			if entry.PoorMatch {
				continue
			}
			if !flags.Deleted {
				changes = append(changes, model.CommentChange{
					CommentID: c.ID,
					Kind:      model.ChangeKindDeleted,
				})
			}
			continue
		}

		target := &other.Comments[entry.TargetIdx]

		if flags.Deleted {
			changes = append(changes, model.CommentChange{
				CommentID: c.ID,
				Kind:      model.ChangeKindUndeleted,
			})
		}

		differs := c.TextHTML != target.TextHTML
		if c.HeadingHTML != "" || target.HeadingHTML != "" {
			differs = differs || c.HeadingHTML != target.HeadingHTML
		}

		switch {
		case differs:
			changes = append(changes, model.CommentChange{
				CommentID:   c.ID,
				Kind:        model.ChangeKindChanged,
				NewTextHTML: target.TextHTML,
			})
		case flags.Changed:
			changes = append(changes, model.CommentChange{
				CommentID: c.ID,
				Kind:      model.ChangeKindUnchanged,
			})
		}
	}

	return changes
}

// NextFlags folds a change list into the prior-flags map for persistence
// before the next cycle. The input map is not modified.
func NextFlags(prior map[string]model.PriorFlags, changes []model.CommentChange) map[string]model.PriorFlags {
	next := make(map[string]model.PriorFlags, len(prior))
	for id, f := range prior {
		next[id] = f
	}
	for _, ch := range changes {
		f := next[ch.CommentID]
		switch ch.Kind {
		case model.ChangeKindChanged:
			f.Changed = true
		case model.ChangeKindUnchanged:
			f.Changed = false
		case model.ChangeKindDeleted:
			f.Deleted = true
		case model.ChangeKindUndeleted:
			f.Deleted = false
		}
		next[ch.CommentID] = f
	}
	return next
}

// VerifyChanges cross-checks changed comments against a line-level diff of
// the two revisions' wikitext and sets VerifiedDiff on the corroborated ones.
// Non-corroborated changes keep their event but never gain the flag. The
// check is skipped wholesale when more than maxVerifiedChanges candidates
// exist; it is an expensive step and only worthwhile when affordable.
func VerifyChanges(current *model.RevisionSnapshot, changes []model.CommentChange, oldWikitext, newWikitext string) {
	candidates := 0
	for i := range changes {
		if changes[i].Kind == model.ChangeKindChanged {
			candidates++
		}
	}
	if candidates == 0 || candidates > maxVerifiedChanges {
		return
	}

	touched := changedLines(oldWikitext, newWikitext)
	if len(touched) == 0 {
		return
	}

	byID := make(map[string]int, len(current.Comments))
	for ci := range current.Comments {
		byID[current.Comments[ci].ID] = ci
	}

	for i := range changes {
		if changes[i].Kind != model.ChangeKindChanged {
			continue
		}
		ci, ok := byID[changes[i].CommentID]
		if !ok {
			continue
		}
		if linesTouchComment(touched, current.Comments[ci].Text) {
			changes[i].VerifiedDiff = true
		}
	}
}

// changedLines returns the added and removed lines of a line-mode diff
// between the two texts.
func changedLines(oldText, newText string) []string {
	dmp := diffmatchpatch.New()
	charsA, charsB, lineIndex := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(charsA, charsB, false)
	diffs = dmp.DiffCharsToLines(diffs, lineIndex)

	var lines []string
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			continue
		}
		for _, line := range strings.Split(d.Text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return lines
}

// linesTouchComment reports whether any changed line plausibly belongs to
// the comment: at least half of the line's words must occur in the comment
// text. Containment, not Jaccard -- a one-line edit inside a long comment
// should still count.
func linesTouchComment(lines []string, commentText string) bool {
	commentWords := wordSet(commentText)
	for _, line := range lines {
		lineWords := wordSet(line)
		if len(lineWords) == 0 {
			continue
		}
		contained := 0
		for word := range lineWords {
			if _, ok := commentWords[word]; ok {
				contained++
			}
		}
		if float64(contained)/float64(len(lineWords)) >= 0.5 {
			return true
		}
	}
	return false
}
