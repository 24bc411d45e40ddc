package reconcile

import "github.com/talkwatch/talkwatch/internal/domain/model"

// Sections matches the sections of current against those of other. Section
// matching runs after comment matching and consumes its result: the strongest
// signal besides headline identity is how many of a reference section's
// comments ended up, via their comment matches, inside the candidate section.
//
// For every reference section the highest-scoring current section at or above
// w.SectionMin wins; ties prefer the candidate whose existing match score is
// lower, so a better discovered match can still displace a weaker earlier one.
func Sections(current, other *model.RevisionSnapshot, cm *model.MatchSet, w Weights) *model.SectionMatchSet {
	sm := model.NewSectionMatchSet(len(current.Sections))

	// Reverse comment index: other comment idx -> current comment idx.
	targetedBy := cm.TargetedBy(len(other.Comments))

	for oi := range other.Sections {
		best := model.NoRef
		var bestScore float64
		for ci := range current.Sections {
			s := sectionScore(current, other, ci, oi, targetedBy, sm, w)
			if s < w.SectionMin {
				continue
			}
			switch {
			case s > bestScore:
				best, bestScore = ci, s
			case s == bestScore && best != model.NoRef:
				// Prefer the candidate that is cheaper to displace.
				if currentMatchScore(sm, ci) < currentMatchScore(sm, best) {
					best = ci
				}
			}
		}
		if best == model.NoRef {
			continue
		}

		entry := &sm.Sections[best]
		if entry.TargetIdx == model.NoRef || entry.Score < bestScore {
			entry.TargetIdx = oi
			entry.Score = bestScore
		}
	}

	return sm
}

// sectionScore combines headline identity, matched-comment membership,
// parent lineage compatibility, and nesting-level proximity.
func sectionScore(current, other *model.RevisionSnapshot, candIdx, targetIdx int, targetedBy []int, sm *model.SectionMatchSet, w Weights) float64 {
	cand := &current.Sections[candIdx]
	target := &other.Sections[targetIdx]

	var s float64

	if cand.Headline == target.Headline {
		s += 1
	}

	// Fraction of the reference section's comments whose matched counterpart
	// lives directly in the candidate section.
	if len(target.CommentIdxs) > 0 {
		carried := 0
		for _, oc := range target.CommentIdxs {
			ci := targetedBy[oc]
			if ci != model.NoRef && current.Comments[ci].SectionIdx == candIdx {
				carried++
			}
		}
		s += float64(carried) / float64(len(target.CommentIdxs))
	}

	// A match is more credible when the candidate's parent is already the
	// match of the reference's parent. Sections are processed in document
	// order, so parents are usually resolved before their children.
	if cand.ParentIdx != model.NoRef && target.ParentIdx != model.NoRef &&
		sm.Sections[cand.ParentIdx].TargetIdx == target.ParentIdx {
		s += 0.5
	}

	levelDiff := cand.TOCLevel - target.TOCLevel
	if levelDiff < 0 {
		levelDiff = -levelDiff
	}
	s += 0.25 / float64(1+levelDiff)

	return s
}

func currentMatchScore(sm *model.SectionMatchSet, idx int) float64 {
	if sm.Sections[idx].TargetIdx == model.NoRef {
		return 0
	}
	return sm.Sections[idx].Score
}

// Renames returns the matched section pairs whose headlines differ and whose
// match score clears w.RenameMin, in current-section order. The baseline
// (current) holds the old headline, the fresh revision (other) the new one;
// consumers migrate section subscriptions accordingly.
func Renames(current, other *model.RevisionSnapshot, sm *model.SectionMatchSet, w Weights) []model.SectionRename {
	var renames []model.SectionRename
	for ci := range current.Sections {
		entry := sm.Sections[ci]
		if entry.TargetIdx == model.NoRef || entry.Score < w.RenameMin {
			continue
		}
		oldHeadline := current.Sections[ci].Headline
		newHeadline := other.Sections[entry.TargetIdx].Headline
		if oldHeadline == newHeadline {
			continue
		}
		renames = append(renames, model.SectionRename{
			PageTitle:   current.PageTitle,
			OldHeadline: oldHeadline,
			NewHeadline: newHeadline,
			Score:       entry.Score,
		})
	}
	return renames
}
