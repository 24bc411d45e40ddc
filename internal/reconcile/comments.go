package reconcile

import (
	"sort"

	"github.com/talkwatch/talkwatch/internal/domain/model"
)

// Comments matches every comment of current against the comments of other
// and returns a fresh side table keyed by current comment index. Only pairs
// sharing the author and an exactly equal signature date are ever scored
// (the gate); of the gated candidates, only those whose score clears
// w.Threshold enter ranking.
//
// The outer loop runs over other so each reference comment is considered
// exactly once as a potential source of truth. A later reference comment may
// still displace an earlier, weaker match of the same current comment; the
// winning assignment is always the best score seen. Losing candidates that
// cleared the threshold are flagged PoorMatch so the classifier can
// distinguish "ambiguous" from "unrelated".
//
// The result is deterministic: equal scores are broken by ascending candidate
// index, and no map iteration order leaks into the output.
func Comments(current, other *model.RevisionSnapshot, w Weights) *model.MatchSet {
	ms := model.NewMatchSet(len(current.Comments))
	totalCountEqual := len(current.Comments) == len(other.Comments)

	type ranked struct {
		idx   int
		score float64
	}

	for oi := range other.Comments {
		oc := &other.Comments[oi]
		if oc.Date == nil {
			// No date, no gate: permanently unmatchable.
			continue
		}

		var viable []ranked
		for ci := range current.Comments {
			cc := &current.Comments[ci]
			if cc.Author != oc.Author || cc.Date == nil || !cc.Date.Equal(*oc.Date) {
				continue
			}
			if s := score(current, other, ci, oi, totalCountEqual, w); s > w.Threshold {
				viable = append(viable, ranked{idx: ci, score: s})
			}
		}
		if len(viable) == 0 {
			continue
		}

		sort.SliceStable(viable, func(i, j int) bool {
			if viable[i].score != viable[j].score {
				return viable[i].score > viable[j].score
			}
			return viable[i].idx < viable[j].idx
		})

		assigned := false
		for _, cand := range viable {
			entry := &ms.Comments[cand.idx]
			if !assigned && (entry.TargetIdx == model.NoRef || entry.Score < cand.score) {
				entry.TargetIdx = oi
				entry.Score = cand.score
				entry.PoorMatch = false
				assigned = true
				continue
			}
			// Viable but not the winner. Keep an existing match; otherwise
			// remember that something plausible was here.
			if entry.TargetIdx == model.NoRef {
				entry.PoorMatch = true
			}
		}
	}

	return ms
}
