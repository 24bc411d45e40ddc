package reconcile

import (
	"strings"
	"unicode"

	"github.com/talkwatch/talkwatch/internal/domain/model"
)

// score computes the similarity between the candidate comment in current and
// the target comment in other. Callers must have applied the author/date gate
// already; pairs failing the gate are never scored.
func score(current, other *model.RevisionSnapshot, candIdx, targetIdx int, totalCountEqual bool, w Weights) float64 {
	cand := &current.Comments[candIdx]
	target := &other.Comments[targetIdx]

	var s float64

	candParent := current.Parent(candIdx)
	targetParent := other.Parent(targetIdx)
	switch {
	case targetParent != nil && targetParent.Author != "" &&
		candParent != nil && candParent.Author == targetParent.Author:
		s += w.ParentAuthor
	case targetParent == nil && candParent == nil:
		s += w.BothParentless
	}

	if current.Headline(candIdx) == other.Headline(targetIdx) {
		s += w.Headline
	}

	proportion := partsMatchedProportion(cand.Fragments, target.Fragments)
	if proportion == 1 {
		// Full structural identity; skip the cheaper text comparison.
		s += 1
	} else {
		// The word overlap backs up the structural signal when fragments
		// diverge (e.g. reformatting). The combined term is capped at the
		// full-identity value so more identical fragments can never lower
		// the score.
		overlap := proportion + wordOverlap(cand.Text, target.Text)
		if overlap > 1 {
			overlap = 1
		}
		s += overlap
	}

	if totalCountEqual && cand.Index == target.Index {
		s += w.SameIndex
	}

	return s
}

// partsMatchedProportion is the fraction of fragment positions with
// byte-identical content. The denominator is the longer of the two lists so
// that padding or truncation is penalized, not ignored.
func partsMatchedProportion(a, b []string) float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	matched := 0
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			matched++
		}
	}
	return float64(matched) / float64(n)
}

// wordOverlap is a Jaccard-style word-set overlap in [0, 1], the fallback
// signal when structural fragments diverge (e.g. reformatting).
func wordOverlap(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for word := range wordsA {
		if _, ok := wordsB[word]; ok {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	return float64(intersection) / float64(union)
}

// wordSet lowercases the text and splits it into the set of letter/digit runs.
func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		set[word] = struct{}{}
	}
	return set
}
