package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkwatch/talkwatch/internal/domain/model"
)

func TestComments_IdenticalPairMatches(t *testing.T) {
	t.Parallel()

	current := singleRevision(model.CommentSnapshot{
		ID: "alice-1", Author: "Alice", Date: ts(10),
		Fragments: []string{"<p>Hi</p>"}, Text: "Hi",
	})
	other := singleRevision(model.CommentSnapshot{
		ID: "alice-1", Author: "Alice", Date: ts(10),
		Fragments: []string{"<p>Hi</p>"}, Text: "Hi",
	})

	ms := Comments(current, other, DefaultWeights())

	require.True(t, ms.Matched(0))
	assert.Equal(t, 0, ms.Comments[0].TargetIdx)
	assert.Greater(t, ms.Comments[0].Score, DefaultWeights().Threshold)
	assert.False(t, ms.Comments[0].PoorMatch)
}

func TestComments_GateExcludesDifferentDate(t *testing.T) {
	t.Parallel()

	// Identical text, different signature timestamps: never scored, never
	// matched, regardless of similarity.
	current := singleRevision(model.CommentSnapshot{
		ID: "alice-1", Author: "Alice", Date: ts(10),
		Fragments: []string{"<p>Hi</p>"}, Text: "Hi",
	})
	other := singleRevision(model.CommentSnapshot{
		ID: "alice-2", Author: "Alice", Date: ts(11),
		Fragments: []string{"<p>Hi</p>"}, Text: "Hi",
	})

	ms := Comments(current, other, DefaultWeights())

	assert.False(t, ms.Matched(0))
	assert.False(t, ms.Comments[0].PoorMatch)
}

func TestComments_GateExcludesDifferentAuthor(t *testing.T) {
	t.Parallel()

	current := singleRevision(model.CommentSnapshot{
		ID: "alice-1", Author: "Alice", Date: ts(10),
		Fragments: []string{"<p>Hi</p>"}, Text: "Hi",
	})
	other := singleRevision(model.CommentSnapshot{
		ID: "bob-1", Author: "Bob", Date: ts(10),
		Fragments: []string{"<p>Hi</p>"}, Text: "Hi",
	})

	ms := Comments(current, other, DefaultWeights())

	assert.False(t, ms.Matched(0))
}

func TestComments_MissingDateNeverMatches(t *testing.T) {
	t.Parallel()

	current := singleRevision(model.CommentSnapshot{
		ID: "alice-1", Author: "Alice",
		Fragments: []string{"<p>Hi</p>"}, Text: "Hi",
	})
	other := singleRevision(model.CommentSnapshot{
		ID: "alice-1", Author: "Alice",
		Fragments: []string{"<p>Hi</p>"}, Text: "Hi",
	})

	ms := Comments(current, other, DefaultWeights())

	assert.False(t, ms.Matched(0))
	assert.False(t, ms.Comments[0].PoorMatch)
}

func TestComments_LoserMarkedPoorMatch(t *testing.T) {
	t.Parallel()

	// Two candidates by Alice at the same timestamp; only B's fragments
	// match the target exactly. B wins, A is flagged PoorMatch because its
	// own score against the target cleared the threshold.
	current := singleRevision(
		model.CommentSnapshot{
			ID: "alice-1", Author: "Alice", Date: ts(10),
			Fragments: []string{"<p>thanks for the detailed review of this</p>"},
			Text:      "thanks for the detailed review of this",
		},
		model.CommentSnapshot{
			ID: "alice-2", Author: "Alice", Date: ts(10),
			Fragments: []string{"<p>thanks for the detailed review of this proposal</p>"},
			Text:      "thanks for the detailed review of this proposal",
		},
	)
	other := singleRevision(
		model.CommentSnapshot{
			ID: "alice-x", Author: "Alice", Date: ts(10),
			Fragments: []string{"<p>thanks for the detailed review of this proposal</p>"},
			Text:      "thanks for the detailed review of this proposal",
		},
	)

	ms := Comments(current, other, DefaultWeights())

	require.True(t, ms.Matched(1))
	assert.Equal(t, 0, ms.Comments[1].TargetIdx)

	assert.False(t, ms.Matched(0))
	assert.True(t, ms.Comments[0].PoorMatch)
}

func TestComments_OneToOne(t *testing.T) {
	t.Parallel()

	// Several same-author same-timestamp comments on both sides: after
	// reconciliation no two current comments may share a target.
	texts := []string{
		"first point about the naming convention",
		"second point about the naming convention",
		"third point about the naming convention",
	}
	var cs, os []model.CommentSnapshot
	for i, text := range texts {
		cs = append(cs, model.CommentSnapshot{
			ID: "alice-c" + string(rune('0'+i)), Author: "Alice", Date: ts(10),
			Fragments: []string{"<p>" + text + "</p>"}, Text: text,
		})
		os = append(os, model.CommentSnapshot{
			ID: "alice-o" + string(rune('0'+i)), Author: "Alice", Date: ts(10),
			Fragments: []string{"<p>" + text + "</p>"}, Text: text,
		})
	}
	current := singleRevision(cs...)
	other := singleRevision(os...)

	ms := Comments(current, other, DefaultWeights())

	seen := map[int]int{}
	for ci := range current.Comments {
		if ms.Matched(ci) {
			target := ms.Comments[ci].TargetIdx
			prev, dup := seen[target]
			require.False(t, dup, "comments %d and %d both matched target %d", prev, ci, target)
			seen[target] = ci
		}
	}
	assert.Len(t, seen, 3)
	for i := 0; i < 3; i++ {
		assert.Equal(t, i, ms.Comments[i].TargetIdx)
	}
}

func TestComments_Deterministic(t *testing.T) {
	t.Parallel()

	current := singleRevision(
		model.CommentSnapshot{ID: "a1", Author: "Alice", Date: ts(10), Fragments: []string{"<p>one two three</p>"}, Text: "one two three"},
		model.CommentSnapshot{ID: "a2", Author: "Alice", Date: ts(10), Fragments: []string{"<p>one two four</p>"}, Text: "one two four"},
		model.CommentSnapshot{ID: "b1", Author: "Bob", Date: ts(11), Fragments: []string{"<p>reply</p>"}, Text: "reply"},
	)
	other := singleRevision(
		model.CommentSnapshot{ID: "a1", Author: "Alice", Date: ts(10), Fragments: []string{"<p>one two three</p>"}, Text: "one two three"},
		model.CommentSnapshot{ID: "a2", Author: "Alice", Date: ts(10), Fragments: []string{"<p>one two five</p>"}, Text: "one two five"},
		model.CommentSnapshot{ID: "b1", Author: "Bob", Date: ts(11), Fragments: []string{"<p>reply</p>"}, Text: "reply"},
	)

	first := Comments(current, other, DefaultWeights())
	second := Comments(current, other, DefaultWeights())

	assert.Equal(t, first, second)
}

func TestComments_LaterBetterTargetDisplacesEarlier(t *testing.T) {
	t.Parallel()

	// The current comment gates against both reference comments. The second
	// (later-iterated) reference is identical and must take the match away
	// from the weaker first one.
	current := singleRevision(
		model.CommentSnapshot{
			ID: "alice-1", Author: "Alice", Date: ts(10),
			Fragments: []string{"<p>the final wording of the motion</p>"},
			Text:      "the final wording of the motion",
		},
	)
	other := singleRevision(
		model.CommentSnapshot{
			ID: "alice-draft", Author: "Alice", Date: ts(10),
			Fragments: []string{"<p>the draft wording of the motion</p>"},
			Text:      "the draft wording of the motion",
		},
		model.CommentSnapshot{
			ID: "alice-final", Author: "Alice", Date: ts(10),
			Fragments: []string{"<p>the final wording of the motion</p>"},
			Text:      "the final wording of the motion",
		},
	)

	ms := Comments(current, other, DefaultWeights())

	require.True(t, ms.Matched(0))
	assert.Equal(t, 1, ms.Comments[0].TargetIdx)
}
