package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkwatch/talkwatch/internal/domain/model"
)

// discussion builds a two-section revision where each section holds one
// comment by the named authors.
func discussion(headlines [2]string, texts [2]string) *model.RevisionSnapshot {
	rev := &model.RevisionSnapshot{PageTitle: "Talk:Example"}
	for i := 0; i < 2; i++ {
		rev.Sections = append(rev.Sections, model.SectionSnapshot{
			Headline:    headlines[i],
			TOCLevel:    1,
			ParentIdx:   model.NoRef,
			CommentIdxs: []int{i},
		})
		rev.Comments = append(rev.Comments, model.CommentSnapshot{
			ID:         "alice-" + string(rune('0'+i)),
			Author:     "Alice",
			Date:       ts(10 + i),
			Index:      i,
			ParentIdx:  model.NoRef,
			SectionIdx: i,
			Fragments:  []string{"<p>" + texts[i] + "</p>"},
			Text:       texts[i],
		})
	}
	return rev
}

func TestSections_EqualHeadlinesMatch(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	current := discussion([2]string{"Naming", "Scope"}, [2]string{"about the name", "about the scope"})
	other := discussion([2]string{"Naming", "Scope"}, [2]string{"about the name", "about the scope"})

	cm := Comments(current, other, w)
	sm := Sections(current, other, cm, w)

	require.True(t, sm.Matched(0))
	require.True(t, sm.Matched(1))
	assert.Equal(t, 0, sm.Sections[0].TargetIdx)
	assert.Equal(t, 1, sm.Sections[1].TargetIdx)
}

func TestSections_RenameDetectedViaMembership(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	// The first section was renamed but its comment carried over unchanged.
	current := discussion([2]string{"Naming", "Scope"}, [2]string{"keep the short form of the name", "about the scope"})
	other := discussion([2]string{"Naming (proposal)", "Scope"}, [2]string{"keep the short form of the name", "about the scope"})

	cm := Comments(current, other, w)
	require.True(t, cm.Matched(0), "the carried-over comment must match despite the headline change")

	sm := Sections(current, other, cm, w)
	require.True(t, sm.Matched(0))
	assert.Equal(t, 0, sm.Sections[0].TargetIdx)

	renames := Renames(current, other, sm, w)
	require.Len(t, renames, 1)
	assert.Equal(t, "Naming", renames[0].OldHeadline)
	assert.Equal(t, "Naming (proposal)", renames[0].NewHeadline)
}

func TestSections_NoRenameBelowConfidence(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	w.RenameMin = 10 // unreachable

	current := discussion([2]string{"Naming", "Scope"}, [2]string{"keep the short form of the name", "about the scope"})
	other := discussion([2]string{"Naming (proposal)", "Scope"}, [2]string{"keep the short form of the name", "about the scope"})

	cm := Comments(current, other, w)
	sm := Sections(current, other, cm, w)

	assert.Empty(t, Renames(current, other, sm, w))
}

func TestSections_LevelProximityAloneIsNotEnough(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	current := discussion([2]string{"Alpha", "Beta"}, [2]string{"one two three", "four five six"})
	other := discussion([2]string{"Gamma", "Delta"}, [2]string{"seven eight nine", "ten eleven twelve"})

	cm := Comments(current, other, w)
	sm := Sections(current, other, cm, w)

	assert.False(t, sm.Matched(0))
	assert.False(t, sm.Matched(1))
}
