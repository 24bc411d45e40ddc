package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkwatch/talkwatch/internal/domain/model"
)

func makeSnapshot(title string, revID int64) *model.RevisionSnapshot {
	date := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &model.RevisionSnapshot{
		PageTitle:  title,
		RevisionID: revID,
		Comments: []model.CommentSnapshot{
			{
				ID:         "Alice-202603011200",
				Author:     "Alice",
				Date:       &date,
				ParentIdx:  model.NoRef,
				Index:      0,
				Fragments:  []string{"f0"},
				Text:       "First point.",
				SectionIdx: 0,
				TextHTML:   "<p>First point.</p>",
			},
		},
		Sections: []model.SectionSnapshot{
			{Headline: "Opening", TOCLevel: 1, ParentIdx: model.NoRef, CommentIdxs: []int{0}},
		},
	}
}

func TestRevisionRepo_PutAndGet(t *testing.T) {
	db := setupTestDB(t)
	pages := NewPageRepo(db)
	repo := NewRevisionRepo(db)
	ctx := context.Background()

	require.NoError(t, pages.Upsert(ctx, makePage("Talk:Dune")))
	require.NoError(t, repo.Put(ctx, makeSnapshot("Talk:Dune", 100)))

	got, err := repo.Get(ctx, "Talk:Dune", 100)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "Talk:Dune", got.PageTitle)
	assert.Equal(t, int64(100), got.RevisionID)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "Alice", got.Comments[0].Author)
	assert.Equal(t, model.NoRef, got.Comments[0].ParentIdx)
	require.NotNil(t, got.Comments[0].Date)
	assert.True(t, got.Comments[0].Date.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
	require.Len(t, got.Sections, 1)
	assert.Equal(t, "Opening", got.Sections[0].Headline)
}

func TestRevisionRepo_Get_Miss(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRevisionRepo(db)
	ctx := context.Background()

	got, err := repo.Get(ctx, "Talk:Dune", 100)
	require.NoError(t, err)
	assert.Nil(t, got, "cache miss should return nil without error")
}

func TestRevisionRepo_Put_Replaces(t *testing.T) {
	db := setupTestDB(t)
	pages := NewPageRepo(db)
	repo := NewRevisionRepo(db)
	ctx := context.Background()

	require.NoError(t, pages.Upsert(ctx, makePage("Talk:Dune")))
	require.NoError(t, repo.Put(ctx, makeSnapshot("Talk:Dune", 100)))

	updated := makeSnapshot("Talk:Dune", 100)
	updated.Comments[0].Text = "First point, reworded."
	require.NoError(t, repo.Put(ctx, updated))

	got, err := repo.Get(ctx, "Talk:Dune", 100)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "First point, reworded.", got.Comments[0].Text)
}

func TestRevisionRepo_Prune(t *testing.T) {
	db := setupTestDB(t)
	pages := NewPageRepo(db)
	repo := NewRevisionRepo(db)
	ctx := context.Background()

	require.NoError(t, pages.Upsert(ctx, makePage("Talk:Dune")))
	require.NoError(t, pages.Upsert(ctx, makePage("Talk:Arrakis")))
	for _, id := range []int64{100, 101, 102, 103} {
		require.NoError(t, repo.Put(ctx, makeSnapshot("Talk:Dune", id)))
	}
	require.NoError(t, repo.Put(ctx, makeSnapshot("Talk:Arrakis", 100)))

	// Zero ids in keep are ignored.
	require.NoError(t, repo.Prune(ctx, "Talk:Dune", []int64{103, 101, 0}))

	for id, want := range map[int64]bool{100: false, 101: true, 102: false, 103: true} {
		got, err := repo.Get(ctx, "Talk:Dune", id)
		require.NoError(t, err)
		if want {
			assert.NotNil(t, got, "revision %d should survive prune", id)
		} else {
			assert.Nil(t, got, "revision %d should be pruned", id)
		}
	}

	// Other pages are untouched.
	got, err := repo.Get(ctx, "Talk:Arrakis", 100)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
