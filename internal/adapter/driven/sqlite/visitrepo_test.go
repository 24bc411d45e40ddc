package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkwatch/talkwatch/internal/domain/model"
)

func TestVisitRepo_SetAndGetFlags(t *testing.T) {
	db := setupTestDB(t)
	pages := NewPageRepo(db)
	repo := NewVisitRepo(db)
	ctx := context.Background()

	require.NoError(t, pages.Upsert(ctx, makePage("Talk:Dune")))

	require.NoError(t, repo.SetFlags(ctx, "Talk:Dune", "Alice-202603011200", model.PriorFlags{Changed: true}))
	require.NoError(t, repo.SetFlags(ctx, "Talk:Dune", "Bob-202603011300", model.PriorFlags{Deleted: true}))

	flags, err := repo.GetFlags(ctx, "Talk:Dune")
	require.NoError(t, err)
	require.Len(t, flags, 2)
	assert.Equal(t, model.PriorFlags{Changed: true}, flags["Alice-202603011200"])
	assert.Equal(t, model.PriorFlags{Deleted: true}, flags["Bob-202603011300"])
}

func TestVisitRepo_SetFlags_Overwrites(t *testing.T) {
	db := setupTestDB(t)
	pages := NewPageRepo(db)
	repo := NewVisitRepo(db)
	ctx := context.Background()

	require.NoError(t, pages.Upsert(ctx, makePage("Talk:Dune")))
	require.NoError(t, repo.SetFlags(ctx, "Talk:Dune", "Alice-202603011200", model.PriorFlags{Changed: true}))
	require.NoError(t, repo.SetFlags(ctx, "Talk:Dune", "Alice-202603011200", model.PriorFlags{}))

	flags, err := repo.GetFlags(ctx, "Talk:Dune")
	require.NoError(t, err)
	assert.Equal(t, model.PriorFlags{}, flags["Alice-202603011200"])
}

func TestVisitRepo_GetFlags_Empty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVisitRepo(db)
	ctx := context.Background()

	flags, err := repo.GetFlags(ctx, "Talk:Dune")
	require.NoError(t, err)
	assert.Empty(t, flags)
}

func TestVisitRepo_ClearFlags(t *testing.T) {
	db := setupTestDB(t)
	pages := NewPageRepo(db)
	repo := NewVisitRepo(db)
	ctx := context.Background()

	require.NoError(t, pages.Upsert(ctx, makePage("Talk:Dune")))
	require.NoError(t, repo.SetFlags(ctx, "Talk:Dune", "Alice-202603011200", model.PriorFlags{Changed: true}))
	require.NoError(t, repo.SetFlags(ctx, "Talk:Dune", "Bob-202603011300", model.PriorFlags{Changed: true}))

	require.NoError(t, repo.ClearFlags(ctx, "Talk:Dune", "Alice-202603011200"))

	flags, err := repo.GetFlags(ctx, "Talk:Dune")
	require.NoError(t, err)
	require.Len(t, flags, 1)
	_, ok := flags["Bob-202603011300"]
	assert.True(t, ok)
}
