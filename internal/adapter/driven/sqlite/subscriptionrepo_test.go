package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkwatch/talkwatch/internal/domain/model"
)

func makeSub(page, headline string) model.Subscription {
	return model.Subscription{
		PageTitle:       page,
		SectionHeadline: headline,
		CreatedAt:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestSubscriptionRepo_AddAndList(t *testing.T) {
	db := setupTestDB(t)
	pages := NewPageRepo(db)
	repo := NewSubscriptionRepo(db)
	ctx := context.Background()

	require.NoError(t, pages.Upsert(ctx, makePage("Talk:Dune")))
	require.NoError(t, repo.Add(ctx, makeSub("Talk:Dune", "Plot summary")))
	require.NoError(t, repo.Add(ctx, makeSub("Talk:Dune", "Infobox image")))

	subs, err := repo.ListByPage(ctx, "Talk:Dune")
	require.NoError(t, err)
	require.Len(t, subs, 2)

	// Ordered by headline
	assert.Equal(t, "Infobox image", subs[0].SectionHeadline)
	assert.Equal(t, "Plot summary", subs[1].SectionHeadline)
}

func TestSubscriptionRepo_Add_Duplicate(t *testing.T) {
	db := setupTestDB(t)
	pages := NewPageRepo(db)
	repo := NewSubscriptionRepo(db)
	ctx := context.Background()

	require.NoError(t, pages.Upsert(ctx, makePage("Talk:Dune")))
	require.NoError(t, repo.Add(ctx, makeSub("Talk:Dune", "Plot summary")))
	require.NoError(t, repo.Add(ctx, makeSub("Talk:Dune", "Plot summary")))

	subs, err := repo.ListByPage(ctx, "Talk:Dune")
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestSubscriptionRepo_Remove(t *testing.T) {
	db := setupTestDB(t)
	pages := NewPageRepo(db)
	repo := NewSubscriptionRepo(db)
	ctx := context.Background()

	require.NoError(t, pages.Upsert(ctx, makePage("Talk:Dune")))
	require.NoError(t, repo.Add(ctx, makeSub("Talk:Dune", "Plot summary")))
	require.NoError(t, repo.Remove(ctx, "Talk:Dune", "Plot summary"))

	subs, err := repo.ListByPage(ctx, "Talk:Dune")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestSubscriptionRepo_Rename(t *testing.T) {
	db := setupTestDB(t)
	pages := NewPageRepo(db)
	repo := NewSubscriptionRepo(db)
	ctx := context.Background()

	require.NoError(t, pages.Upsert(ctx, makePage("Talk:Dune")))
	require.NoError(t, repo.Add(ctx, makeSub("Talk:Dune", "Plot summary")))

	require.NoError(t, repo.Rename(ctx, "Talk:Dune", "Plot summary", "Plot synopsis"))

	subs, err := repo.ListByPage(ctx, "Talk:Dune")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Plot synopsis", subs[0].SectionHeadline)
}

func TestSubscriptionRepo_Rename_NoSubscription(t *testing.T) {
	db := setupTestDB(t)
	pages := NewPageRepo(db)
	repo := NewSubscriptionRepo(db)
	ctx := context.Background()

	require.NoError(t, pages.Upsert(ctx, makePage("Talk:Dune")))

	// Renaming an unsubscribed headline must not create a subscription.
	require.NoError(t, repo.Rename(ctx, "Talk:Dune", "Plot summary", "Plot synopsis"))

	subs, err := repo.ListByPage(ctx, "Talk:Dune")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestSubscriptionRepo_Rename_TargetExists(t *testing.T) {
	db := setupTestDB(t)
	pages := NewPageRepo(db)
	repo := NewSubscriptionRepo(db)
	ctx := context.Background()

	require.NoError(t, pages.Upsert(ctx, makePage("Talk:Dune")))
	require.NoError(t, repo.Add(ctx, makeSub("Talk:Dune", "Plot summary")))
	require.NoError(t, repo.Add(ctx, makeSub("Talk:Dune", "Plot synopsis")))

	require.NoError(t, repo.Rename(ctx, "Talk:Dune", "Plot summary", "Plot synopsis"))

	subs, err := repo.ListByPage(ctx, "Talk:Dune")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Plot synopsis", subs[0].SectionHeadline)
}

func TestSubscriptionRepo_MuteUnmute(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Mute(ctx, "Zeke"))
	require.NoError(t, repo.Mute(ctx, "Alice"))
	require.NoError(t, repo.Mute(ctx, "Alice"))

	authors, err := repo.MutedAuthors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Zeke"}, authors)

	require.NoError(t, repo.Unmute(ctx, "Alice"))

	authors, err = repo.MutedAuthors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zeke"}, authors)
}
