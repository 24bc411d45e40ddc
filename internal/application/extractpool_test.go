package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkwatch/talkwatch/internal/application"
	"github.com/talkwatch/talkwatch/internal/extract"
)

const poolFixtureHTML = `
<h2>Opening</h2>
<p>First point. <a href="/wiki/User:Alice">Alice</a> 10:00, 1 March 2026 (UTC)</p>
`

func TestExtractPool_Extract(t *testing.T) {
	pool := application.NewExtractPool(extract.NewParser(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	snap, err := pool.Extract(ctx, "Talk:Dune", 100, poolFixtureHTML)
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, "Talk:Dune", snap.PageTitle)
	assert.Equal(t, int64(100), snap.RevisionID)
	require.Len(t, snap.Comments, 1)
	assert.Equal(t, "Alice", snap.Comments[0].Author)
}

func TestExtractPool_CanceledContext(t *testing.T) {
	pool := application.NewExtractPool(extract.NewParser(), 1)

	// Workers never started; a canceled context must still unblock Extract.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.Extract(ctx, "Talk:Dune", 100, poolFixtureHTML)
	assert.ErrorIs(t, err, context.Canceled)
}
