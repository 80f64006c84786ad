package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castaway-social/indexer/models"
)

func testIngester(t *testing.T) *Ingester {
	t.Helper()
	hub := newFakeHub()
	db := testDB(t)
	resolver := NewRootResolver(db, hub, 25, testTimeout)
	proc := NewProcessor(db, resolver, &memPublisher{})
	bf := NewBackfiller(db, hub, resolver)
	return NewIngester(db, hub, nil, proc, bf, "hub:messages", "indexer")
}

func TestCursorRoundTrip(t *testing.T) {
	ing := testIngester(t)
	ctx := context.Background()

	// First load seeds the singleton row at zero.
	require.NoError(t, ing.LoadCursor(ctx))
	assert.Equal(t, uint64(0), ing.lastEventID)

	ing.idLk.Lock()
	ing.lastEventID = 42
	ing.idLk.Unlock()
	require.NoError(t, ing.FlushCursor())

	var rec models.HubCursor
	require.NoError(t, ing.db.Find(&rec, "id = 1").Error)
	assert.Equal(t, uint64(42), rec.Val)

	// A stale in-memory value never rolls the stored cursor back.
	ing.idLk.Lock()
	ing.lastEventID = 7
	ing.idLk.Unlock()
	require.NoError(t, ing.FlushCursor())
	require.NoError(t, ing.db.Find(&rec, "id = 1").Error)
	assert.Equal(t, uint64(42), rec.Val)

	require.NoError(t, ing.LoadCursor(ctx))
	assert.Equal(t, uint64(42), ing.lastEventID)
}

func TestMaybeEnqueueBackfill(t *testing.T) {
	ing := testIngester(t)

	ing.maybeEnqueueBackfill(0)
	ing.maybeEnqueueBackfill(7)
	ing.maybeEnqueueBackfill(7)
	ing.maybeEnqueueBackfill(9)

	var jobs []models.BackfillJob
	require.NoError(t, ing.db.Order("fid").Find(&jobs).Error)
	require.Len(t, jobs, 2)
	assert.Equal(t, uint64(7), jobs[0].Fid)
	assert.Equal(t, uint64(9), jobs[1].Fid)
	assert.Equal(t, models.BackfillStateEnqueued, jobs[0].State)
}
