package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRun_CanonicalConfig(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	cfg := map[string]any{"overflow": "DROP_NEW", "max_pending": 1}
	require.NoError(t, s.WriteRun(ctx, "run-1", "burst", cfg))
	require.NoError(t, s.WriteRun(ctx, "run-1", "ignored", nil), "duplicate run is ignored")

	r, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "burst", r.Name)
	assert.Equal(t, `{"max_pending":1,"overflow":"DROP_NEW"}`, r.Config)
	assert.NotEmpty(t, r.CreatedAt)

	runs, err := s.ReadRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestWriteEvent_RequiresRun(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteEvent(context.Background(), EventRow{RunID: "nope", Seq: 1, Kind: "ENQUEUED", Operation: "AddItem"})
	assert.Error(t, err, "foreign key should reject unknown run")
}

func TestReadEvents_OrderAndFilter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "r")

	rows := []EventRow{
		{RunID: "r", Seq: 3, Kind: "COMPLETED", Operation: "AddItem", Processing: true, Generation: 1},
		{RunID: "r", Seq: 1, Kind: "ENQUEUED", Operation: "AddItem", Pending: 1},
		{RunID: "r", Seq: 2, Kind: "DEQUEUED", Operation: "AddItem", Processing: true},
		{RunID: "r", Seq: 4, Kind: "DROPPED", Operation: "SetItems", Reason: "MERGED"},
	}
	for _, ev := range rows {
		require.NoError(t, s.WriteEvent(ctx, ev))
	}
	require.NoError(t, s.WriteEvent(ctx, rows[0]), "duplicate seq is ignored")

	all, err := s.ReadEvents(ctx, "r")
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, ev := range all {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
	assert.True(t, all[1].Processing)
	assert.Equal(t, int64(1), all[2].Generation)

	filtered, err := s.ReadEvents(ctx, "r", "DROPPED", "ENQUEUED")
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, "ENQUEUED", filtered[0].Kind)
	assert.Equal(t, "MERGED", filtered[1].Reason)

	none, err := s.ReadEvents(ctx, "other")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestFailuresAndDropCounts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "r")

	failures := []FailureRow{
		{RunID: "r", Seq: 1, Operation: "SetItems", Kind: "DROPPED", Reason: "MERGED"},
		{RunID: "r", Seq: 2, Operation: "SetItems", Kind: "DROPPED", Reason: "MERGED"},
		{RunID: "r", Seq: 3, Operation: "AddItem", Kind: "DROPPED", Reason: "QUEUE_FULL_DROP_NEW"},
		{RunID: "r", Seq: 4, Operation: "AddItemAt", Kind: "VALIDATION", Error: "bad index"},
	}
	for _, f := range failures {
		require.NoError(t, s.WriteFailure(ctx, f))
	}

	got, err := s.ReadFailures(ctx, "r")
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "bad index", got[3].Error)

	counts, err := s.DropCounts(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"MERGED": 2, "QUEUE_FULL_DROP_NEW": 1}, counts)
}

func TestResults_OrderedByGeneration(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "r")

	require.NoError(t, s.WriteResult(ctx, ResultRow{RunID: "r", Generation: 3, Previous: 1, Size: 3, Script: `{"edits":[]}`}))
	require.NoError(t, s.WriteResult(ctx, ResultRow{RunID: "r", Generation: 1, Previous: 0, Size: 1, Script: `{"edits":[]}`, Reset: true}))

	got, err := s.ReadResults(ctx, "r")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Generation)
	assert.True(t, got[0].Reset)
	assert.Equal(t, int64(1), got[1].Previous)
}
