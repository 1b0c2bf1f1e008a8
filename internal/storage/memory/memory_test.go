package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tasklog/internal/model"
	"github.com/slok/tasklog/internal/storage/memory"
)

func event(taskID string, seq int64, line string) model.LogEvent {
	return model.LogEvent{TaskID: taskID, Sequence: seq, Kind: model.EventKindLogLine, Line: line}
}

func TestRepositoryStoreAndList(t *testing.T) {
	tests := map[string]struct {
		store        []model.LogEvent
		listTaskID   string
		fromSequence int64
		limit        int
		expSequences []int64
		expErr       bool
	}{
		"stored events should be listed oldest first": {
			store:        []model.LogEvent{event("t1", 1, "a"), event("t1", 2, "b"), event("t1", 3, "c")},
			listTaskID:   "t1",
			expSequences: []int64{1, 2, 3},
		},
		"listing from a sequence should skip events at or below it": {
			store:        []model.LogEvent{event("t1", 1, "a"), event("t1", 2, "b"), event("t1", 3, "c")},
			listTaskID:   "t1",
			fromSequence: 2,
			expSequences: []int64{3},
		},
		"limit should cap the returned events": {
			store:        []model.LogEvent{event("t1", 1, "a"), event("t1", 2, "b"), event("t1", 3, "c")},
			listTaskID:   "t1",
			limit:        2,
			expSequences: []int64{1, 2},
		},
		"replayed sequences should be stored once": {
			store:        []model.LogEvent{event("t1", 1, "a"), event("t1", 2, "b"), event("t1", 2, "b again"), event("t1", 1, "a again"), event("t1", 3, "c")},
			listTaskID:   "t1",
			expSequences: []int64{1, 2, 3},
		},
		"unsequenced events should be ignored": {
			store:        []model.LogEvent{{TaskID: "t1", Kind: model.EventKindHeartbeat}, event("t1", 1, "a")},
			listTaskID:   "t1",
			expSequences: []int64{1},
		},
		"events should be isolated per task": {
			store:        []model.LogEvent{event("t1", 1, "a"), event("t2", 7, "other")},
			listTaskID:   "t2",
			expSequences: []int64{7},
		},
		"unknown task should list nothing": {
			store:        []model.LogEvent{event("t1", 1, "a")},
			listTaskID:   "unknown",
			expSequences: nil,
		},
		"event without task id should fail": {
			store:  []model.LogEvent{{Sequence: 1, Kind: model.EventKindLogLine}},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			repo, err := memory.NewRepository(memory.RepositoryConfig{})
			require.NoError(err)

			err = repo.StoreEvents(context.Background(), test.store)

			if test.expErr {
				require.Error(err)
				return
			}
			require.NoError(err)

			got, err := repo.ListEvents(context.Background(), test.listTaskID, test.fromSequence, test.limit)
			require.NoError(err)

			gotSequences := make([]int64, 0, len(got))
			for _, ev := range got {
				gotSequences = append(gotSequences, ev.Sequence)
			}
			if test.expSequences == nil {
				assert.Empty(t, gotSequences)
			} else {
				assert.Equal(t, test.expSequences, gotSequences)
			}
		})
	}
}

func TestRepositoryEvictsOldestPastBound(t *testing.T) {
	require := require.New(t)

	repo, err := memory.NewRepository(memory.RepositoryConfig{MaxEventsPerTask: 3})
	require.NoError(err)

	for i := int64(1); i <= 5; i++ {
		err := repo.StoreEvents(context.Background(), []model.LogEvent{event("t1", i, "line")})
		require.NoError(err)
	}

	got, err := repo.ListEvents(context.Background(), "t1", 0, 0)
	require.NoError(err)
	require.Len(got, 3)
	assert.Equal(t, int64(3), got[0].Sequence)
	assert.Equal(t, int64(5), got[2].Sequence)

	// The highest sequence survives eviction.
	seq, err := repo.LastSequence(context.Background(), "t1")
	require.NoError(err)
	assert.Equal(t, int64(5), seq)
}

func TestRepositoryLastSequence(t *testing.T) {
	require := require.New(t)

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	seq, err := repo.LastSequence(context.Background(), "t1")
	require.NoError(err)
	assert.Equal(t, int64(0), seq)

	err = repo.StoreEvents(context.Background(), []model.LogEvent{event("t1", 1, "a"), event("t1", 2, "b")})
	require.NoError(err)

	seq, err = repo.LastSequence(context.Background(), "t1")
	require.NoError(err)
	assert.Equal(t, int64(2), seq)
}

func TestRepositoryDeleteEvents(t *testing.T) {
	require := require.New(t)

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	err = repo.StoreEvents(context.Background(), []model.LogEvent{event("t1", 1, "a"), event("t2", 1, "other")})
	require.NoError(err)

	require.NoError(repo.DeleteEvents(context.Background(), "t1"))

	got, err := repo.ListEvents(context.Background(), "t1", 0, 0)
	require.NoError(err)
	assert.Empty(t, got)

	// Other tasks are untouched.
	got, err = repo.ListEvents(context.Background(), "t2", 0, 0)
	require.NoError(err)
	assert.Len(t, got, 1)
}
