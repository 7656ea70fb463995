package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendAndForEachInRunOrdering(t *testing.T) {
	j, err := OpenInMemory()
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	for _, seq := range []uint64{1, 2, 3} {
		require.NoError(t, j.Append(ctx, Entry{
			RunID:      "run-a",
			CountSaves: seq,
			NumLevels:  int(seq),
		}))
	}
	require.NoError(t, j.Append(ctx, Entry{RunID: "run-b", CountSaves: 1, NumLevels: 99}))

	var seen []int
	require.NoError(t, j.ForEachInRun("run-a", func(e Entry) error {
		seen = append(seen, e.NumLevels)
		return nil
	}))
	require.Equal(t, []int{1, 2, 3}, seen)
}

func TestLatestReturnsMostRecentEntry(t *testing.T) {
	j, err := OpenInMemory()
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	require.NoError(t, j.Append(ctx, Entry{RunID: "run-a", CountSaves: 1, BestLogLike: -10}))
	require.NoError(t, j.Append(ctx, Entry{RunID: "run-a", CountSaves: 2, BestLogLike: -5}))

	latest, ok, err := j.Latest("run-a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, -5.0, latest.BestLogLike)
}

func TestLatestOnUnknownRunIsNotFound(t *testing.T) {
	j, err := OpenInMemory()
	require.NoError(t, err)
	defer j.Close()

	_, ok, err := j.Latest("nonexistent")
	require.NoError(t, err)
	require.False(t, ok)
}
