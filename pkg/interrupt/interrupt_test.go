package interrupt

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNeverNeverStops(t *testing.T) {
	require.NoError(t, Never(context.Background()))
}

func TestFromContextStopsWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	poll := FromContext()
	require.NoError(t, poll(ctx))
	cancel()
	require.Error(t, poll(ctx))
}

func TestFileWatcherDetectsStopFile(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWatcher(dir, "STOP")
	require.NoError(t, err)
	defer fw.Close()

	require.NoError(t, fw.Poll(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "STOP"), []byte("1"), 0644))

	require.Eventually(t, func() bool {
		return fw.Poll(context.Background()) != nil
	}, 2*time.Second, 10*time.Millisecond)
}
