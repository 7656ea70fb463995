package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerWorks(t *testing.T) {
	l := Default()
	require.NotNil(t, l)
	l.Info("hello", "x", 1)
	require.NoError(t, l.Close())
}

func TestFileSinkWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	l := New(Config{Level: LevelInfo, LogDir: dir, Service: "testsvc"})
	l.Info("cycle complete", "count_mcmc_steps", 42)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(filepath.Join(dir, "testsvc.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "cycle complete")
}

func TestWithPreservesFileSink(t *testing.T) {
	dir := t.TempDir()
	l := New(Config{Level: LevelInfo, LogDir: dir, Service: "testsvc"})
	child := l.With("thread", 1)
	child.Info("from child")
	require.NoError(t, child.Close())

	data, err := os.ReadFile(filepath.Join(dir, "testsvc.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "from child")
}
