package checkpoint

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteAtomicThenReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.txt")

	err := WriteAtomic(path, func(w *bufio.Writer) error {
		_, err := w.WriteString("hello\n")
		return err
	})
	require.NoError(t, err)

	var got string
	err = ReadFile(path, func(r *bufio.Reader) error {
		line, err := r.ReadString('\n')
		got = line
		return err
	})
	require.NoError(t, err)
	require.Equal(t, "hello\n", got)
}

func TestWriteAtomicLeavesOriginalOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.txt")
	require.NoError(t, os.WriteFile(path, []byte("original\n"), 0644))

	err := WriteAtomic(path, func(w *bufio.Writer) error {
		return os.ErrInvalid
	})
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "original\n", string(data))
}

func TestAppendAtomicWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample_info.txt")

	for i := 0; i < 3; i++ {
		err := AppendAtomic(path, "# header\n", func(w *bufio.Writer) error {
			_, err := w.WriteString("row\n")
			return err
		})
		require.NoError(t, err)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "# header\nrow\nrow\nrow\n", string(data))
}
