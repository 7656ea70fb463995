// Package checkpoint provides the atomic-write primitive shared by every
// on-disk artifact the sampler owns: write to a uniquely named
// "<file>.next-*" temp file in the same directory, fsync, then rename
// over the destination. Rename is atomic on
// POSIX filesystems, so a crash mid-write never corrupts the previous
// good checkpoint.
//
// This is adapted from a DAG checkpoint writer pattern
// (temp-file-then-rename, fsync before rename), generalized to take an
// arbitrary write function instead of marshaling one fixed JSON envelope
// — the sampler's own checkpoint format is a sequential text protocol,
// not JSON, so the envelope is supplied by the caller.
package checkpoint

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// WriteAtomic calls write with a buffered writer over a temp file in
// dir(path), then fsyncs and renames it onto path. If write returns an
// error, the temp file is removed and path is left untouched.
func WriteAtomic(path string, write func(w *bufio.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".next-*")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: flush %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("checkpoint: close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("checkpoint: rename %s: %w", path, err)
	}
	success = true
	return nil
}

// ReadFile opens path and calls read with a buffered reader over it.
// Unlike WriteAtomic, reads need no special handling — a corrupt or
// missing checkpoint during resume is a fatal configuration error,
// which callers express by propagating this error unwrapped.
func ReadFile(path string, read func(r *bufio.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("checkpoint: open %s: %w", path, err)
	}
	defer f.Close()
	return read(bufio.NewReader(f))
}

// AppendAtomic appends data produced by write to path, creating it (and
// writing header first) if it doesn't exist. Used for sample_file and
// sample_info_file, which grow by one record per save rather than being
// rewritten wholesale.
func AppendAtomic(path string, header string, write func(w *bufio.Writer) error) error {
	_, statErr := os.Stat(path)
	needsHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("checkpoint: open %s for append: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if needsHeader && header != "" {
		if _, err := bw.WriteString(header); err != nil {
			return fmt.Errorf("checkpoint: write header %s: %w", path, err)
		}
	}
	if err := write(bw); err != nil {
		return fmt.Errorf("checkpoint: append %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("checkpoint: flush %s: %w", path, err)
	}
	return f.Sync()
}
