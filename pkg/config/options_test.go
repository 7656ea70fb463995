package config

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDefaultOK(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestValidateAutoLevelsRequiresE(t *testing.T) {
	o := Default()
	o.MaxNumLevels = 0
	o.Compression = 3.0
	require.ErrorIs(t, Validate(o), ErrAutoLevelsRequireE)
}

func TestValidateFixedLevelsAllowsAnyCompression(t *testing.T) {
	o := Default()
	o.MaxNumLevels = 50
	o.Compression = 3.0
	require.NoError(t, Validate(o))
}

func TestValidateRejectsBadFields(t *testing.T) {
	o := Default()
	o.NumThreads = 0
	require.Error(t, Validate(o))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "options.yaml")

	o := Default()
	o.Lambda = 42
	require.NoError(t, Save(path, o))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 42.0, got.Lambda)
	require.InDelta(t, math.E, got.Compression, 1e-9)
}
