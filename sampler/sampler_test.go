package sampler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/modsim/dnest4/pkg/config"
	"github.com/modsim/dnest4/pkg/likelihood"
	"github.com/modsim/dnest4/pkg/rng"
)

// testState/testModel is a minimal one-dimensional model used only to
// exercise the Sampler's own machinery, independent of any client model.
type testState struct {
	X float64
}

type testModel struct{}

func (testModel) FromPrior(r *rng.RNG) testState { return testState{X: r.Rand()} }

func (testModel) Perturb(s *testState, r *rng.RNG) float64 {
	s.X += r.Randh()
	return 0.0
}

func (testModel) AcceptPerturbation(s *testState) {}

func (testModel) LogLikelihood(s *testState) float64 { return -s.X * s.X }

func (testModel) Description() string { return "x" }

func (testModel) Print(w io.Writer, s *testState) error {
	_, err := fmt.Fprintf(w, "%.6f", s.X)
	return err
}

func (testModel) PrintInternal(w io.Writer, s *testState) error {
	_, err := fmt.Fprintf(w, "%s", strconv.FormatFloat(s.X, 'x', -1, 64))
	return err
}

func (testModel) ReadInternal(r *bufio.Reader, s *testState) error {
	line, err := r.ReadString('\n')
	if err != nil {
		return err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		return err
	}
	s.X = v
	return nil
}

func newTestOptions(dir string) config.Options {
	return config.Options{
		NumParticles:             2,
		NewLevelInterval:         3,
		SaveInterval:             1000,
		ThreadSteps:              5,
		MaxNumLevels:             5,
		Lambda:                   10,
		Beta:                     100,
		MaxNumSaves:              0,
		Compression:              math.E,
		NumThreads:               2,
		SampleFile:               filepath.Join(dir, "sample.txt"),
		SampleInfoFile:           filepath.Join(dir, "sample_info.txt"),
		LevelsFile:               filepath.Join(dir, "levels.txt"),
		CheckpointFile:           filepath.Join(dir, "checkpoint.txt"),
		BestParticleFile:         filepath.Join(dir, "best_particle.txt"),
		BestLikelihoodFile:       filepath.Join(dir, "best_likelihood.txt"),
		WriteExactRepresentation: true,
	}
}

func TestRunTerminatesAtSaveLimit(t *testing.T) {
	opts := newTestOptions(t.TempDir())
	opts.SaveInterval = 5
	opts.MaxNumSaves = 2

	s, err := New[testState](testModel{}, opts, 1, Deps{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	require.Greater(t, s.countSaves, uint64(0))
	require.Zero(t, s.countSaves%opts.MaxNumSaves)
}

func TestIncreaseMaxNumSavesOverflow(t *testing.T) {
	opts := newTestOptions(t.TempDir())
	s, err := New[testState](testModel{}, opts, 1, Deps{})
	require.NoError(t, err)

	s.opts.MaxNumSaves = math.MaxUint64
	require.ErrorIs(t, s.IncreaseMaxNumSaves(1), ErrSavesOverflow)
	require.Equal(t, uint64(math.MaxUint64), s.opts.MaxNumSaves)
}

func TestCheckpointRoundTrip(t *testing.T) {
	opts := newTestOptions(t.TempDir())

	s1, err := New[testState](testModel{}, opts, 42, Deps{})
	require.NoError(t, err)
	s1.countSaves = 3
	s1.countMCMCSteps = 150
	s1.countMCMCStepsSinceSave = 10
	s1.difficulty = 0.05
	s1.workRatio = 2.5
	require.NoError(t, s1.writeCheckpoint())

	s2, err := New[testState](testModel{}, opts, 999, Deps{})
	require.NoError(t, err)
	require.NoError(t, s2.readCheckpoint(opts.CheckpointFile))

	require.Equal(t, s1.countSaves, s2.countSaves)
	require.Equal(t, s1.countMCMCSteps, s2.countMCMCSteps)
	require.Equal(t, s1.countMCMCStepsSinceSave, s2.countMCMCStepsSinceSave)
	require.InDelta(t, s1.difficulty, s2.difficulty, 1e-12)
	require.InDelta(t, s1.workRatio, s2.workRatio, 1e-12)
	require.Len(t, s2.particles, len(s1.particles))
	require.Len(t, s2.levels, len(s1.levels))
}

func TestResumeWrapsErrCheckpointReadOnMissingFile(t *testing.T) {
	opts := newTestOptions(t.TempDir())
	s, err := New[testState](testModel{}, opts, 1, Deps{})
	require.NoError(t, err)

	require.ErrorIs(t, s.Resume(), ErrCheckpointRead)
}

func TestMergeCountersSumsThreadDeltas(t *testing.T) {
	opts := newTestOptions(t.TempDir())
	s, err := New[testState](testModel{}, opts, 1, Deps{})
	require.NoError(t, err)

	s.snapshotLevelsLocked()
	s.copiesOfLevels[0][0].Tries += 5
	s.copiesOfLevels[1][0].Tries += 3
	s.copiesOfLevels[0][0].Accepts += 2

	s.mergeCounters()

	require.Equal(t, uint64(8), s.levels[0].Tries)
	require.Equal(t, uint64(2), s.levels[0].Accepts)
}

func TestDrainAboveMovesAndClearsPerThreadBuffers(t *testing.T) {
	opts := newTestOptions(t.TempDir())
	s, err := New[testState](testModel{}, opts, 1, Deps{})
	require.NoError(t, err)

	s.above[0] = []likelihood.Type{likelihood.New(1.0, 0.1)}
	s.above[1] = []likelihood.Type{likelihood.New(2.0, 0.2)}

	s.drainAbove()

	require.Len(t, s.allAbove, 2)
	require.Empty(t, s.above[0])
	require.Empty(t, s.above[1])
}

func TestDoBookkeepingCreatesLevelOnceThresholdReached(t *testing.T) {
	opts := newTestOptions(t.TempDir())
	s, err := New[testState](testModel{}, opts, 1, Deps{})
	require.NoError(t, err)

	s.allAbove = []likelihood.Type{
		likelihood.New(0.1, 0.1),
		likelihood.New(0.2, 0.2),
		likelihood.New(0.3, 0.3),
	}

	require.NoError(t, s.doBookkeeping(context.Background()))
	require.Len(t, s.levels, 2)
}

func TestSlotRangeIsDisjointAcrossThreads(t *testing.T) {
	opts := newTestOptions(t.TempDir())
	s, err := New[testState](testModel{}, opts, 1, Deps{})
	require.NoError(t, err)

	lo0, hi0 := s.slotRange(0)
	lo1, hi1 := s.slotRange(1)
	require.Equal(t, hi0, lo1)
	require.Equal(t, hi0-lo0, opts.NumParticles)
	require.Equal(t, hi1-lo1, opts.NumParticles)
}
