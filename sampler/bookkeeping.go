package sampler

import (
	"context"
	"math"

	"github.com/modsim/dnest4/pkg/level"
	"github.com/modsim/dnest4/pkg/likelihood"
	"github.com/modsim/dnest4/pkg/rng"
)

// mergeCounters folds each thread's private level-counter deltas (the
// difference between its working copy and the cycle's snapshot baseline)
// back into the authoritative level set. Only thread 0 calls this, after
// the second barrier wait of the cycle has established that no other
// thread can still be touching copiesOfLevels.
func (s *Sampler[S]) mergeCounters() {
	for i := range s.levels {
		base := s.snapshotLevels[i]
		var dAccepts, dTries, dVisits, dExceeds uint64
		for t := 0; t < s.opts.NumThreads; t++ {
			cp := s.copiesOfLevels[t][i]
			dAccepts += cp.Accepts - base.Accepts
			dTries += cp.Tries - base.Tries
			dVisits += cp.Visits - base.Visits
			dExceeds += cp.Exceeds - base.Exceeds
		}
		s.levels[i].Accepts += dAccepts
		s.levels[i].Tries += dTries
		s.levels[i].Visits += dVisits
		s.levels[i].Exceeds += dExceeds
	}
}

// drainAbove moves every thread's buffer of above-top-level likelihoods
// into the shared accumulator and clears the per-thread buffers for the
// next cycle.
func (s *Sampler[S]) drainAbove() {
	for t := range s.above {
		s.allAbove = append(s.allAbove, s.above[t]...)
		s.above[t] = s.above[t][:0]
	}
}

// doBookkeeping is thread 0's end-of-cycle work: advance the step
// counters, create a new level once enough above-threshold samples have
// accumulated, recompute log_X, adapt the work ratio, and save if the
// save interval has elapsed.
func (s *Sampler[S]) doBookkeeping(ctx context.Context) error {
	step := uint64(s.opts.NumThreads * s.opts.ThreadSteps)
	s.countMCMCSteps += step
	s.countMCMCStepsSinceSave += step
	if s.deps.Telemetry != nil {
		s.deps.Telemetry.StepsTotal.Add(ctx, int64(step))
	}

	if !level.EnoughLevels(s.levels, s.opts.MaxNumLevels) && uint64(len(s.allAbove)) >= s.opts.NewLevelInterval {
		threshold, idx := level.ThresholdFromAbove(s.allAbove, s.opts.Compression)
		s.levels = append(s.levels, level.New(threshold))
		s.allAbove = append([]likelihood.Type{}, s.allAbove[idx+1:]...)

		if level.EnoughLevels(s.levels, s.opts.MaxNumLevels) {
			level.RenormaliseVisits(s.levels, uint64(math.Round(s.regularisation())))
		} else {
			s.killLaggingParticles(s.rngs[0])
		}
	}

	level.RecalculateLogX(s.levels, s.opts.Compression, s.regularisation())
	s.updateWorkRatio()

	if s.countMCMCStepsSinceSave >= s.opts.SaveInterval {
		return s.maybeSave(ctx)
	}
	return nil
}

// regularisation is the R term RecalculateLogX and RenormaliseVisits
// share: new_level_interval scaled by sqrt(lambda), large enough that
// per-level noise in the visit/exceed counts doesn't dominate log_X.
func (s *Sampler[S]) regularisation() float64 {
	return float64(s.opts.NewLevelInterval) * math.Sqrt(s.opts.Lambda)
}

// killLaggingParticles replaces particles that have fallen far behind the
// current top level with copies resampled from the particles that
// haven't, weighted the same way level-assignment moves are (logPush).
// Runs only while still constructing the level set, right after a new
// level is created.
func (s *Sampler[S]) killLaggingParticles(r *rng.RNG) {
	good := make([]bool, len(s.particles))
	anyGood := false
	for i := range s.particles {
		logPush := s.logPush(s.levels, s.particles[i].Level)
		killProb := math.Pow(1-sigmoid(logPush+4), 3)
		good[i] = r.Rand() >= killProb
		anyGood = anyGood || good[i]
	}
	if !anyGood {
		return
	}

	maxLP := math.Inf(-1)
	for i := range s.particles {
		if !good[i] {
			continue
		}
		if lp := s.logPush(s.levels, s.particles[i].Level); lp > maxLP {
			maxLP = lp
		}
	}

	for i := range s.particles {
		if good[i] {
			continue
		}
		src := s.sampleReplacementSource(good, maxLP, r)
		s.particles[i] = s.particles[src]
		s.deletions++
	}
}

// sampleReplacementSource rejection-samples a surviving particle index,
// weighted by exp(logPush(level) - maxLP). Caps attempts at 10000 to
// bound worst-case latency; on exhaustion it falls back to the first
// surviving particle found.
func (s *Sampler[S]) sampleReplacementSource(good []bool, maxLP float64, r *rng.RNG) int {
	const maxAttempts = 10000
	for attempt := 0; attempt < maxAttempts; attempt++ {
		j := r.RandInt(len(good))
		if !good[j] {
			continue
		}
		lp := s.logPush(s.levels, s.particles[j].Level)
		if r.Rand() < math.Exp(lp-maxLP) {
			return j
		}
	}
	for j, g := range good {
		if g {
			return j
		}
	}
	return 0
}

// updateWorkRatio recomputes difficulty from the current log_X profile
// and maps it to work_ratio via a piecewise-linear curve: easy runs
// (difficulty <= 0.02) hold work_ratio at 1, hard runs (difficulty >=
// 0.1) saturate at 20/sqrt(lambda), and the region between interpolates.
func (s *Sampler[S]) updateWorkRatio() {
	s.difficulty = s.levelDifficulty()

	maxRatio := 20 / math.Sqrt(s.opts.Lambda)
	s.workRatio = pieceWiseWorkRatio(s.difficulty, maxRatio)
}

// levelDifficulty measures how far the empirical inter-level compression
// has drifted from the target: for every gap_i = log_X[i-1] - log_X[i],
// the relative deviation |gap_i - log(compression)| / log(compression),
// averaged with weight exp((i-n)/3) so the most recently created levels
// (near the top) dominate the estimate.
func (s *Sampler[S]) levelDifficulty() float64 {
	n := len(s.levels)
	if n < 2 {
		return 0
	}
	logCompression := math.Log(s.opts.Compression)

	var weightedSum, weightSum float64
	for i := 1; i < n; i++ {
		gap := s.levels[i-1].LogX - s.levels[i].LogX
		deviation := math.Abs(gap-logCompression) / logCompression
		weight := math.Exp(float64(i-n) / 3.0)
		weightedSum += weight * deviation
		weightSum += weight
	}
	return weightedSum / weightSum
}

func pieceWiseWorkRatio(difficulty, max float64) float64 {
	const loX, loY = 0.02, 1.0
	const hiX = 0.1
	switch {
	case difficulty <= loX:
		return loY
	case difficulty >= hiX:
		return max
	default:
		t := (difficulty - loX) / (hiX - loX)
		return loY + t*(max-loY)
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
