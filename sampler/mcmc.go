package sampler

import (
	"math"

	"github.com/modsim/dnest4/pkg/level"
	"github.com/modsim/dnest4/pkg/likelihood"
	"github.com/modsim/dnest4/pkg/rng"
)

// mcmcThread runs one thread's MCMC burst (thread_steps iterations)
// against its private level copy, picking a random slot from the
// thread's own range on every iteration and running the particle and
// level-assignment updates in one of the two orders with equal
// probability.
func (s *Sampler[S]) mcmcThread(t int) {
	lo, hi := s.slotRange(t)
	levels := s.copiesOfLevels[t]
	r := s.rngs[t]

	for step := 0; step < s.opts.ThreadSteps; step++ {
		i := lo + r.RandInt(hi-lo)

		if r.Rand() < 0.5 {
			s.updateParticle(levels, i, r)
			s.updateLevelAssignment(levels, i, r)
		} else {
			s.updateLevelAssignment(levels, i, r)
			s.updateParticle(levels, i, r)
		}

		p := &s.particles[i]
		if !level.EnoughLevels(levels, s.opts.MaxNumLevels) && likelihood.Less(levels[len(levels)-1].Threshold, p.LogL) {
			s.above[t] = append(s.above[t], p.LogL)
		}
	}
}

// updateParticle proposes a Model perturbation for slot i and either
// commits or discards it, then unconditionally updates the owning
// level's try/visit/exceed counters. levels is the calling thread's
// private copy.
func (s *Sampler[S]) updateParticle(levels []level.Level, i int, r *rng.RNG) {
	p := &s.particles[i]
	saved := p.State

	logH := s.model.Perturb(&p.State, r)
	if logH > 0 {
		logH = 0
	}

	accepted := false
	if r.Rand() < math.Exp(logH) {
		candidate := likelihood.Type{Value: s.model.LogLikelihood(&p.State), Tiebreaker: p.LogL.Tiebreaker}
		candidate.Perturb(r)
		if likelihood.Less(levels[p.Level].Threshold, candidate) {
			s.model.AcceptPerturbation(&p.State)
			p.LogL = candidate
			levels[p.Level].Accepts++
			accepted = true
		}
	}
	if !accepted {
		p.State = saved
	}
	levels[p.Level].Tries++

	current := p.Level
	for current < len(levels)-1 {
		levels[current].Visits++
		if likelihood.Less(levels[current+1].Threshold, p.LogL) {
			levels[current].Exceeds++
			current++
		} else {
			break
		}
	}
}

// updateLevelAssignment proposes a new level index for slot i via a
// heavy-tailed random walk on the level index itself, accepting under a
// Metropolis criterion that balances log_X against the push bias (and,
// once the level set has saturated, an exploration-balancing term in
// beta). levels is the calling thread's private copy.
func (s *Sampler[S]) updateLevelAssignment(levels []level.Level, i int, r *rng.RNG) {
	p := &s.particles[i]

	step := int(math.Round(math.Pow(10, 2*r.Rand()) * r.Randn()))
	j := p.Level + step
	if j == p.Level {
		if r.Rand() < 0.5 {
			j++
		} else {
			j--
		}
	}
	j = nonNegMod(j, len(levels))

	logA := levels[p.Level].LogX - levels[j].LogX + s.logPush(levels, j) - s.logPush(levels, p.Level)
	if level.EnoughLevels(levels, s.opts.MaxNumLevels) {
		logA += s.opts.Beta * math.Log(float64(levels[p.Level].Tries+1)/float64(levels[j].Tries+1))
	}
	if logA > 0 {
		logA = 0
	}

	if r.Rand() < math.Exp(logA) && likelihood.Less(levels[j].Threshold, p.LogL) {
		p.Level = j
	}
}

// logPush is the level-construction bias: zero once the level set has
// saturated to its target size, otherwise a term that grows more
// negative the farther k is below the current top level, scaled by
// work_ratio and lambda.
func (s *Sampler[S]) logPush(levels []level.Level, k int) float64 {
	if level.EnoughLevels(levels, s.opts.MaxNumLevels) {
		return 0
	}
	d := float64(k - (len(levels) - 1))
	return d / (s.workRatio * s.opts.Lambda)
}

func nonNegMod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
