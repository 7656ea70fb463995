package sampler

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/modsim/dnest4/pkg/config"
	"github.com/modsim/dnest4/pkg/interrupt"
	"github.com/modsim/dnest4/pkg/journal"
	"github.com/modsim/dnest4/pkg/level"
	"github.com/modsim/dnest4/pkg/likelihood"
	"github.com/modsim/dnest4/pkg/logging"
	"github.com/modsim/dnest4/pkg/rng"
	"github.com/modsim/dnest4/pkg/telemetry"
)

// negInf stands in for "no best particle recorded yet" in telemetry and
// journal entries emitted before the first save.
var negInf = math.Inf(-1)

// Deps bundles the optional supporting infrastructure a Sampler may be
// wired to. Every field is nil-safe: a Sampler built with a zero Deps
// pays no cost beyond the nil checks on its hot path.
type Deps struct {
	Logger    *logging.Logger
	Telemetry *telemetry.Telemetry
	Journal   *journal.Journal
	Poll      interrupt.PollFunc
}

// Sampler is the parallel DNS orchestrator for a model with state type S.
type Sampler[S any] struct {
	model Model[S]
	opts  config.Options
	deps  Deps
	runID string

	particles []Particle[S]
	rngs      []*rng.RNG

	levels         []level.Level
	copiesOfLevels [][]level.Level
	snapshotLevels []level.Level
	above          [][]likelihood.Type
	allAbove       []likelihood.Type

	countSaves              uint64
	countMCMCSteps          uint64
	countMCMCStepsSinceSave uint64
	deletions               uint64

	difficulty float64
	workRatio  float64

	bestParticle *Particle[S]
	haveBest     bool

	barrier    *barrier
	shouldStop atomic.Bool
	done       []bool

	firstSeed uint64
}

// New constructs a Sampler, drawing every particle's initial state from
// model.FromPrior and validating opts. The returned Sampler owns one RNG
// per thread, seeded with seed+t.
func New[S any](model Model[S], opts config.Options, seed uint64, deps Deps) (*Sampler[S], error) {
	if err := config.Validate(opts); err != nil {
		return nil, err
	}

	s := &Sampler[S]{
		model:     model,
		opts:      opts,
		deps:      deps,
		runID:     uuid.NewString()[:12],
		firstSeed: seed,
		barrier:   newBarrier(opts.NumThreads),
		done:      make([]bool, opts.NumThreads),
		levels:    []level.Level{level.NewBase()},
		workRatio: 1.0,
	}

	s.rngs = make([]*rng.RNG, opts.NumThreads)
	for t := range s.rngs {
		s.rngs[t] = rng.New(seed + uint64(t))
	}

	total := opts.NumThreads * opts.NumParticles
	s.particles = make([]Particle[S], total)
	for i := range s.particles {
		t := i / opts.NumParticles
		st := model.FromPrior(s.rngs[t])
		s.particles[i] = Particle[S]{
			State: st,
			LogL:  likelihood.Type{Value: model.LogLikelihood(&st), Tiebreaker: s.rngs[t].Rand()},
			Level: 0,
		}
	}

	s.above = make([][]likelihood.Type, opts.NumThreads)
	s.copiesOfLevels = make([][]level.Level, opts.NumThreads)

	if deps.Logger != nil {
		deps.Logger.Info("sampler initialized",
			"run_id", s.runID,
			"num_threads", opts.NumThreads,
			"num_particles", opts.NumParticles,
		)
	}

	return s, nil
}

// RunID returns the UUID-derived identifier assigned to this run at
// construction time, used as a log/metric label.
func (s *Sampler[S]) RunID() string { return s.runID }

// IncreaseMaxNumSaves bumps Options.MaxNumSaves by extra, returning
// ErrSavesOverflow (without mutating state) if that would overflow
// uint64.
func (s *Sampler[S]) IncreaseMaxNumSaves(extra uint64) error {
	next := s.opts.MaxNumSaves + extra
	if next < s.opts.MaxNumSaves {
		return ErrSavesOverflow
	}
	s.opts.MaxNumSaves = next
	return nil
}

// Run spawns NumThreads worker goroutines synchronized by the two-phase
// barrier and blocks until they all exit: either the termination
// condition is met, the context is canceled, or deps.Poll requests a
// stop. A non-nil error comes from a failed bookkeeping step; save-time
// I/O failures are logged rather than returned (see maybeSave).
// Cancellation and the save-count termination condition both return nil.
func (s *Sampler[S]) Run(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)

	superviseCtx, stopSupervisor := context.WithCancel(gctx)
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		s.superviseCancellation(superviseCtx)
	}()

	for t := 0; t < s.opts.NumThreads; t++ {
		t := t
		group.Go(func() error {
			return s.runThread(gctx, t)
		})
	}

	err := group.Wait()
	stopSupervisor()
	<-supervisorDone
	return err
}

// superviseCancellation polls ctx and deps.Poll at roughly 1 Hz,
// flipping shouldStop the first time either requests a stop. Worker
// threads observe shouldStop at the top of their next cycle.
func (s *Sampler[S]) superviseCancellation(ctx context.Context) {
	poll := s.deps.Poll
	if poll == nil {
		poll = interrupt.Never
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shouldStop.Store(true)
			return
		case <-ticker.C:
			if err := poll(ctx); err != nil {
				s.shouldStop.Store(true)
				return
			}
		}
	}
}

// runThread is one worker's outer loop (`run_thread`): snapshot, barrier,
// termination check, MCMC burst, barrier, and (thread 0 only) merge plus
// bookkeeping.
func (s *Sampler[S]) runThread(ctx context.Context, t int) error {
	for {
		if t == 0 {
			s.snapshotLevelsLocked()
		}
		s.barrier.Wait()

		if s.shouldStop.Load() || s.saveLimitReached() {
			s.done[t] = true
			return nil
		}

		s.mcmcThread(t)
		s.barrier.Wait()

		if t == 0 {
			s.mergeCounters()
			s.drainAbove()
			if err := s.doBookkeeping(ctx); err != nil {
				return fmt.Errorf("sampler: bookkeeping: %w", err)
			}
		}
	}
}

// saveLimitReached reports the save-count termination condition:
// max_num_saves != 0 and count_saves != 0 and count_saves is a multiple
// of max_num_saves.
func (s *Sampler[S]) saveLimitReached() bool {
	return s.opts.MaxNumSaves != 0 && s.countSaves != 0 && s.countSaves%s.opts.MaxNumSaves == 0
}

// snapshotLevelsLocked copies levels into every thread's working copy
// and into the single baseline used for Phase C's diff-merge. Only
// called by thread 0, and only while no other thread can be touching
// copiesOfLevels or snapshotLevels (the prior cycle's second barrier
// wait already established that happens-before).
func (s *Sampler[S]) snapshotLevelsLocked() {
	s.snapshotLevels = append(s.snapshotLevels[:0], s.levels...)
	for t := range s.copiesOfLevels {
		s.copiesOfLevels[t] = append(s.copiesOfLevels[t][:0:0], s.levels...)
	}
}

// slotRange returns the half-open particle-slot range owned by thread t.
func (s *Sampler[S]) slotRange(t int) (lo, hi int) {
	lo = t * s.opts.NumParticles
	hi = lo + s.opts.NumParticles
	return
}
