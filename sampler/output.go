package sampler

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/modsim/dnest4/pkg/checkpoint"
	"github.com/modsim/dnest4/pkg/journal"
	"github.com/modsim/dnest4/pkg/level"
	"github.com/modsim/dnest4/pkg/likelihood"
)

// formatFloat renders v for the observable sample outputs, honoring
// Options.WriteExactRepresentation. Checkpoint files always use
// hex-float regardless of this setting, since they must round-trip
// exactly; this only governs the numeric columns of sample_info_file
// (sample_file rows are written by Model.Print).
func (s *Sampler[S]) formatFloat(v float64) string {
	if s.opts.WriteExactRepresentation {
		return strconv.FormatFloat(v, 'x', -1, 64)
	}
	return strconv.FormatFloat(v, 'e', 12, 64)
}

// writeLevelsFile rewrites the levels file in full, one row per level.
func (s *Sampler[S]) writeLevelsFile() error {
	return checkpoint.WriteAtomic(s.opts.LevelsFile, func(w *bufio.Writer) error {
		if err := level.WriteHeader(w); err != nil {
			return err
		}
		for _, l := range s.levels {
			if err := l.Write(w); err != nil {
				return err
			}
		}
		return nil
	})
}

// maybeSave performs the save-interval actions: the levels file
// rewrite, one newly appended sample_file/sample_info_file row for a
// randomly chosen particle, an atomic checkpoint write, and a
// best-particle update if warranted. Per the checkpoint I/O error kind,
// every write here is logged and skipped on failure rather than
// stopping the run.
func (s *Sampler[S]) maybeSave(ctx context.Context) error {
	s.countSaves++
	s.countMCMCStepsSinceSave = 0

	if err := s.writeLevelsFile(); err != nil {
		s.logWarn("levels file write failed", err)
	}

	chosen := s.rngs[0].RandInt(len(s.particles))
	if err := s.writeSample(&s.particles[chosen]); err != nil {
		s.logWarn("sample file write failed", err)
	}
	if err := s.writeSampleInfo(&s.particles[chosen]); err != nil {
		s.logWarn("sample info file write failed", err)
	}

	if err := s.writeCheckpoint(); err != nil {
		s.logWarn("checkpoint write failed", err)
	}

	if err := s.maybeUpdateBest(); err != nil {
		s.logWarn("best particle file write failed", err)
	}

	s.recordSave(ctx)
	return nil
}

func (s *Sampler[S]) writeSample(p *Particle[S]) error {
	header := fmt.Sprintf("# %s\n", s.model.Description())
	return checkpoint.AppendAtomic(s.opts.SampleFile, header, func(w *bufio.Writer) error {
		if err := s.model.Print(w, &p.State); err != nil {
			return err
		}
		return w.WriteByte('\n')
	})
}

func (s *Sampler[S]) writeSampleInfo(p *Particle[S]) error {
	const header = "# level assignment, log likelihood, tiebreaker, ID.\n"
	return checkpoint.AppendAtomic(s.opts.SampleInfoFile, header, func(w *bufio.Writer) error {
		_, err := fmt.Fprintf(w, "%d %s %s %d\n",
			p.Level, s.formatFloat(p.LogL.Value), s.formatFloat(p.LogL.Tiebreaker), s.countSaves)
		return err
	})
}

// maybeUpdateBest compares the ensemble's current best particle against
// the best ever seen and, on improvement, records it and appends to the
// best-particle/best-likelihood files.
func (s *Sampler[S]) maybeUpdateBest() error {
	bestIdx := 0
	for i := 1; i < len(s.particles); i++ {
		if likelihood.Less(s.particles[bestIdx].LogL, s.particles[i].LogL) {
			bestIdx = i
		}
	}
	candidate := &s.particles[bestIdx]
	if s.haveBest && !likelihood.Less(s.bestParticle.LogL, candidate.LogL) {
		return nil
	}

	saved := *candidate
	s.bestParticle = &saved
	s.haveBest = true

	header := fmt.Sprintf("# %s\n", s.model.Description())
	if err := checkpoint.AppendAtomic(s.opts.BestParticleFile, header, func(w *bufio.Writer) error {
		if err := s.model.Print(w, &saved.State); err != nil {
			return err
		}
		return w.WriteByte('\n')
	}); err != nil {
		return err
	}

	return checkpoint.AppendAtomic(s.opts.BestLikelihoodFile, "", func(w *bufio.Writer) error {
		return saved.LogL.Write(w)
	})
}

func (s *Sampler[S]) bestLogLikelihoodOrNegInf() float64 {
	if !s.haveBest {
		return negInf
	}
	return s.bestParticle.LogL.Value
}

func (s *Sampler[S]) recordSave(ctx context.Context) {
	if s.deps.Journal != nil {
		entry := journal.Entry{
			RunID:       s.runID,
			Time:        time.Now(),
			CountSaves:  s.countSaves,
			CountMCMC:   s.countMCMCSteps,
			NumLevels:   len(s.levels),
			BestLogLike: s.bestLogLikelihoodOrNegInf(),
		}
		if err := s.deps.Journal.Append(ctx, entry); err != nil {
			s.logWarn("journal append failed", err)
		}
	}
	if s.deps.Telemetry != nil {
		s.deps.Telemetry.SavesTotal.Add(ctx, 1)
		s.deps.Telemetry.LevelsCurrent.Record(ctx, int64(len(s.levels)))
		s.deps.Telemetry.BestLogLike.Record(ctx, s.bestLogLikelihoodOrNegInf())
	}
}

func (s *Sampler[S]) logWarn(msg string, err error) {
	if s.deps.Logger != nil {
		s.deps.Logger.Warn(msg, "run_id", s.runID, "error", err)
	}
}
