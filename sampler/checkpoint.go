package sampler

import (
	"bufio"
	"fmt"
	"strconv"

	"github.com/modsim/dnest4/pkg/checkpoint"
	"github.com/modsim/dnest4/pkg/config"
	"github.com/modsim/dnest4/pkg/level"
	"github.com/modsim/dnest4/pkg/likelihood"
)

// writeCheckpoint atomically rewrites the checkpoint file with every
// piece of state needed to resume a run bit-identically: Options,
// counters, the save_to_disk/num_threads/compression fields the on-disk
// format carries a second time for historical reasons, then particles,
// log-likelihoods, level assignments, levels, the above-threshold
// buffer, and every thread's RNG state, each section preceded by a
// "|section| count" line.
func (s *Sampler[S]) writeCheckpoint() error {
	return checkpoint.WriteAtomic(s.opts.CheckpointFile, func(w *bufio.Writer) error {
		if err := writeOptions(w, s.opts); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%d %d %d %s %s\n",
			s.countSaves, s.countMCMCSteps, s.countMCMCStepsSinceSave,
			hexFloat(s.difficulty), hexFloat(s.workRatio)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%t %d %s\n", true, s.opts.NumThreads, hexFloat(s.opts.Compression)); err != nil {
			return err
		}

		if _, err := fmt.Fprintf(w, "|particles| %d\n", len(s.particles)); err != nil {
			return err
		}
		for i := range s.particles {
			if err := s.model.PrintInternal(w, &s.particles[i].State); err != nil {
				return err
			}
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
		}

		if _, err := fmt.Fprintf(w, "|log_likelihoods| %d\n", len(s.particles)); err != nil {
			return err
		}
		for i := range s.particles {
			if err := s.particles[i].LogL.Write(w); err != nil {
				return err
			}
		}

		if _, err := fmt.Fprintf(w, "|level_assignments| %d\n", len(s.particles)); err != nil {
			return err
		}
		for i := range s.particles {
			if _, err := fmt.Fprintf(w, "%d\n", s.particles[i].Level); err != nil {
				return err
			}
		}

		if _, err := fmt.Fprintf(w, "|levels| %d\n", len(s.levels)); err != nil {
			return err
		}
		for _, l := range s.levels {
			if err := l.Write(w); err != nil {
				return err
			}
		}

		if _, err := fmt.Fprintf(w, "|all_above| %d\n", len(s.allAbove)); err != nil {
			return err
		}
		for _, a := range s.allAbove {
			if err := a.Write(w); err != nil {
				return err
			}
		}

		if _, err := fmt.Fprintf(w, "|rngs| %d\n", len(s.rngs)); err != nil {
			return err
		}
		for _, rg := range s.rngs {
			if err := rg.Write(w); err != nil {
				return err
			}
		}
		return nil
	})
}

// Resume restores this Sampler's full state — Options, counters, levels,
// particles, and every thread's RNG — from its configured checkpoint
// file, for a client continuing a previous run. A missing or corrupt
// checkpoint is fatal: it wraps ErrCheckpointRead rather than falling
// back to a fresh start.
func (s *Sampler[S]) Resume() error {
	if err := s.readCheckpoint(s.opts.CheckpointFile); err != nil {
		return fmt.Errorf("%w: %v", ErrCheckpointRead, err)
	}
	return nil
}

// readCheckpoint restores a Sampler's full state from path, in the exact
// order writeCheckpoint produced it. The caller must already have a
// Sampler constructed against the same Model and particle count (the
// particle slice is resized to match the checkpoint if needed).
func (s *Sampler[S]) readCheckpoint(path string) error {
	return checkpoint.ReadFile(path, func(r *bufio.Reader) error {
		opts, err := readOptions(r)
		if err != nil {
			return err
		}
		s.opts = opts

		countersLine, err := r.ReadString('\n')
		if err != nil {
			return fmt.Errorf("sampler: read counters: %w", err)
		}
		var saves, steps, sinceSave uint64
		var difficultyStr, workRatioStr string
		if _, err := fmt.Sscanf(countersLine, "%d %d %d %s %s", &saves, &steps, &sinceSave, &difficultyStr, &workRatioStr); err != nil {
			return fmt.Errorf("sampler: parse counters %q: %w", countersLine, err)
		}
		s.countSaves, s.countMCMCSteps, s.countMCMCStepsSinceSave = saves, steps, sinceSave
		if s.difficulty, err = parseHexFloat(difficultyStr); err != nil {
			return err
		}
		if s.workRatio, err = parseHexFloat(workRatioStr); err != nil {
			return err
		}

		trailerLine, err := r.ReadString('\n')
		if err != nil {
			return fmt.Errorf("sampler: read trailer fields: %w", err)
		}
		var saveToDisk bool
		var numThreads int
		var compressionStr string
		if _, err := fmt.Sscanf(trailerLine, "%t %d %s", &saveToDisk, &numThreads, &compressionStr); err != nil {
			return fmt.Errorf("sampler: parse trailer fields %q: %w", trailerLine, err)
		}

		nParticles, err := readSectionCount(r, "particles")
		if err != nil {
			return err
		}
		s.particles = make([]Particle[S], nParticles)
		for i := range s.particles {
			st := s.model.FromPrior(s.rngs[0])
			if err := s.model.ReadInternal(r, &st); err != nil {
				return fmt.Errorf("sampler: read particle %d internal state: %w", i, err)
			}
			s.particles[i].State = st
		}

		nLogL, err := readSectionCount(r, "log_likelihoods")
		if err != nil {
			return err
		}
		for i := 0; i < nLogL && i < len(s.particles); i++ {
			if err := s.particles[i].LogL.Read(r); err != nil {
				return fmt.Errorf("sampler: read log-likelihood %d: %w", i, err)
			}
		}

		nLevelAssign, err := readSectionCount(r, "level_assignments")
		if err != nil {
			return err
		}
		for i := 0; i < nLevelAssign && i < len(s.particles); i++ {
			line, err := r.ReadString('\n')
			if err != nil {
				return fmt.Errorf("sampler: read level assignment %d: %w", i, err)
			}
			if _, err := fmt.Sscanf(line, "%d", &s.particles[i].Level); err != nil {
				return fmt.Errorf("sampler: parse level assignment %d %q: %w", i, line, err)
			}
		}

		nLevels, err := readSectionCount(r, "levels")
		if err != nil {
			return err
		}
		s.levels = make([]level.Level, nLevels)
		for i := range s.levels {
			if err := s.levels[i].Read(r); err != nil {
				return fmt.Errorf("sampler: read level %d: %w", i, err)
			}
		}

		nAbove, err := readSectionCount(r, "all_above")
		if err != nil {
			return err
		}
		s.allAbove = make([]likelihood.Type, nAbove)
		for i := range s.allAbove {
			if err := s.allAbove[i].Read(r); err != nil {
				return fmt.Errorf("sampler: read all_above %d: %w", i, err)
			}
		}

		nRNGs, err := readSectionCount(r, "rngs")
		if err != nil {
			return err
		}
		for i := 0; i < nRNGs && i < len(s.rngs); i++ {
			if err := s.rngs[i].Read(r); err != nil {
				return fmt.Errorf("sampler: read rng %d: %w", i, err)
			}
		}

		return nil
	})
}

// readSectionCount reads a "|name| count" line and returns count.
func readSectionCount(r *bufio.Reader, name string) (int, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("sampler: read |%s| header: %w", name, err)
	}
	var label string
	var count int
	if _, err := fmt.Sscanf(line, "%s %d", &label, &count); err != nil {
		return 0, fmt.Errorf("sampler: parse |%s| header %q: %w", name, line, err)
	}
	return count, nil
}

func writeOptions(w *bufio.Writer, o config.Options) error {
	_, err := fmt.Fprintf(w, "%d %d %d %d %d %s %s %d %s %d\n",
		o.NumParticles, o.NewLevelInterval, o.SaveInterval, o.ThreadSteps, o.MaxNumLevels,
		hexFloat(o.Lambda), hexFloat(o.Beta), o.MaxNumSaves, hexFloat(o.Compression), o.NumThreads)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n%s\n%s\n%s\n%s\n%s\n%t\n",
		o.SampleFile, o.SampleInfoFile, o.LevelsFile, o.CheckpointFile,
		o.BestParticleFile, o.BestLikelihoodFile, o.WriteExactRepresentation)
	return err
}

func readOptions(r *bufio.Reader) (config.Options, error) {
	var o config.Options
	headerLine, err := r.ReadString('\n')
	if err != nil {
		return o, fmt.Errorf("sampler: read options header: %w", err)
	}
	var lambdaStr, betaStr, compressionStr string
	n, err := fmt.Sscanf(headerLine, "%d %d %d %d %d %s %s %d %s %d",
		&o.NumParticles, &o.NewLevelInterval, &o.SaveInterval, &o.ThreadSteps, &o.MaxNumLevels,
		&lambdaStr, &betaStr, &o.MaxNumSaves, &compressionStr, &o.NumThreads)
	if err != nil || n != 10 {
		return o, fmt.Errorf("sampler: parse options header %q: %w", headerLine, err)
	}
	if o.Lambda, err = parseHexFloat(lambdaStr); err != nil {
		return o, err
	}
	if o.Beta, err = parseHexFloat(betaStr); err != nil {
		return o, err
	}
	if o.Compression, err = parseHexFloat(compressionStr); err != nil {
		return o, err
	}

	for _, dst := range []*string{
		&o.SampleFile, &o.SampleInfoFile, &o.LevelsFile, &o.CheckpointFile,
		&o.BestParticleFile, &o.BestLikelihoodFile,
	} {
		line, err := r.ReadString('\n')
		if err != nil {
			return o, fmt.Errorf("sampler: read options file path: %w", err)
		}
		*dst = trimNewline(line)
	}
	var exactStr string
	exactLine, err := r.ReadString('\n')
	if err != nil {
		return o, fmt.Errorf("sampler: read write_exact_representation: %w", err)
	}
	exactStr = trimNewline(exactLine)
	o.WriteExactRepresentation = exactStr == "true"

	return o, nil
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
	}
	if n := len(s); n > 0 && s[n-1] == '\r' {
		s = s[:n-1]
	}
	return s
}

func hexFloat(v float64) string {
	return strconv.FormatFloat(v, 'x', -1, 64)
}

func parseHexFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
