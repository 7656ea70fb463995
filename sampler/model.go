// Package sampler implements the parallel Diffusive Nested Sampling (DNS)
// orchestrator: particle-ensemble MCMC against a user-supplied Model,
// adaptive level construction, lagging-particle replacement, and the
// checkpoint-resume protocol.
//
// The user Model is expressed as a capability set: Sampler is generic
// over the model's state type S, so particle states are stored and
// copied as plain S values. Model methods themselves are called through
// the Model[S] interface value the Sampler holds, i.e. with dynamic
// dispatch.
package sampler

import (
	"bufio"
	"io"

	"github.com/modsim/dnest4/pkg/likelihood"
	"github.com/modsim/dnest4/pkg/rng"
)

// Model is the capability set a client must provide to drive a Sampler.
// Implementations use the staged-proposal style throughout: Perturb
// mutates s in place and returns the log proposal (Hastings) correction;
// AcceptPerturbation commits the change (a no-op for a model that holds
// no separate staged copy, since s is already the live value). On
// reject, the Sampler itself restores s to its pre-Perturb value by
// plain value assignment — S is expected to be a self-contained value
// type with no external aliasing, exactly like both example models.
type Model[S any] interface {
	// FromPrior draws a fresh state from the prior.
	FromPrior(r *rng.RNG) S

	// Perturb proposes a modification to s in place using r, returning
	// the log proposal (Hastings) correction for the move.
	Perturb(s *S, r *rng.RNG) float64

	// AcceptPerturbation commits a staged proposal. For models that
	// mutate s directly in Perturb, this is a no-op.
	AcceptPerturbation(s *S)

	// LogLikelihood returns s's current log-likelihood.
	LogLikelihood(s *S) float64

	// Description names the fields Print writes, for the sample_file
	// header line.
	Description() string

	// Print writes one sample_file row for s.
	Print(w io.Writer, s *S) error

	// PrintInternal writes s's state for the checkpoint file. The
	// checkpoint holds only this output (Print's row is not written
	// there), so it must carry everything ReadInternal needs to restore s.
	PrintInternal(w io.Writer, s *S) error

	// ReadInternal restores what PrintInternal wrote.
	ReadInternal(r *bufio.Reader, s *S) error
}

// Particle is one slot in the ensemble: an opaque model state, its
// current likelihood (with tiebreaker), and the index of the level it
// is currently assigned to.
type Particle[S any] struct {
	State S
	LogL  likelihood.Type
	Level int
}
