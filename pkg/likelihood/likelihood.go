// Package likelihood implements LikelihoodType: a totally ordered pair of
// (log-likelihood value, tiebreaker) used throughout the sampler so that
// models with ties in log-likelihood still produce a strict order.
package likelihood

import (
	"bufio"
	"fmt"
	"math"
	"strconv"

	"github.com/modsim/dnest4/pkg/rng"
)

// Type is a (value, tiebreaker) pair. Tiebreaker must stay in [0, 1).
type Type struct {
	Value      float64
	Tiebreaker float64
}

// New constructs a Type, panicking if the tiebreaker is out of [0, 1) —
// this is a programmer error, not a recoverable condition.
func New(value, tiebreaker float64) Type {
	if tiebreaker < 0 || tiebreaker >= 1 {
		panic("likelihood: tiebreaker must be in [0, 1)")
	}
	return Type{Value: value, Tiebreaker: tiebreaker}
}

// Less reports whether a < b under the total order: compare Value first,
// and break ties on Tiebreaker.
func Less(a, b Type) bool {
	if a.Value != b.Value {
		return a.Value < b.Value
	}
	return a.Tiebreaker < b.Tiebreaker
}

// Perturb replaces the tiebreaker with a random walk step wrapped
// periodically back into [0, 1) and returns the log Metropolis-Hastings
// correction for the move. The periodic wrap is symmetric, so the
// correction is exactly 0.
func (t *Type) Perturb(r *rng.RNG) float64 {
	t.Tiebreaker = wrap(t.Tiebreaker+r.Randh(), 0, 1)
	return 0.0
}

// wrap folds x into [lo, hi) by modulo (periodic wrap), matching the
// non-negative-mod convention used throughout the sampler.
func wrap(x, lo, hi float64) float64 {
	width := hi - lo
	if width <= 0 {
		panic("likelihood: wrap requires hi > lo")
	}
	y := math.Mod(x-lo, width)
	if y < 0 {
		y += width
	}
	return lo + y
}

// Write serializes the pair as one line of text (hex-float for exact
// round-trip, per the checkpoint protocol's numeric formatting rule).
func (t Type) Write(w *bufio.Writer) error {
	_, err := fmt.Fprintf(w, "%s %s\n", formatHex(t.Value), formatHex(t.Tiebreaker))
	return err
}

// Read restores a pair previously produced by Write.
func (t *Type) Read(r *bufio.Reader) error {
	line, err := r.ReadString('\n')
	if err != nil {
		return fmt.Errorf("likelihood: read line: %w", err)
	}
	var vs, ts string
	if _, err := fmt.Sscanf(line, "%s %s", &vs, &ts); err != nil {
		return fmt.Errorf("likelihood: parse line: %w", err)
	}
	v, err := parseHex(vs)
	if err != nil {
		return fmt.Errorf("likelihood: parse value: %w", err)
	}
	tb, err := parseHex(ts)
	if err != nil {
		return fmt.Errorf("likelihood: parse tiebreaker: %w", err)
	}
	t.Value = v
	t.Tiebreaker = tb
	return nil
}

func formatHex(v float64) string {
	return strconv.FormatFloat(v, 'x', -1, 64)
}

func parseHex(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
