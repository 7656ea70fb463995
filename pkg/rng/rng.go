// Package rng provides the per-thread pseudo-random generator used by the
// sampler: uniform, normal, and heavy-tailed ("randh") draws, plus exact
// serialization of generator state for checkpointing.
//
// The generator is built on math/rand/v2's PCG source rather than a
// hand-rolled or third-party PRNG: PCG already gives fast, statistically
// solid output and round-trips its exact state through MarshalBinary and
// UnmarshalBinary, which is exactly what the checkpoint protocol (see
// package checkpoint) needs.
package rng

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"math"
	"math/rand/v2"
)

// RNG is one thread's random source. The zero value is not usable; create
// one with New or Restore.
type RNG struct {
	src  *rand.PCG
	r    *rand.Rand
	seed uint64
}

// New creates an RNG seeded deterministically from seed. Per the threading
// model, thread t should be seeded with firstSeed+t on a fresh start.
func New(seed uint64) *RNG {
	src := rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)
	return &RNG{src: src, r: rand.New(src), seed: seed}
}

// Rand returns a uniform draw in [0, 1).
func (g *RNG) Rand() float64 {
	return g.r.Float64()
}

// Randn returns a standard-normal draw.
func (g *RNG) Randn() float64 {
	return g.r.NormFloat64()
}

// Randh returns a heavy-tailed, symmetric proposal with occasional large
// jumps: scale = 10^(2u-1) for u uniform in [0,1), direction/magnitude
// from a standard normal. This shape (random power-of-ten scale times a
// normal) is held fixed for the lifetime of a run.
func (g *RNG) Randh() float64 {
	scale := math.Pow(10.0, 2.0*g.Rand()-1.0)
	return scale * g.Randn()
}

// RandInt returns a uniform draw in [0, n). Panics if n <= 0.
func (g *RNG) RandInt(n int) int {
	if n <= 0 {
		panic("rng: RandInt requires n > 0")
	}
	return int(g.r.Uint64N(uint64(n)))
}

// SetSeed reseeds the generator, discarding prior state.
func (g *RNG) SetSeed(seed uint64) {
	g.seed = seed
	g.src = rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)
	g.r = rand.New(g.src)
}

// Seed returns the seed the generator was last (re)seeded with. It is not
// sufficient on its own to reconstruct mid-stream state; use Write/Read
// for checkpointing.
func (g *RNG) Seed() uint64 {
	return g.seed
}

// Write serializes the generator's exact state as one line of text.
func (g *RNG) Write(w *bufio.Writer) error {
	state, err := g.src.MarshalBinary()
	if err != nil {
		return fmt.Errorf("rng: marshal state: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(state)
	_, err = fmt.Fprintf(w, "%d %s\n", g.seed, encoded)
	return err
}

// Read restores generator state previously produced by Write.
func (g *RNG) Read(r *bufio.Reader) error {
	line, err := r.ReadString('\n')
	if err != nil {
		return fmt.Errorf("rng: read line: %w", err)
	}
	var seed uint64
	var encoded string
	if _, err := fmt.Sscanf(line, "%d %s", &seed, &encoded); err != nil {
		return fmt.Errorf("rng: parse line: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("rng: decode state: %w", err)
	}
	src := new(rand.PCG)
	if err := src.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("rng: unmarshal state: %w", err)
	}
	g.seed = seed
	g.src = src
	g.r = rand.New(src)
	return nil
}
