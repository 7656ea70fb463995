// Package config holds Options, the sampler's configuration bundle, along
// with YAML loading, struct-tag validation of its per-field assertions,
// and the cross-field "auto-levels require compression = e" check.
//
// Loading is adapted from a config loader pattern that keeps a
// package-global singleton, minus the singleton itself: a process may
// legitimately run more than one Sampler, so Load returns a fresh
// Options value instead of filling a shared global.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Options is the configuration bundle recognized by the sampler.
type Options struct {
	NumParticles     int     `yaml:"num_particles" validate:"gte=1"`
	NewLevelInterval uint64  `yaml:"new_level_interval" validate:"gte=1"`
	SaveInterval     uint64  `yaml:"save_interval" validate:"gte=1"`
	ThreadSteps      int     `yaml:"thread_steps" validate:"gte=1"`
	MaxNumLevels     int     `yaml:"max_num_levels" validate:"gte=0"`
	Lambda           float64 `yaml:"lambda" validate:"gt=0"`
	Beta             float64 `yaml:"beta" validate:"gte=0"`
	MaxNumSaves      uint64  `yaml:"max_num_saves"`
	Compression      float64 `yaml:"compression" validate:"gt=1"`
	NumThreads       int     `yaml:"num_threads" validate:"gte=1"`

	SampleFile               string `yaml:"sample_file"`
	SampleInfoFile           string `yaml:"sample_info_file"`
	LevelsFile               string `yaml:"levels_file"`
	CheckpointFile           string `yaml:"checkpoint_file"`
	BestParticleFile         string `yaml:"best_particle_file"`
	BestLikelihoodFile       string `yaml:"best_likelihood_file"`
	WriteExactRepresentation bool   `yaml:"write_exact_representation"`
}

// Default returns the conventional DNest4 defaults (file names and
// compression = e).
func Default() Options {
	return Options{
		NumParticles:             1,
		NewLevelInterval:         10000,
		SaveInterval:             10000,
		ThreadSteps:              1000,
		MaxNumLevels:             0,
		Lambda:                   10,
		Beta:                     100,
		MaxNumSaves:              0,
		Compression:              math.E,
		NumThreads:               1,
		SampleFile:               "sample.txt",
		SampleInfoFile:           "sample_info.txt",
		LevelsFile:               "levels.txt",
		CheckpointFile:           "checkpoint.txt",
		BestParticleFile:         "best_particle.txt",
		BestLikelihoodFile:       "best_likelihood.txt",
		WriteExactRepresentation: true,
	}
}

var validate = validator.New()

// ErrAutoLevelsRequireE is returned when auto-detecting levels
// (MaxNumLevels == 0) is requested without Compression == e.
var ErrAutoLevelsRequireE = errors.New("config: max_num_levels=0 (auto) requires compression = e")

// Validate checks Options against the struct-tag assertions plus the
// cross-field configuration rule above. It never panics; callers surface
// the returned error as a fatal diagnostic at construction time.
func Validate(o Options) error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("config: invalid options: %w", err)
	}
	if o.MaxNumLevels == 0 && math.Abs(o.Compression-math.E) > 1e-9 {
		return ErrAutoLevelsRequireE
	}
	return nil
}

// Load reads Options from a YAML file, filling unset fields from Default
// and validating the result.
func Load(path string) (Options, error) {
	opts := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := Validate(opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Save writes Options to path as YAML.
func Save(path string, o Options) error {
	data, err := yaml.Marshal(o)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
