// Package cli wires the ambient stack (config, logging, telemetry, journal,
// cooperative cancellation) around a sampler.Model, shared by every
// cmd/dnest4-* demo binary so each one only has to supply its Model and a
// RunConfig literal. There is deliberately no flag or option-file parsing
// here: each binary's run configuration lives in its own main.go.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/modsim/dnest4/pkg/config"
	"github.com/modsim/dnest4/pkg/interrupt"
	"github.com/modsim/dnest4/pkg/journal"
	"github.com/modsim/dnest4/pkg/logging"
	"github.com/modsim/dnest4/pkg/telemetry"
	"github.com/modsim/dnest4/sampler"
)

// RunConfig bundles the choices a dnest4-* demo binary makes about how to
// run, as opposed to what model to run. Binaries set these directly in
// source rather than parsing them from argv or an option file.
type RunConfig struct {
	Options     config.Options
	Seed        uint64
	Resume      bool
	LogDir      string
	MetricsAddr string
}

// Run builds the Sampler's dependencies from cfg, constructs a Sampler
// around model, optionally resumes it from its checkpoint, and blocks
// running it until ctx is canceled or the save limit is reached.
func Run[S any](ctx context.Context, model sampler.Model[S], serviceName string, cfg RunConfig) error {
	opts := cfg.Options

	logger := logging.New(logging.Config{Level: logging.LevelInfo, LogDir: cfg.LogDir, Service: serviceName})
	defer logger.Close()

	tel, err := telemetry.Init(ctx, telemetry.DefaultConfig(serviceName))
	if err != nil {
		return fmt.Errorf("cli: init telemetry: %w", err)
	}
	defer tel.Shutdown(ctx)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.MetricsHandler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server exited", "error", err)
			}
		}()
		defer srv.Close()
	}

	jr, err := openJournal(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("cli: open journal: %w", err)
	}
	defer jr.Close()

	deps := sampler.Deps{
		Logger:    logger,
		Telemetry: tel,
		Journal:   jr,
		Poll:      interrupt.FromContext(),
	}

	s, err := sampler.New(model, opts, cfg.Seed, deps)
	if err != nil {
		return fmt.Errorf("cli: construct sampler: %w", err)
	}

	if cfg.Resume {
		if err := s.Resume(); err != nil {
			return fmt.Errorf("cli: resume: %w", err)
		}
	}

	logger.Info("run starting", "run_id", s.RunID(), "resume", cfg.Resume, "num_threads", opts.NumThreads)
	if err := s.Run(ctx); err != nil {
		return fmt.Errorf("cli: run: %w", err)
	}
	logger.Info("run finished", "run_id", s.RunID())
	return nil
}

func openJournal(logDir string) (*journal.Journal, error) {
	if logDir == "" {
		return journal.OpenInMemory()
	}
	return journal.Open(filepath.Join(logDir, "journal"))
}
