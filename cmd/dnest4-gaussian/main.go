// Command dnest4-gaussian runs Diffusive Nested Sampling against the
// two-dimensional Gaussian example model.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/modsim/dnest4/examples/gaussian"
	"github.com/modsim/dnest4/internal/cli"
	"github.com/modsim/dnest4/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := cli.RunConfig{
		Options: config.Default(),
		Seed:    0,
	}

	if err := cli.Run(ctx, gaussian.New(), "dnest4-gaussian", cfg); err != nil {
		log.Fatal(err)
	}
}
