// Command dnest4-straightline runs Diffusive Nested Sampling against the
// straight-line-with-Gaussian-errors example model.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/modsim/dnest4/examples/straightline"
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

	if err := cli.Run(ctx, straightline.New(), "dnest4-straightline", cfg); err != nil {
		log.Fatal(err)
	}
}
