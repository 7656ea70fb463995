// Package telemetry provides optional OpenTelemetry metrics and tracing
// for a running Sampler: counters for MCMC steps and saves, gauges for
// the current level count and best log-likelihood, and a Tracer. The
// sampler itself records no spans.
//
// Grounded on an OpenTelemetry init/shutdown pattern used elsewhere for
// service telemetry, trimmed to the two exporters this module actually
// wires: stdout (for local inspection) and Prometheus (for scraping).
// A Sampler with no Init call never touches either dependency.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ErrUnknownExporter is returned for a Config naming an exporter this
// package doesn't implement.
var ErrUnknownExporter = errors.New("telemetry: unknown exporter")

// Config controls which exporters Init wires up.
type Config struct {
	ServiceName string

	// TraceExporter selects "stdout" or "none".
	TraceExporter string

	// MetricExporter selects "prometheus" or "none"; "stdout" is
	// rejected with ErrUnknownExporter.
	MetricExporter string
}

// DefaultConfig returns a Config with tracing off and Prometheus
// metrics on, the combination most deployments of a long-running
// sampler process want: no trace spam, one /metrics endpoint to scrape.
func DefaultConfig(serviceName string) Config {
	return Config{
		ServiceName:    serviceName,
		TraceExporter:  "none",
		MetricExporter: "prometheus",
	}
}

// Telemetry bundles the tracer and instruments a Sampler records to.
type Telemetry struct {
	Tracer trace.Tracer

	StepsTotal    metric.Int64Counter
	SavesTotal    metric.Int64Counter
	LevelsCurrent metric.Int64Gauge
	BestLogLike   metric.Float64Gauge

	shutdownFuncs []func(context.Context) error
}

// Init builds the configured exporters and the sampler's instruments.
// The returned Telemetry's Shutdown method must be called on exit.
func Init(ctx context.Context, cfg Config) (*Telemetry, error) {
	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
	)

	t := &Telemetry{Tracer: noop.NewTracerProvider().Tracer(cfg.ServiceName)}

	if cfg.TraceExporter != "none" {
		tp, err := initTracer(cfg, res)
		if err != nil {
			return nil, fmt.Errorf("telemetry: init tracer: %w", err)
		}
		t.Tracer = tp.Tracer(cfg.ServiceName)
		t.shutdownFuncs = append(t.shutdownFuncs, tp.Shutdown)
	}

	var mp *sdkmetric.MeterProvider
	if cfg.MetricExporter != "none" {
		var err error
		mp, err = initMeter(cfg, res)
		if err != nil {
			return nil, fmt.Errorf("telemetry: init meter: %w", err)
		}
		t.shutdownFuncs = append(t.shutdownFuncs, mp.Shutdown)
	} else {
		mp = sdkmetric.NewMeterProvider()
	}

	meter := mp.Meter(cfg.ServiceName)
	var err error
	if t.StepsTotal, err = meter.Int64Counter("dnest4.mcmc_steps_total"); err != nil {
		return nil, fmt.Errorf("telemetry: counter mcmc_steps_total: %w", err)
	}
	if t.SavesTotal, err = meter.Int64Counter("dnest4.saves_total"); err != nil {
		return nil, fmt.Errorf("telemetry: counter saves_total: %w", err)
	}
	if t.LevelsCurrent, err = meter.Int64Gauge("dnest4.levels_current"); err != nil {
		return nil, fmt.Errorf("telemetry: gauge levels_current: %w", err)
	}
	if t.BestLogLike, err = meter.Float64Gauge("dnest4.best_log_likelihood"); err != nil {
		return nil, fmt.Errorf("telemetry: gauge best_log_likelihood: %w", err)
	}

	return t, nil
}

// Shutdown flushes and tears down every exporter Init wired up.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range t.shutdownFuncs {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func initTracer(cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	switch cfg.TraceExporter {
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		return sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
	}
}

func initMeter(cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := promexporter.New()
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		return sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		), nil
	case "stdout":
		return nil, fmt.Errorf("%w: stdout metric exporter not wired", ErrUnknownExporter)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.MetricExporter)
	}
}

// MetricsHandler returns the HTTP handler serving the default
// Prometheus registry, for callers who wired MetricExporter ==
// "prometheus" and want to expose /metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
