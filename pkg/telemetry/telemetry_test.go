package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitWithExportersDisabledStillBuildsInstruments(t *testing.T) {
	cfg := Config{ServiceName: "dnest4-test", TraceExporter: "none", MetricExporter: "none"}
	tel, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, tel.Tracer)
	require.NotNil(t, tel.StepsTotal)
	require.NotNil(t, tel.SavesTotal)
	require.NotNil(t, tel.LevelsCurrent)
	require.NotNil(t, tel.BestLogLike)

	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestInitWithPrometheusExporter(t *testing.T) {
	cfg := DefaultConfig("dnest4-test")
	tel, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	defer tel.Shutdown(context.Background())

	tel.StepsTotal.Add(context.Background(), 1)
	tel.LevelsCurrent.Record(context.Background(), 3)

	require.NotNil(t, MetricsHandler())
}

func TestInitRejectsUnknownExporter(t *testing.T) {
	cfg := Config{ServiceName: "dnest4-test", TraceExporter: "carrier-pigeon", MetricExporter: "none"}
	_, err := Init(context.Background(), cfg)
	require.ErrorIs(t, err, ErrUnknownExporter)
}
