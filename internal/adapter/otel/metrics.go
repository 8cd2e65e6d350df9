package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/Strob0t/a2agate"

// Metrics holds the gateway's metric instruments.
type Metrics struct {
	Routes        metric.Int64Counter
	RouteDuration metric.Float64Histogram
	Discovery     metric.Int64Counter
}

// NewMetrics creates all metric instruments from mp, or from the global
// provider when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Routes, err = meter.Int64Counter("a2agate.routes",
		metric.WithDescription("Routed task calls by terminal state"))
	if err != nil {
		return nil, err
	}

	m.RouteDuration, err = meter.Float64Histogram("a2agate.route.duration_seconds",
		metric.WithDescription("Route duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.Discovery, err = meter.Int64Counter("a2agate.discovery.fetches",
		metric.WithDescription("AgentCard discovery fetches by outcome"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRoute counts one routed call and its duration.
func (m *Metrics) RecordRoute(ctx context.Context, env, state string, stub bool, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("environment", env),
		attribute.String("state", state),
		attribute.Bool("stub", stub),
	)
	m.Routes.Add(ctx, 1, attrs)
	m.RouteDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordDiscovery counts one card fetch; outcome is "fetched", "cached" or "failed".
func (m *Metrics) RecordDiscovery(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.Discovery.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
