// Package observe provides application-wide observability primitives for
// SourSound: OpenTelemetry metrics, tracing helpers, trace-aware logging and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exported to
// Prometheus via [InitProvider]. A package-level [DefaultMetrics] instance is
// available for production wiring; tests should build their own with
// [NewMetrics] and a private [metric.MeterProvider].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all SourSound metrics.
const meterName = "github.com/MrWong99/soursound"

// Status attribute values shared by the counters below.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
type Metrics struct {
	// GeneratorStarts counts generator launches. Attribute: status.
	GeneratorStarts metric.Int64Counter

	// GeneratorKills counts generators terminated by the supervisor.
	GeneratorKills metric.Int64Counter

	// GeneratorSpawnDuration tracks how long a launch takes, including the
	// termination of the previous generator for the same session.
	GeneratorSpawnDuration metric.Float64Histogram

	// ActiveGenerators tracks live generator processes.
	ActiveGenerators metric.Int64UpDownCounter

	// Commands counts handled commands and control callbacks. Attributes:
	//   attribute.String("command", ...), attribute.String("status", ...)
	Commands metric.Int64Counter

	// RemoteReconciles counts control-panel reconciliations. Attribute: outcome.
	RemoteReconciles metric.Int64Counter

	// VoiceConnections tracks joined voice channels.
	VoiceConnections metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// spawnBuckets are histogram boundaries (in seconds) for process launches.
var spawnBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.GeneratorStarts, err = m.Int64Counter("soursound.generator.starts",
		metric.WithDescription("Generator launches by status."),
	); err != nil {
		return nil, err
	}
	if met.GeneratorKills, err = m.Int64Counter("soursound.generator.kills",
		metric.WithDescription("Generators terminated by the supervisor."),
	); err != nil {
		return nil, err
	}
	if met.GeneratorSpawnDuration, err = m.Float64Histogram("soursound.generator.spawn.duration",
		metric.WithDescription("Time to replace a session's generator."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(spawnBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveGenerators, err = m.Int64UpDownCounter("soursound.generators.active",
		metric.WithDescription("Number of live generator processes."),
	); err != nil {
		return nil, err
	}
	if met.Commands, err = m.Int64Counter("soursound.commands",
		metric.WithDescription("Handled commands and control callbacks by command and status."),
	); err != nil {
		return nil, err
	}
	if met.RemoteReconciles, err = m.Int64Counter("soursound.remote.reconciles",
		metric.WithDescription("Control panel reconciliations by outcome."),
	); err != nil {
		return nil, err
	}
	if met.VoiceConnections, err = m.Int64UpDownCounter("soursound.voice.connections",
		metric.WithDescription("Number of joined voice channels."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("soursound.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails (should not happen with the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordGeneratorStart records one launch attempt and its duration.
func (m *Metrics) RecordGeneratorStart(ctx context.Context, d time.Duration, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.GeneratorStarts.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.GeneratorSpawnDuration.Record(ctx, d.Seconds())
	if err == nil {
		m.ActiveGenerators.Add(ctx, 1)
	}
}

// RecordGeneratorKill records the termination of a live generator.
func (m *Metrics) RecordGeneratorKill(ctx context.Context) {
	m.GeneratorKills.Add(ctx, 1)
	m.ActiveGenerators.Add(ctx, -1)
}

// RecordCommand increments the command counter.
func (m *Metrics) RecordCommand(ctx context.Context, command, status string) {
	m.Commands.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("command", command),
			attribute.String("status", status),
		),
	)
}

// RecordReconcile increments the reconcile counter for outcome.
func (m *Metrics) RecordReconcile(ctx context.Context, outcome string) {
	m.RemoteReconciles.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}
