package metrics

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	config "github.com/tigerroll/cropwx/pkg/batch/core/config"
	runner "github.com/tigerroll/cropwx/pkg/batch/core/job/runner"
	metrics "github.com/tigerroll/cropwx/pkg/batch/core/metrics"
	logger "github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// RecorderParams are the dependencies of NewMetricRecorder.
type RecorderParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Metrics   *config.MetricsConfig
	Tracing   *config.TracingConfig
}

// RecorderResult exposes the selected recorder and the gatherer served on /metrics.
type RecorderResult struct {
	fx.Out
	Recorder metrics.MetricRecorder
	Gatherer prometheus.Gatherer
}

// NewMetricRecorder selects the recorder backend from metrics.backend.
// The otlp and none backends still expose an empty gatherer so /metrics stays valid.
func NewMetricRecorder(p RecorderParams) (RecorderResult, error) {
	switch strings.ToLower(p.Metrics.Backend) {
	case "otlp":
		r, err := NewOTelMetricRecorder(context.Background(), p.Metrics, p.Tracing.ServiceName)
		if err != nil {
			return RecorderResult{}, err
		}
		p.Lifecycle.Append(fx.Hook{OnStop: r.Shutdown})
		logger.Infof("Metrics backend: otlp (%s)", p.Metrics.OTLPEndpoint)
		return RecorderResult{Recorder: r, Gatherer: prometheus.NewRegistry()}, nil
	case "none":
		return RecorderResult{Recorder: metrics.NewNoOpMetricRecorder(), Gatherer: prometheus.NewRegistry()}, nil
	default:
		r := NewPrometheusRecorder()
		return RecorderResult{Recorder: r, Gatherer: r.GetRegistry()}, nil
	}
}

// NewTracer builds the tracer and registers the provider shutdown.
func NewTracer(lc fx.Lifecycle, cfg *config.TracingConfig) (metrics.Tracer, error) {
	var (
		provider trace.TracerProvider
		shutdown func(context.Context) error
		err      error
	)
	if provider, shutdown, err = NewTracerProvider(context.Background(), cfg); err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: shutdown})
	return NewOpenTelemetryTracer(provider), nil
}

// Module provides the MetricRecorder, the Tracer, the Prometheus gatherer and the Pushgateway pusher.
var Module = fx.Options(
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
	fx.Provide(fx.Annotate(NewPusher, fx.As(fx.Self()), fx.As(new(runner.MetricsPusher)))),
)
