package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	port "github.com/tigerroll/cropwx/pkg/batch/core/application/port"
	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/cropwx/pkg/batch/core/metrics"
	logger "github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

const namespace = "cropwx"

// PrometheusRecorder implements metrics.MetricRecorder on a private registry.
// The registry is served on /metrics by the API and pushed to a Pushgateway
// after batch jobs.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	jobDurationSeconds *prometheus.HistogramVec
	jobStatusCounter   *prometheus.CounterVec

	stepDurationSeconds *prometheus.HistogramVec
	stepStatusCounter   *prometheus.CounterVec
	stepReadCount       *prometheus.CounterVec
	stepWriteCount      *prometheus.CounterVec
	stepFilterCount     *prometheus.CounterVec

	operationDurationSeconds *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a recorder with Go and process collectors registered.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		jobDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of job executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job_name", "status", "exit_status"}),
		jobStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_status_total",
			Help:      "Total number of job executions by status.",
		}, []string{"job_name", "status"}),
		stepDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of step executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job_name", "step_name", "status", "exit_status"}),
		stepStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_status_total",
			Help:      "Total number of step executions by status.",
		}, []string{"job_name", "step_name", "status"}),
		stepReadCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_read_total",
			Help:      "Total records parsed by step.",
		}, []string{"job_name", "step_name"}),
		stepWriteCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_write_total",
			Help:      "Total rows newly inserted by step.",
		}, []string{"job_name", "step_name"}),
		stepFilterCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_filter_total",
			Help:      "Total records discarded as duplicates by step.",
		}, []string{"job_name", "step_name"}),
		operationDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of named operations (queries, HTTP requests, loads).",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "target", "status"}),
	}

	registry.MustRegister(
		r.jobDurationSeconds,
		r.jobStatusCounter,
		r.stepDurationSeconds,
		r.stepStatusCounter,
		r.stepReadCount,
		r.stepWriteCount,
		r.stepFilterCount,
		r.operationDurationSeconds,
	)
	return r
}

// GetRegistry returns the registry holding every collector of this recorder.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

func (r *PrometheusRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	r.jobStatusCounter.WithLabelValues(execution.JobName, execution.Status.String()).Inc()
	logger.Debugf("Metrics: Job '%s' started.", execution.JobName)
}

func (r *PrometheusRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	if execution.EndTime == nil {
		return
	}
	duration := execution.EndTime.Sub(execution.StartTime).Seconds()
	r.jobDurationSeconds.WithLabelValues(
		execution.JobName,
		execution.Status.String(),
		execution.ExitStatus.String(),
	).Observe(duration)
	r.jobStatusCounter.WithLabelValues(execution.JobName, execution.Status.String()).Inc()
	logger.Debugf("Metrics: Job '%s' ended. Duration: %.3fs", execution.JobName, duration)
}

func (r *PrometheusRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {
	r.stepStatusCounter.WithLabelValues(jobNameOf(execution), execution.StepName, execution.Status.String()).Inc()
	logger.Debugf("Metrics: Step '%s' started.", execution.StepName)
}

func (r *PrometheusRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	if execution.EndTime == nil {
		return
	}
	duration := execution.EndTime.Sub(execution.StartTime).Seconds()
	jobName := jobNameOf(execution)
	r.stepDurationSeconds.WithLabelValues(
		jobName,
		execution.StepName,
		execution.Status.String(),
		execution.ExitStatus.String(),
	).Observe(duration)
	r.stepStatusCounter.WithLabelValues(jobName, execution.StepName, execution.Status.String()).Inc()
	logger.Debugf("Metrics: Step '%s' ended. Duration: %.3fs", execution.StepName, duration)
}

func (r *PrometheusRecorder) RecordItemRead(ctx context.Context, stepName string, count int) {
	r.stepReadCount.WithLabelValues(jobNameFromContext(ctx), stepName).Add(float64(count))
}

func (r *PrometheusRecorder) RecordItemFilter(ctx context.Context, stepName string, count int) {
	r.stepFilterCount.WithLabelValues(jobNameFromContext(ctx), stepName).Add(float64(count))
}

func (r *PrometheusRecorder) RecordItemWrite(ctx context.Context, stepName string, count int) {
	r.stepWriteCount.WithLabelValues(jobNameFromContext(ctx), stepName).Add(float64(count))
}

func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationDurationSeconds.WithLabelValues(name, tags["target"], tags["status"]).Observe(duration.Seconds())
}

func jobNameOf(se *model.StepExecution) string {
	if se.JobExecution == nil {
		return ""
	}
	return se.JobExecution.JobName
}

func jobNameFromContext(ctx context.Context) string {
	if se := port.GetStepExecutionFromContext(ctx); se != nil {
		return jobNameOf(se)
	}
	return ""
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
