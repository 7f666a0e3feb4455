package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/shaiso/bgjob/internal/domain"
)

// PushJobName — имя job в Pushgateway.
const PushJobName = "bgjob"

// JobMetrics — метрики выполнения job.
//
// Реализует worker.Recorder. Использует собственный Registry, чтобы
// в Pushgateway уходили только метрики bgjob.
type JobMetrics struct {
	registry *prometheus.Registry

	attempts   *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	dispatches *prometheus.CounterVec
}

// NewJobMetrics создаёт и регистрирует метрики.
func NewJobMetrics() *JobMetrics {
	m := &JobMetrics{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bgjob_job_attempts_total",
			Help: "Total job attempts by outcome",
		}, []string{"target", "operation", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bgjob_jobs_failed_total",
			Help: "Total jobs that failed terminally",
		}, []string{"target", "operation"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bgjob_job_attempt_duration_seconds",
			Help:    "Duration of a single job attempt",
			Buckets: prometheus.DefBuckets,
		}, []string{"target", "operation"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bgjob_scheduler_dispatches_total",
			Help: "Total scheduled dispatches by result",
		}, []string{"schedule", "result"}),
	}

	m.registry.MustRegister(m.attempts, m.failures, m.duration, m.dispatches)
	return m
}

// WithRuntimeCollectors добавляет метрики Go runtime и процесса.
// Нужны демону, но не run-job.
func (m *JobMetrics) WithRuntimeCollectors() *JobMetrics {
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordAttempt учитывает попытку.
func (m *JobMetrics) RecordAttempt(_ context.Context, rec *domain.AttemptRecord) {
	m.attempts.WithLabelValues(rec.Target, rec.Operation, string(rec.Outcome)).Inc()
	m.duration.WithLabelValues(rec.Target, rec.Operation).Observe(rec.Duration.Seconds())
}

// RecordFailure учитывает финальную неудачу.
func (m *JobMetrics) RecordFailure(_ context.Context, rec *domain.FailureRecord) {
	m.failures.WithLabelValues(rec.Target, rec.Operation).Inc()
}

// ScheduleDispatched учитывает запуск по расписанию.
func (m *JobMetrics) ScheduleDispatched(schedule string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.dispatches.WithLabelValues(schedule, result).Inc()
}

// Registry возвращает Registry метрик.
func (m *JobMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler возвращает http.Handler для /metrics.
func (m *JobMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Push отправляет метрики в Pushgateway.
//
// Каждый процесс пишет в свою группу instance (обычно job_id).
func (m *JobMetrics) Push(ctx context.Context, url, instance string) error {
	pusher := push.New(url, PushJobName).
		Gatherer(m.registry).
		Grouping("instance", instance)

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
