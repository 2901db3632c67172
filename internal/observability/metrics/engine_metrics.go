// Package metrics exposes the commission engine's prometheus instruments.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	ServiceName string
	Environment string
}

const (
	RecalcOutcomeCalculated = "calculated"
	RecalcOutcomeNoRule     = "skipped_no_rule"
	RecalcOutcomeRole       = "skipped_role"
	RecalcOutcomeApproved   = "skipped_approved"
	RecalcOutcomeError      = "error"
)

const (
	BatchOutcomeCalculated = "calculated"
	BatchOutcomeSkipped    = "skipped"
	BatchOutcomeFailed     = "failed"
)

// EngineMetrics captures recalculation health signals.
type EngineMetrics struct {
	recalcRuns     *prometheus.CounterVec
	recalcDuration *prometheus.HistogramVec
	lockWait       prometheus.Observer
	conflicts      prometheus.Counter
	batchProcessed *prometheus.CounterVec
	notifyDropped  prometheus.Counter

	service string
	env     string
}

var (
	engineMetricsOnce sync.Once
	engineMetrics     *EngineMetrics
)

// Engine returns the singleton engine metrics registry.
func Engine() *EngineMetrics {
	return EngineWithConfig(Config{})
}

// EngineWithConfig returns the singleton engine metrics registry using config labels.
func EngineWithConfig(cfg Config) *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineMetrics = newEngineMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return engineMetrics
}

// ResetEngineMetricsForTest resets the engine metrics singleton for tests.
func ResetEngineMetricsForTest() {
	engineMetricsOnce = sync.Once{}
	engineMetrics = nil
}

func newEngineMetrics(registerer prometheus.Registerer, cfg Config) *EngineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "haulbase"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &EngineMetrics{
		service: serviceName,
		env:     environment,
		recalcRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "haulbase_commission_recalc_total",
			Help:        "Commission recalculations by type and outcome.",
			ConstLabels: constLabels,
		}, []string{"type", "outcome"}),
		recalcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "haulbase_commission_recalc_duration_seconds",
			Help:        "Wall time of a single recalculation, lock wait included.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"type"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "haulbase_commission_recalc_conflicts_total",
			Help:        "Recalculations that waited on a concurrent run for the same user-month.",
			ConstLabels: constLabels,
		}),
		batchProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "haulbase_commission_batch_users_total",
			Help:        "Users processed by batch sweeps, by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		notifyDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "haulbase_commission_notifications_dropped_total",
			Help:        "Commission-updated facts that could not be delivered.",
			ConstLabels: constLabels,
		}),
	}

	lockWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "haulbase_commission_lock_wait_seconds",
		Help:        "Time spent waiting for the per-user-month lock.",
		ConstLabels: constLabels,
		Buckets:     []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	})
	m.lockWait = lockWait

	registerer.MustRegister(
		m.recalcRuns,
		m.recalcDuration,
		m.conflicts,
		m.batchProcessed,
		m.notifyDropped,
		lockWait,
	)

	return m
}

func (m *EngineMetrics) IncRecalc(commissionType, outcome string) {
	if m == nil {
		return
	}
	m.recalcRuns.WithLabelValues(commissionType, outcome).Inc()
}

func (m *EngineMetrics) ObserveRecalcDuration(commissionType string, d time.Duration) {
	if m == nil {
		return
	}
	m.recalcDuration.WithLabelValues(commissionType).Observe(d.Seconds())
}

func (m *EngineMetrics) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}

func (m *EngineMetrics) IncConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *EngineMetrics) IncBatchUser(outcome string) {
	if m == nil {
		return
	}
	m.batchProcessed.WithLabelValues(outcome).Inc()
}

func (m *EngineMetrics) IncNotificationDropped() {
	if m == nil {
		return
	}
	m.notifyDropped.Inc()
}
