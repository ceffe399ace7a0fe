package metrics

import (
	"fmt"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "upmusync"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	registry       *prom.Registry
	deviceOutcomes *prom.CounterVec
	storeOps       *prom.CounterVec
	runDuration    prom.Histogram
	pendingRetries prom.Gauge
	lastRun        prom.Gauge
}

// NewPrometheusRecorder constructs and registers the metrics on reg. A nil
// reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.once.Do(func() {
		pr.deviceOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "device_outcomes_total",
			Help:      "Devices processed by outcome",
		}, []string{"outcome"})
		pr.storeOps = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Metadata store operations by operation and result",
		}, []string{"op", "result"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a sync run",
			Buckets:   prom.DefBuckets,
		})
		pr.pendingRetries = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_retries",
			Help:      "Devices whose removal failed and will be retried next run",
		})
		pr.lastRun = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last sync run finished",
		})
		reg.MustRegister(pr.deviceOutcomes, pr.storeOps, pr.runDuration, pr.pendingRetries, pr.lastRun)
	})
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.registry
}

func (p *PrometheusRecorder) IncDeviceOutcome(outcome OutcomeLabel) {
	if p == nil || p.deviceOutcomes == nil {
		return
	}
	p.deviceOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncStoreOperation(op string, success bool) {
	if p == nil || p.storeOps == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.storeOps.WithLabelValues(op, res).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetPendingRetries(n int) {
	if p == nil || p.pendingRetries == nil {
		return
	}
	p.pendingRetries.Set(float64(n))
}

func (p *PrometheusRecorder) SetLastRunTimestamp(t time.Time) {
	if p == nil || p.lastRun == nil {
		return
	}
	p.lastRun.Set(float64(t.Unix()))
}

// WriteTextfile writes the registry to path in the text exposition format.
// The file is replaced atomically.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
