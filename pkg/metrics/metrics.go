// Package metrics exposes scan outcomes as Prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lighthouse-dev/lighthouse/pkg/types"
)

// Metrics records the outcome of image scans.
type Metrics struct {
	scanned prometheus.Gauge
	stale   prometheus.Gauge
	failed  prometheus.Gauge
	total   prometheus.Counter
}

// NewWithRegistry creates a metrics handler registered against the given
// Prometheus registerer.
func NewWithRegistry(registry prometheus.Registerer) (*Metrics, error) {
	metrics := &Metrics{
		scanned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lighthouse_images_scanned",
			Help: "Number of images scanned during the last check",
		}),
		stale: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lighthouse_images_stale",
			Help: "Number of stale images found during the last check",
		}),
		failed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lighthouse_images_failed",
			Help: "Number of images whose digest lookup failed during the last check",
		}),
		total: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lighthouse_scans_total",
			Help: "Number of scans since lighthouse started",
		}),
	}

	collectors := []prometheus.Collector{
		metrics.scanned,
		metrics.stale,
		metrics.failed,
		metrics.total,
	}
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return metrics, nil
}

// Default creates a metrics handler against the default Prometheus
// registry. It panics on duplicate registration.
func Default() *Metrics {
	metrics, err := NewWithRegistry(prometheus.DefaultRegisterer)
	if err != nil {
		panic(err)
	}

	return metrics
}

// RegisterScan records the outcome of a completed scan.
func (m *Metrics) RegisterScan(report types.Report) {
	m.total.Inc()
	m.scanned.Set(float64(report.Scanned))
	m.stale.Set(float64(len(report.Stale)))
	m.failed.Set(float64(report.Failed))
}
