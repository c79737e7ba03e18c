// Package observability records Prometheus metrics for suitability runs.
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
)

// RunCollector bundles the metrics emitted while the pipeline runs. A nil
// *RunCollector is valid and records nothing.
type RunCollector struct {
	gatherer prometheus.Gatherer

	StageFeatures *prometheus.GaugeVec
	StageDuration *prometheus.HistogramVec
	Runs          *prometheus.CounterVec
	SuitableArea  prometheus.Gauge
}

// NewRunCollector registers run metrics against reg, defaulting to the global
// registry when reg is nil.
func NewRunCollector(reg prometheus.Registerer) (*RunCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	features, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "suitability_stage_features",
		Help: "Number of features produced by the last execution of a pipeline stage.",
	}, []string{"stage"}), "suitability_stage_features")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "suitability_stage_duration_seconds",
		Help:    "Pipeline stage latency in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"stage"}), "suitability_stage_duration_seconds")
	if err != nil {
		return nil, err
	}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "suitability_runs_total",
		Help: "Total number of pipeline runs, labeled by final status.",
	}, []string{"status"}), "suitability_runs_total")
	if err != nil {
		return nil, err
	}

	area, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "suitability_area_km2",
		Help: "Total suitable area found by the last completed run.",
	}), "suitability_area_km2")
	if err != nil {
		return nil, err
	}

	return &RunCollector{
		gatherer:      gatherer,
		StageFeatures: features,
		StageDuration: durations,
		Runs:          runs,
		SuitableArea:  area,
	}, nil
}

// ObserveStage records the output size and latency of one stage.
func (c *RunCollector) ObserveStage(stage string, features int, d time.Duration) {
	if c == nil {
		return
	}
	if c.StageFeatures != nil {
		c.StageFeatures.WithLabelValues(stage).Set(float64(features))
	}
	if c.StageDuration != nil {
		c.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// ObserveRun counts a finished run and, on success, its suitable area.
func (c *RunCollector) ObserveRun(status string, areaKm2 float64) {
	if c == nil {
		return
	}
	if c.Runs != nil {
		c.Runs.WithLabelValues(status).Inc()
	}
	if c.SuitableArea != nil && status == "complete" {
		c.SuitableArea.Set(areaKm2)
	}
}

// WriteTextfile dumps the gathered metrics in the node_exporter textfile
// format. It is a no-op when path is empty.
func (c *RunCollector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return eris.Wrapf(err, "observability: write textfile %s", path)
	}
	return nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return g, nil
}
