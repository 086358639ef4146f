// Package telemetry exposes prometheus collectors for ranking runs on a private registry.
package telemetry

import (
	"net/http"

	"sigrank/internal/pipeline"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	Runs            *prometheus.CounterVec
	AnomalyAborts   prometheus.Counter
	RejectedMiners  prometheus.Counter
	StaleMiners     prometheus.Gauge
	RankedMiners    prometheus.Gauge
	SnapshotMiners  prometheus.Gauge
	Depth           *prometheus.GaugeVec
	RunDuration     prometheus.Histogram
	LastSuccessUnix prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigrank_runs_total",
				Help: "Ranking runs by outcome",
			},
			[]string{"outcome"},
		),
		AnomalyAborts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sigrank_anomaly_aborts_total",
				Help: "Runs skipped because the miner count looked wrong",
			},
		),
		RejectedMiners: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sigrank_rejected_miners_total",
				Help: "Miner records dropped for malformed input",
			},
		),
		StaleMiners: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sigrank_stale_miners",
				Help: "Miners skipped as inactive in the last run",
			},
		),
		RankedMiners: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sigrank_ranked_miners",
				Help: "Miners that passed filtering in the last run",
			},
		),
		SnapshotMiners: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sigrank_snapshot_miners",
				Help: "Miner records in the last snapshot",
			},
		),
		Depth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sigrank_asset_depth",
				Help: "Aggregated depth per canonical asset",
			},
			[]string{"symbol"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sigrank_run_duration_seconds",
				Help:    "Duration of a ranking run",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		LastSuccessUnix: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sigrank_last_success_timestamp_seconds",
				Help: "Snapshot time of the last successful run",
			},
		),
	}
	m.registry.MustRegister(
		m.Runs,
		m.AnomalyAborts,
		m.RejectedMiners,
		m.StaleMiners,
		m.RankedMiners,
		m.SnapshotMiners,
		m.Depth,
		m.RunDuration,
		m.LastSuccessUnix,
	)
	return m
}

// Observe records a finished run. Gauges describing the last run only move on success.
func (m *Metrics) Observe(res pipeline.Result, err error) {
	if m == nil {
		return
	}
	outcome := pipeline.Outcome(res, err)
	m.Runs.WithLabelValues(outcome).Inc()
	m.RejectedMiners.Add(float64(len(res.Rejected)))
	if outcome == "anomaly" {
		m.AnomalyAborts.Inc()
	}
	if err != nil {
		return
	}
	m.SnapshotMiners.Set(float64(res.Miners))
	m.RankedMiners.Set(float64(len(res.Ranked)))
	m.StaleMiners.Set(float64(res.Stale))
	m.RunDuration.Observe(res.Duration.Seconds())
	m.LastSuccessUnix.Set(float64(res.AsOf.Unix()))
	m.Depth.Reset()
	for sym, d := range res.Depths {
		m.Depth.WithLabelValues(sym).Set(d)
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
