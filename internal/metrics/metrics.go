// Package metrics holds the Prometheus collectors for the tz-tracker
// daemon and the handler that exposes them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tztracker_ticks_total",
		Help: "Total number of resolution ticks",
	})
	TickDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tztracker_tick_duration_ms",
		Help:    "Tick duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	ZoneChangesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tztracker_zone_changes_total",
		Help: "Total confirmed timezone changes",
	})
	PendingStartsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tztracker_pending_starts_total",
		Help: "Total times a candidate zone entered the hysteresis window",
	})
	PendingAbandonsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tztracker_pending_abandons_total",
		Help: "Total pending zone changes abandoned before confirmation",
	})
	LocationUnavailableTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tztracker_location_unavailable_total",
		Help: "Total ticks skipped because no GPS fix was available",
	})
	GeometrySkipsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tztracker_geometry_skips_total",
		Help: "Total per-candidate geometry operations skipped as unusable",
	})
	IntervalSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tztracker_interval_seconds",
		Help:    "Chosen next-check interval in seconds",
		Buckets: []float64{30, 60, 120, 300, 600, 1200, 1800, 3600},
	})
	LoadedPolygons = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tztracker_loaded_polygons",
		Help: "Number of timezone boundaries in the active snapshot",
	})
	DatasetReloadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tztracker_dataset_reloads_total",
		Help: "Total dataset snapshot reloads",
	})
)

func init() {
	prometheus.MustRegister(TicksTotal)
	prometheus.MustRegister(TickDurationMs)
	prometheus.MustRegister(ZoneChangesTotal)
	prometheus.MustRegister(PendingStartsTotal)
	prometheus.MustRegister(PendingAbandonsTotal)
	prometheus.MustRegister(LocationUnavailableTotal)
	prometheus.MustRegister(GeometrySkipsTotal)
	prometheus.MustRegister(IntervalSeconds)
	prometheus.MustRegister(LoadedPolygons)
	prometheus.MustRegister(DatasetReloadsTotal)
}

// Handler returns the HTTP handler serving the registered collectors.
func Handler() http.Handler { return promhttp.Handler() }
