package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "animaaz_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// CurationReads counts bucket reads by which source served them
	// ("curated" for an explicit bucket, "flags" for the fallback).
	CurationReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animaaz_curation_reads_total",
			Help: "Curation bucket reads by bucket type and source",
		},
		[]string{"bucket", "source"},
	)

	LabelUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animaaz_label_updates_total",
			Help: "Flag membership replacements applied by bulk label calls",
		},
		[]string{"flag"},
	)

	ListCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animaaz_list_cache_lookups_total",
			Help: "Ranked list cache results (hit, miss, error, and stale for dropped refills)",
		},
		[]string{"result"},
	)

	RealtimeClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "animaaz_realtime_clients",
			Help: "Connected realtime websocket clients",
		},
	)

	RealtimeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animaaz_realtime_events_total",
			Help: "Realtime events published by type",
		},
		[]string{"type"},
	)
)

func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
