package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_upstream_requests_total",
			Help: "Upstream catalog API calls by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	RefreshRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_refresh_runs_total",
			Help: "Refresh runs by outcome",
		},
		[]string{"outcome"},
	)

	RefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_refresh_duration_seconds",
			Help:    "Wall time of a refresh run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 240, 480},
		},
	)

	ProductsCollected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_products_collected",
			Help: "Distinct products in the last snapshot",
		},
	)

	CalendarEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_calendar_entries",
			Help: "Calendar entries in the last upcoming snapshot",
		},
	)

	HydrationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_hydration_failures_total",
			Help: "Folders whose items could not be fetched",
		},
	)

	AvailabilityDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_availability_dropped_total",
			Help: "Products dropped after exhausting availability retries",
		},
	)

	ReviewFetchFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_review_fetch_failures_total",
			Help: "Products whose reviews could not be fetched",
		},
	)

	CacheReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_reads_total",
			Help: "Snapshot reads by mode and result",
		},
		[]string{"mode", "result"},
	)
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			UpstreamRequestsTotal,
			RefreshRunsTotal,
			RefreshDuration,
			ProductsCollected,
			CalendarEntries,
			HydrationFailuresTotal,
			AvailabilityDroppedTotal,
			ReviewFetchFailuresTotal,
			CacheReadsTotal,
		)
	})
}

func Start(port string) {
	Register()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go http.ListenAndServe(":"+port, mux)
}
