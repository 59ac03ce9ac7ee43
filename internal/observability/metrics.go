package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// GDD simulation engine and its adapters.
type Metrics struct {
	SimulationsStarted  prometheus.Counter
	SimulationsInFlight prometheus.Gauge
	SimulationOutcomes  *prometheus.CounterVec // labels: outcome={completed,partial}
	DaysProcessed       prometheus.Counter
	StagesReached       prometheus.Counter

	// Block fetch metrics.
	BlocksFetched      prometheus.Counter
	FetchRetries       prometheus.Counter
	FetchErrors        *prometheus.CounterVec // labels: kind={transient,status,malformed}
	BlockFetchDuration prometheus.Histogram
	BlockDays          prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,not_found}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SimulationsStarted,
		m.SimulationsInFlight,
		m.SimulationOutcomes,
		m.DaysProcessed,
		m.StagesReached,
		m.BlocksFetched,
		m.FetchRetries,
		m.FetchErrors,
		m.BlockFetchDuration,
		m.BlockDays,
		m.GeocodeRequests,
		m.GeocodeCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SimulationsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gdd",
			Name:      "simulations_started_total",
			Help:      "Total simulation runs started.",
		}),
		SimulationsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gdd",
			Name:      "simulations_in_flight",
			Help:      "Number of simulation runs currently executing.",
		}),
		SimulationOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gdd",
			Name:      "simulation_outcomes_total",
			Help:      "Finished simulation runs by outcome.",
		}, []string{"outcome"}),
		DaysProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gdd",
			Name:      "days_processed_total",
			Help:      "Total daily observations accumulated into GDD records.",
		}),
		StagesReached: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gdd",
			Name:      "stages_reached_total",
			Help:      "Total stage thresholds crossed across all runs.",
		}),
		BlocksFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gdd",
			Name:      "blocks_fetched_total",
			Help:      "Total date-range blocks successfully fetched from NASA POWER.",
		}),
		FetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gdd",
			Name:      "fetch_retries_total",
			Help:      "Total transient fetch failures that were retried.",
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gdd",
			Name:      "fetch_errors_total",
			Help:      "Block fetches that failed terminally, by failure kind.",
		}, []string{"kind"}),
		BlockFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gdd",
			Name:      "block_fetch_duration_seconds",
			Help:      "Duration of a successful block fetch including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		BlockDays: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gdd",
			Name:      "block_days",
			Help:      "Number of daily observations returned per block.",
			Buckets:   []float64{0, 1, 5, 10, 15, 20, 25, 30, 45, 60},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gdd",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gdd",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
	}
}
