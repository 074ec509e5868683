package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder handles metrics recording and exposure
type Recorder struct {
	// API metrics
	apiRequestCounter   *prometheus.CounterVec
	apiLatencyHistogram *prometheus.HistogramVec

	// Pricing metrics
	pricingCounter *prometheus.CounterVec
	pricingLatency *prometheus.HistogramVec

	// Simulation metrics
	simulationCounter   *prometheus.CounterVec
	simulationLatency   prometheus.Histogram
	simulatedPaths      prometheus.Counter
	simulationCellGauge prometheus.Gauge

	// Scenario metrics
	scenarioCounter    *prometheus.CounterVec
	scenarioLatency    prometheus.Histogram
	scenarioConditions prometheus.Histogram

	// Errors by kind
	errorCounter *prometheus.CounterVec

	// Worker and system metrics
	kafkaMessagesCounter *prometheus.CounterVec
	breakerStateGauge    *prometheus.GaugeVec
	rateLimitedCounter   *prometheus.CounterVec
	wsClientsGauge       prometheus.Gauge
	memoryUsageGauge     prometheus.Gauge
	goroutineCountGauge  prometheus.Gauge
}

// NewRecorder creates a recorder registered with the default registry
func NewRecorder() *Recorder {
	return NewRecorderWith(prometheus.DefaultRegisterer)
}

// NewRecorderWith creates a recorder registered with reg
func NewRecorderWith(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		// API metrics
		apiRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ope_api_requests_total",
				Help: "The total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		apiLatencyHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ope_api_latency_seconds",
				Help:    "API request latency distribution",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // From 1ms to ~16s
			},
			[]string{"method", "path"},
		),

		// Pricing metrics
		pricingCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ope_pricing_requests_total",
				Help: "The total number of analytic pricing requests",
			},
			[]string{"operation", "outcome"},
		),
		pricingLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ope_pricing_latency_seconds",
				Help:    "Analytic pricing latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // From 10us to ~2.6s
			},
			[]string{"operation"},
		),

		// Simulation metrics
		simulationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ope_simulations_total",
				Help: "The total number of Monte Carlo simulation runs",
			},
			[]string{"outcome"},
		),
		simulationLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ope_simulation_latency_seconds",
				Help:    "Monte Carlo simulation latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // From 10ms to ~40s
			},
		),
		simulatedPaths: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ope_simulated_paths_total",
				Help: "The total number of simulated price paths",
			},
		),
		simulationCellGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ope_last_simulation_cells",
				Help: "Number of cells in the most recent path matrix",
			},
		),

		// Scenario metrics
		scenarioCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ope_scenario_runs_total",
				Help: "The total number of scenario revaluations",
			},
			[]string{"outcome"},
		),
		scenarioLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ope_scenario_latency_seconds",
				Help:    "Scenario revaluation latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
			},
		),
		scenarioConditions: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ope_scenario_conditions",
				Help:    "Number of market conditions per scenario revaluation",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),

		errorCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ope_errors_total",
				Help: "The total number of failed operations by error kind",
			},
			[]string{"operation", "kind"},
		),

		// Worker and system metrics
		kafkaMessagesCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ope_kafka_messages_total",
				Help: "Pricing requests consumed from Kafka",
			},
			[]string{"kind", "outcome"},
		),
		breakerStateGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ope_circuit_breaker_state",
				Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),
		rateLimitedCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ope_api_rate_limited_total",
				Help: "Requests rejected by the API rate limiter",
			},
			[]string{"path"},
		),
		wsClientsGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ope_websocket_clients",
				Help: "Number of connected websocket clients",
			},
		),
		memoryUsageGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ope_memory_usage_bytes",
				Help: "Memory usage of the application in bytes",
			},
		),
		goroutineCountGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ope_goroutine_count",
				Help: "Number of goroutines",
			},
		),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordAPIRequest records metrics for an API request
func (r *Recorder) RecordAPIRequest(method, path string, status int, latency time.Duration) {
	r.apiRequestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.apiLatencyHistogram.WithLabelValues(method, path).Observe(latency.Seconds())
}

// RecordPricing records an analytic pricing call such as "price" or "greeks_profile"
func (r *Recorder) RecordPricing(operation string, latency time.Duration, err error) {
	r.pricingCounter.WithLabelValues(operation, outcome(err)).Inc()
	r.pricingLatency.WithLabelValues(operation).Observe(latency.Seconds())
}

// RecordSimulation records a Monte Carlo run over paths x (steps+1) cells
func (r *Recorder) RecordSimulation(paths, steps int, latency time.Duration, err error) {
	r.simulationCounter.WithLabelValues(outcome(err)).Inc()
	r.simulationLatency.Observe(latency.Seconds())
	if err == nil {
		r.simulatedPaths.Add(float64(paths))
		r.simulationCellGauge.Set(float64(paths * (steps + 1)))
	}
}

// RecordScenario records a scenario revaluation
func (r *Recorder) RecordScenario(conditions int, latency time.Duration, err error) {
	r.scenarioCounter.WithLabelValues(outcome(err)).Inc()
	r.scenarioLatency.Observe(latency.Seconds())
	r.scenarioConditions.Observe(float64(conditions))
}

// RecordError records a failed operation by the kind of its error
func (r *Recorder) RecordError(operation, kind string) {
	r.errorCounter.WithLabelValues(operation, kind).Inc()
}

// RecordKafkaMessage records a consumed pricing request
func (r *Recorder) RecordKafkaMessage(kind string, err error) {
	r.kafkaMessagesCounter.WithLabelValues(kind, outcome(err)).Inc()
}

// RecordBreakerState records a circuit breaker transition
func (r *Recorder) RecordBreakerState(name string, state int) {
	r.breakerStateGauge.WithLabelValues(name).Set(float64(state))
}

// RecordRateLimited records a request rejected by the rate limiter
func (r *Recorder) RecordRateLimited(path string) {
	r.rateLimitedCounter.WithLabelValues(path).Inc()
}

// RecordWebsocketClients records the number of connected websocket clients
func (r *Recorder) RecordWebsocketClients(count int) {
	r.wsClientsGauge.Set(float64(count))
}

// RecordMemoryUsage records the current memory usage
func (r *Recorder) RecordMemoryUsage(bytesUsed uint64) {
	r.memoryUsageGauge.Set(float64(bytesUsed))
}

// RecordGoroutineCount records the current number of goroutines
func (r *Recorder) RecordGoroutineCount(count int) {
	r.goroutineCountGauge.Set(float64(count))
}
