package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the camera stream server.
type Metrics struct {
	registry             *prometheus.Registry
	requestsTotal        prometheus.Counter
	errorsTotal          prometheus.Counter
	camerasAddedTotal    prometheus.Counter
	workersLaunchedTotal *prometheus.CounterVec
	workerExitsTotal     *prometheus.CounterVec
	activeWorkers        prometheus.Gauge
	activeCameras        prometheus.Gauge
}

// New creates and registers Prometheus metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "camstream_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "camstream_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	camerasAddedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "camstream_cameras_added_total",
		Help: "Total number of cameras added through the API",
	})
	workersLaunchedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "camstream_workers_launched_total",
		Help: "Total number of transcoding worker launch attempts",
	}, []string{"result"})
	workerExitsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "camstream_worker_exits_total",
		Help: "Total number of transcoding worker exits",
	}, []string{"reason"})
	activeWorkers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "camstream_active_workers",
		Help: "Number of transcoding workers currently running",
	})
	activeCameras := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "camstream_active_cameras",
		Help: "Number of registered cameras marked active",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		camerasAddedTotal,
		workersLaunchedTotal,
		workerExitsTotal,
		activeWorkers,
		activeCameras,
	)

	return &Metrics{
		registry:             registry,
		requestsTotal:        requestsTotal,
		errorsTotal:          errorsTotal,
		camerasAddedTotal:    camerasAddedTotal,
		workersLaunchedTotal: workersLaunchedTotal,
		workerExitsTotal:     workerExitsTotal,
		activeWorkers:        activeWorkers,
		activeCameras:        activeCameras,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncCamerasAdded increments the cameras added counter.
func (m *Metrics) IncCamerasAdded() {
	m.camerasAddedTotal.Inc()
}

// IncWorkersLaunched counts a launch attempt; result is "ok", "error",
// "duplicate" or "pool_exhausted".
func (m *Metrics) IncWorkersLaunched(result string) {
	m.workersLaunchedTotal.WithLabelValues(result).Inc()
}

// IncWorkerExits counts a worker process exit by reason.
func (m *Metrics) IncWorkerExits(reason string) {
	m.workerExitsTotal.WithLabelValues(reason).Inc()
}

// SetActiveWorkers sets the active workers gauge.
func (m *Metrics) SetActiveWorkers(n int) {
	m.activeWorkers.Set(float64(n))
}

// SetActiveCameras sets the active cameras gauge.
func (m *Metrics) SetActiveCameras(n int) {
	m.activeCameras.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
