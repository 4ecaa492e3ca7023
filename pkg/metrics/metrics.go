package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry       *prometheus.Registry
	refreshTotal   *prometheus.CounterVec
	fetchFailures  *prometheus.CounterVec
	currentPrice   prometheus.Gauge
	windowStart    *prometheus.GaugeVec
	windowHours    *prometheus.GaugeVec
	heaterDecision *prometheus.GaugeVec
	activeAlarms   prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartrce_price_refresh_total",
			Help: "Committed price cache refreshes by kind.",
		}, []string{"kind"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartrce_price_fetch_failures_total",
			Help: "Failed price fetches by requested day.",
		}, []string{"day"}),
		currentPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "smartrce_current_price",
			Help: "Price of the current hour.",
		}),
		windowStart: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smartrce_charge_window_start_hour",
			Help: "Start hour of the charge window.",
		}, []string{"day"}),
		windowHours: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smartrce_charge_window_hours",
			Help: "Length of the charge window in hours.",
		}, []string{"day"}),
		heaterDecision: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smartrce_water_heater_decision",
			Help: "Last water heater decision (1 = true).",
		}, []string{"output"}),
		activeAlarms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "smartrce_active_alarms",
			Help: "Number of active alarms.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartrce_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "smartrce_http_request_duration_seconds",
			Help:    "HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.refreshTotal,
		m.fetchFailures,
		m.currentPrice,
		m.windowStart,
		m.windowHours,
		m.heaterDecision,
		m.activeAlarms,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RefreshCompleted(kind string) {
	m.refreshTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) FetchFailed(day string) {
	m.fetchFailures.WithLabelValues(day).Inc()
}

func (m *Metrics) SetCurrentPrice(price float64) {
	m.currentPrice.Set(price)
}

func (m *Metrics) SetChargeWindow(day string, startHour float64, hours int) {
	m.windowStart.WithLabelValues(day).Set(startHour)
	m.windowHours.WithLabelValues(day).Set(float64(hours))
}

func (m *Metrics) ClearChargeWindow(day string) {
	m.windowStart.DeleteLabelValues(day)
	m.windowHours.DeleteLabelValues(day)
}

func (m *Metrics) SetDecision(turnOn, turnOff bool) {
	m.heaterDecision.WithLabelValues("turn_on").Set(boolToFloat(turnOn))
	m.heaterDecision.WithLabelValues("turn_off").Set(boolToFloat(turnOff))
}

func (m *Metrics) SetActiveAlarms(n int) {
	m.activeAlarms.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Instrument records count and duration of requests to route.
func (m *Metrics) Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.httpRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
