package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the registration domain.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	seatReservations *prometheus.CounterVec
	seqAllocations   *prometheus.CounterVec
	transitions      *prometheus.CounterVec
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	seatReservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seat_reservations_total",
		Help: "Seat reservation attempts by outcome",
	}, []string{"result"})

	seqAllocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_numbers_issued_total",
		Help: "Registration numbers issued per year",
	}, []string{"year"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "status_transitions_total",
		Help: "Committed registration status transitions",
	}, []string{"from", "to"})

	registry.MustRegister(requestDuration, requestTotal, seatReservations, seqAllocations, transitions)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		seatReservations: seatReservations,
		seqAllocations:   seqAllocations,
		transitions:      transitions,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records a completed HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	s.requestDuration.With(labels).Observe(duration.Seconds())
	s.requestTotal.With(labels).Inc()
}

// ObserveSeatReservation counts a reservation attempt outcome.
func (s *MetricsService) ObserveSeatReservation(result string) {
	s.seatReservations.WithLabelValues(result).Inc()
}

// ObserveSequenceAllocation counts an issued registration number.
func (s *MetricsService) ObserveSequenceAllocation(year int) {
	s.seqAllocations.WithLabelValues(strconv.Itoa(year)).Inc()
}

// ObserveStatusTransition counts a committed lifecycle transition.
func (s *MetricsService) ObserveStatusTransition(from, to string) {
	s.transitions.WithLabelValues(from, to).Inc()
}
