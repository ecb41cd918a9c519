package observability

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "constituent_access"

// Metrics holds the Prometheus collectors shared by the gateway, the
// resolver and the HTTP layer. A nil *Metrics records nothing.
type Metrics struct {
	Requests           *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	RequestErrors      *prometheus.CounterVec
	Decisions          *prometheus.CounterVec
	ResolutionFailures *prometheus.CounterVec
	StoreErrors        *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg, reusing
// collectors that are already registered. A nil reg means the default registerer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests partitioned by method, route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency partitioned by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "HTTP error responses partitioned by method, route and error code.",
		}, []string{"method", "route", "code"}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "access",
			Name:      "decisions_total",
			Help:      "Access decisions partitioned by entity, operation, effect and reason.",
		}, []string{"entity", "operation", "effect", "reason"}),
		ResolutionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "resolution_failures_total",
			Help:      "Principal resolution failures partitioned by kind.",
		}, []string{"kind"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Document store failures partitioned by entity, operation and class.",
		}, []string{"entity", "operation", "class"}),
	}

	var err error
	if m.Requests, err = registerCounter(reg, m.Requests); err != nil {
		return nil, err
	}
	if m.RequestDuration, err = registerHistogram(reg, m.RequestDuration); err != nil {
		return nil, err
	}
	if m.RequestErrors, err = registerCounter(reg, m.RequestErrors); err != nil {
		return nil, err
	}
	if m.Decisions, err = registerCounter(reg, m.Decisions); err != nil {
		return nil, err
	}
	if m.ResolutionFailures, err = registerCounter(reg, m.ResolutionFailures); err != nil {
		return nil, err
	}
	if m.StoreErrors, err = registerCounter(reg, m.StoreErrors); err != nil {
		return nil, err
	}
	return m, nil
}

func registerCounter(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return nil, fmt.Errorf("register counter: %w", err)
	}
	return c, nil
}

func registerHistogram(reg prometheus.Registerer, h *prometheus.HistogramVec) (*prometheus.HistogramVec, error) {
	if err := reg.Register(h); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return nil, fmt.Errorf("register histogram: %w", err)
	}
	return h, nil
}

// RecordRequest counts a served request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError counts an error response by code.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.RequestErrors.WithLabelValues(method, route, code).Inc()
}

// RecordDecision counts one access evaluation.
func (m *Metrics) RecordDecision(entity, operation, effect, reason string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(entity, operation, effect, reason).Inc()
}

// RecordResolutionFailure counts a failed principal resolution.
func (m *Metrics) RecordResolutionFailure(kind string) {
	if m == nil {
		return
	}
	m.ResolutionFailures.WithLabelValues(kind).Inc()
}

// RecordStoreError counts a store failure.
func (m *Metrics) RecordStoreError(entity, operation, class string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(entity, operation, class).Inc()
}
