// Package metrics exposes server runtime statistics as Prometheus
// collectors.
//
// Each Collector owns its own registry so that tests and multiple
// servers in one process never collide.  A nil *Collector is a valid
// no-op receiver, so callers never need to nil-check.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wxcipher"

// Outcome labels for AuthResult.
const (
	AuthAccepted = "accepted"
	AuthRejected = "rejected"
	AuthError    = "error"
)

// Collector tracks runtime metrics for one server.
type Collector struct {
	registry *prometheus.Registry

	sessionsActive   prometheus.Gauge
	sessionsTotal    prometheus.Counter
	sessionDuration  prometheus.Histogram
	authResults      *prometheus.CounterVec
	ciphers          *prometheus.CounterVec
	cipherFallbacks  *prometheus.CounterVec
	queries          prometheus.Counter
	providerFailures *prometheus.CounterVec
	violations       *prometheus.CounterVec
	transportErrors  *prometheus.CounterVec
	bytesIn          prometheus.Counter
	bytesOut         prometheus.Counter
}

// New creates a collector with a private registry that also carries
// the Go runtime and process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions currently open",
		}),
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Number of sessions accepted",
		}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Session lifetime from accept to close",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		authResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_total",
			Help:      "Authentication attempts by outcome",
		}, []string{"outcome"}),
		ciphers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cipher_negotiations_total",
			Help:      "Negotiated ciphers by variant",
		}, []string{"variant"}),
		cipherFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cipher_fallbacks_total",
			Help:      "Selections that fell back to no cipher, by reason",
		}, []string{"reason"}),
		queries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Query frames answered",
		}),
		providerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_failures_total",
			Help:      "Failed record lookups by kind",
		}, []string{"kind"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_violations_total",
			Help:      "Sessions terminated for protocol violations, by state",
		}, []string{"state"}),
		transportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_errors_total",
			Help:      "Transport failures by operation",
		}, []string{"op"}),
		bytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_bytes_received_total",
			Help:      "Frame payload bytes received",
		}),
		bytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_bytes_sent_total",
			Help:      "Frame payload bytes sent",
		}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.sessionsActive,
		c.sessionsTotal,
		c.sessionDuration,
		c.authResults,
		c.ciphers,
		c.cipherFallbacks,
		c.queries,
		c.providerFailures,
		c.violations,
		c.transportErrors,
		c.bytesIn,
		c.bytesOut,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ── Sessions ─────────────────────────────────────────────────────────

// SessionOpened increments the active and total counters.  The returned
// func records the session's duration and decrements the active gauge.
func (c *Collector) SessionOpened() (closed func()) {
	if c == nil {
		return func() {}
	}
	start := time.Now()
	c.sessionsActive.Inc()
	c.sessionsTotal.Inc()
	return func() {
		c.sessionsActive.Dec()
		c.sessionDuration.Observe(time.Since(start).Seconds())
	}
}

// AuthResult records an authentication outcome.
func (c *Collector) AuthResult(outcome string) {
	if c == nil {
		return
	}
	c.authResults.WithLabelValues(outcome).Inc()
}

// ── Negotiation ──────────────────────────────────────────────────────

// CipherNegotiated records the variant a session settled on.
func (c *Collector) CipherNegotiated(variant string) {
	if c == nil {
		return
	}
	c.ciphers.WithLabelValues(variant).Inc()
}

// CipherFallback records a selection that could not be honoured.
func (c *Collector) CipherFallback(reason string) {
	if c == nil {
		return
	}
	c.cipherFallbacks.WithLabelValues(reason).Inc()
}

// ── Queries ──────────────────────────────────────────────────────────

// QueryAnswered records one query/response exchange.
func (c *Collector) QueryAnswered() {
	if c == nil {
		return
	}
	c.queries.Inc()
}

// ProviderFailure records a failed lookup.
func (c *Collector) ProviderFailure(kind string) {
	if c == nil {
		return
	}
	c.providerFailures.WithLabelValues(kind).Inc()
}

// ── Errors ───────────────────────────────────────────────────────────

// ProtocolViolation records a session terminated in state.
func (c *Collector) ProtocolViolation(state string) {
	if c == nil {
		return
	}
	c.violations.WithLabelValues(state).Inc()
}

// TransportError records a failed accept, read or write.
func (c *Collector) TransportError(op string) {
	if c == nil {
		return
	}
	c.transportErrors.WithLabelValues(op).Inc()
}

// ── I/O ──────────────────────────────────────────────────────────────

// BytesReceived records n frame payload bytes read.
func (c *Collector) BytesReceived(n int) {
	if c == nil {
		return
	}
	c.bytesIn.Add(float64(n))
}

// BytesSent records n frame payload bytes written.
func (c *Collector) BytesSent(n int) {
	if c == nil {
		return
	}
	c.bytesOut.Add(float64(n))
}
