package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors for the ops surface and for resolution flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	providerResolutions    *prometheus.CounterVec
	senderCacheRequests    *prometheus.CounterVec
	inboundNumberClaims    *prometheus.CounterVec
	senderMutations        *prometheus.CounterVec
	senderThrottleDecision *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notify_router",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "notify_router",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		providerResolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notify_router",
				Name:      "provider_resolutions_total",
				Help:      "Provider resolutions by notification type, decision source, and outcome.",
			},
			[]string{"notification_type", "source", "outcome"},
		),
		senderCacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notify_router",
				Name:      "sender_cache_requests_total",
				Help:      "Cached sender lookups by lookup kind and hit or miss.",
			},
			[]string{"lookup", "result"},
		),
		inboundNumberClaims: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notify_router",
				Name:      "inbound_number_claims_total",
				Help:      "Inbound number claim attempts by outcome.",
			},
			[]string{"outcome"},
		),
		senderMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notify_router",
				Name:      "sender_mutations_total",
				Help:      "SMS sender mutations by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		senderThrottleDecision: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notify_router",
				Name:      "sender_throttle_decisions_total",
				Help:      "Sender throttle decisions by outcome.",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.providerResolutions,
		m.senderCacheRequests,
		m.inboundNumberClaims,
		m.senderMutations,
		m.senderThrottleDecision,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncProviderResolution(notificationType, source, outcome string) {
	if m == nil {
		return
	}
	m.providerResolutions.WithLabelValues(normalizeLabel(notificationType), normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncSenderCache(lookup string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.senderCacheRequests.WithLabelValues(normalizeLabel(lookup), result).Inc()
}

func (m *Metrics) IncInboundNumberClaim(outcome string) {
	if m == nil {
		return
	}
	m.inboundNumberClaims.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncSenderMutation(operation, outcome string) {
	if m == nil {
		return
	}
	m.senderMutations.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncSenderThrottle(outcome string) {
	if m == nil {
		return
	}
	m.senderThrottleDecision.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ProviderResolutions returns the resolution counter for one label set.
func (m *Metrics) ProviderResolutions(notificationType, source, outcome string) prometheus.Counter {
	return m.providerResolutions.WithLabelValues(normalizeLabel(notificationType), normalizeLabel(source), normalizeLabel(outcome))
}

func (m *Metrics) SenderCacheRequests(lookup, result string) prometheus.Counter {
	return m.senderCacheRequests.WithLabelValues(normalizeLabel(lookup), normalizeLabel(result))
}

func (m *Metrics) InboundNumberClaims(outcome string) prometheus.Counter {
	return m.inboundNumberClaims.WithLabelValues(normalizeLabel(outcome))
}

func (m *Metrics) SenderMutations(operation, outcome string) prometheus.Counter {
	return m.senderMutations.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome))
}

func (m *Metrics) SenderThrottleDecisions(outcome string) prometheus.Counter {
	return m.senderThrottleDecision.WithLabelValues(normalizeLabel(outcome))
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
