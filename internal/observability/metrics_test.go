package observability

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsResolutionCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.IncProviderResolution("SMS", "template", "resolved")
	metrics.IncSenderCache("default", true)
	metrics.IncSenderCache("default", false)
	metrics.IncSenderCache("default", false)
	metrics.IncInboundNumberClaim("unavailable")
	metrics.IncSenderMutation("add", "")
	metrics.IncSenderThrottle("limited")

	if got := testutil.ToFloat64(metrics.providerResolutions.WithLabelValues("sms", "template", "resolved")); got != 1 {
		t.Fatalf("provider_resolutions_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.senderCacheRequests.WithLabelValues("default", "miss")); got != 2 {
		t.Fatalf("sender_cache_requests_total{miss} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.inboundNumberClaims.WithLabelValues("unavailable")); got != 1 {
		t.Fatalf("inbound_number_claims_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.senderMutations.WithLabelValues("add", "unknown")); got != 1 {
		t.Fatalf("sender_mutations_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.senderThrottleDecision.WithLabelValues("limited")); got != 1 {
		t.Fatalf("sender_throttle_decisions_total = %v, want 1", got)
	}
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var metrics *Metrics
	metrics.IncProviderResolution("email", "strategy", "failed")
	metrics.IncSenderCache("list", true)
	metrics.IncInboundNumberClaim("claimed")
	metrics.IncSenderMutation("update", "success")
	metrics.IncSenderThrottle("allowed")
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/livez", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	_, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}
