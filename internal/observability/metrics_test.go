package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	metrics := NewMetrics()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	metrics.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	body := rr.Body.String()
	if !strings.Contains(body, "fleetops_optimizer_retries_total") {
		t.Fatalf("expected body to contain fleetops_optimizer_retries_total, got: %s", body)
	}
}

func TestRegistererAcceptsRuntimeCollectors(t *testing.T) {
	metrics := NewMetrics()
	metrics.Registerer().MustRegister(collectors.NewGoCollector())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	metrics.Handler().ServeHTTP(rr, req)

	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Fatalf("expected body to contain go_goroutines, got: %s", rr.Body.String())
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsRR := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	metricsBody := metricsRR.Body.String()
	if !strings.Contains(metricsBody, "http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func TestMetricsOptimizerObservations(t *testing.T) {
	metrics := NewMetrics()

	metrics.ObserveOptimizerCall("ok")
	metrics.ObserveOptimizerCall("fatal")
	metrics.ObserveOptimizerRetry()
	metrics.ObserveOptimizerRetry()

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rr.Body.String()
	if !strings.Contains(body, "fleetops_optimizer_calls_total{outcome=\"ok\"} 1") {
		t.Fatalf("expected ok outcome counter, got: %s", body)
	}
	if !strings.Contains(body, "fleetops_optimizer_calls_total{outcome=\"fatal\"} 1") {
		t.Fatalf("expected fatal outcome counter, got: %s", body)
	}
	if !strings.Contains(body, "fleetops_optimizer_retries_total 2") {
		t.Fatalf("expected retries counter, got: %s", body)
	}
}
