package observability_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fixia/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record one sample so counters are non-zero
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)
	observability.ObserveSweep("created")
	observability.ObserveExternalFailure("notify", "review.received", errors.New("dial tcp: refused"))

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	if !strings.Contains(out, "fixia_http_requests_total") {
		t.Fatalf("expected fixia_http_requests_total in output")
	}
	if !strings.Contains(out, "fixia_obligations_swept_total") {
		t.Fatalf("expected fixia_obligations_swept_total in output")
	}
	if !strings.Contains(out, "fixia_external_request_failures_total") {
		t.Fatalf("expected fixia_external_request_failures_total in output")
	}
}
