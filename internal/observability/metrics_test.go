package observability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/thurmanmarka/umbra/internal/logging"
)

func TestObserveScan(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.ObserveScan("umbral", 72, false, true, 5*time.Millisecond, nil)
	c.ObserveScan("umbral", 10, false, false, time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(c.Scans.WithLabelValues("umbral", "ok")); got != 1 {
		t.Errorf("scans ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Scans.WithLabelValues("umbral", "error")); got != 1 {
		t.Errorf("scans error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.ScanSteps); got != 82 {
		t.Errorf("scan steps = %v, want 82", got)
	}
	if got := testutil.ToFloat64(c.Eclipses.WithLabelValues("lunar")); got != 1 {
		t.Errorf("lunar eclipses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Eclipses.WithLabelValues("solar")); got != 0 {
		t.Errorf("solar eclipses = %v, want 0", got)
	}
}

func TestNewCollectorReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	second, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}
	first.ObserveFrame()
	if got := testutil.ToFloat64(second.LiveFrames); got != 1 {
		t.Fatalf("second collector frames = %v, want shared counter value 1", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.ObserveScan("umbral", 1, true, true, time.Second, nil)
	c.ObserveLookup("meeus", "sun", "earth", nil)
	c.ObserveFrame()
	c.SetLiveClients(3)
	h := c.Middleware(nil)(http.NotFoundHandler())
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestMiddlewareAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	teapot := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := c.Middleware(func(*http.Request) string { return "/api/thing" })(teapot)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/thing/42", nil))

	if got := testutil.ToFloat64(c.HTTPRequests.WithLabelValues("/api/thing", "GET", "418")); got != 1 {
		t.Fatalf("http requests = %v, want 1", got)
	}

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "umbra_http_requests_total") {
		t.Fatalf("metrics output missing umbra_http_requests_total")
	}
}

func TestInitTracingDisabledAndEnabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := InitTracing(ctx, TracingConfig{Enabled: false}, logging.Noop())
	if err != nil {
		t.Fatalf("InitTracing disabled: %v", err)
	}
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}

	var buf bytes.Buffer
	shutdown, err = InitTracing(ctx, TracingConfig{Enabled: true, Writer: &buf}, nil)
	if err != nil {
		t.Fatalf("InitTracing enabled: %v", err)
	}
	_, span := Tracer().Start(ctx, "test-span")
	span.End()
	ShutdownWithTimeout(ctx, shutdown, nil)

	if !strings.Contains(buf.String(), "test-span") {
		t.Fatalf("span not exported: %q", buf.String())
	}

	// Leave the global provider in the disabled state for other tests.
	if _, err := InitTracing(ctx, TracingConfig{}, nil); err != nil {
		t.Fatalf("reset tracing: %v", err)
	}
}
