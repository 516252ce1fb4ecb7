package observability

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics for scans, ephemeris lookups,
// the live task and the HTTP surface. All record methods are safe on a nil
// receiver so callers can run without metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	Scans        *prometheus.CounterVec
	ScanSteps    prometheus.Counter
	ScanDuration prometheus.Histogram
	Eclipses     *prometheus.CounterVec

	Lookups      *prometheus.CounterVec
	LookupErrors *prometheus.CounterVec

	LiveFrames  prometheus.Counter
	LiveClients prometheus.Gauge

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil. Registering twice against the same registry
// reuses the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.Scans, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "umbra_scans_total",
		Help: "Eclipse scans run, labeled by criterion and outcome.",
	}, []string{"criterion", "outcome"}), "umbra_scans_total"); err != nil {
		return nil, err
	}
	if c.ScanSteps, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "umbra_scan_steps_total",
		Help: "Time samples evaluated by the eclipse scanner.",
	}), "umbra_scan_steps_total"); err != nil {
		return nil, err
	}
	if c.ScanDuration, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "umbra_scan_duration_seconds",
		Help:    "Wall time of one eclipse scan.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}), "umbra_scan_duration_seconds"); err != nil {
		return nil, err
	}
	if c.Eclipses, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "umbra_eclipses_found_total",
		Help: "Eclipse candidates reported by scans, labeled by kind.",
	}, []string{"kind"}), "umbra_eclipses_found_total"); err != nil {
		return nil, err
	}
	if c.Lookups, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "umbra_ephemeris_lookups_total",
		Help: "Ephemeris state lookups, labeled by provider, target and observer.",
	}, []string{"provider", "target", "observer"}), "umbra_ephemeris_lookups_total"); err != nil {
		return nil, err
	}
	if c.LookupErrors, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "umbra_ephemeris_lookup_errors_total",
		Help: "Failed ephemeris state lookups, labeled by provider.",
	}, []string{"provider"}), "umbra_ephemeris_lookup_errors_total"); err != nil {
		return nil, err
	}
	if c.LiveFrames, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "umbra_live_frames_total",
		Help: "Render frames produced by the live task.",
	}), "umbra_live_frames_total"); err != nil {
		return nil, err
	}
	if c.LiveClients, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "umbra_live_clients",
		Help: "WebSocket clients currently receiving render frames.",
	}), "umbra_live_clients"); err != nil {
		return nil, err
	}
	if c.HTTPRequests, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "umbra_http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"path", "method", "code"}), "umbra_http_requests_total"); err != nil {
		return nil, err
	}
	if c.HTTPDurations, err = registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "umbra_http_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method"}), "umbra_http_duration_seconds"); err != nil {
		return nil, err
	}

	return c, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// ObserveScan records one finished scan.
func (c *Collector) ObserveScan(criterion string, steps int, solar, lunar bool, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.Scans.WithLabelValues(criterion, outcome).Inc()
	c.ScanSteps.Add(float64(steps))
	c.ScanDuration.Observe(elapsed.Seconds())
	if solar {
		c.Eclipses.WithLabelValues("solar").Inc()
	}
	if lunar {
		c.Eclipses.WithLabelValues("lunar").Inc()
	}
}

// ObserveLookup records one ephemeris lookup.
func (c *Collector) ObserveLookup(provider, target, observer string, err error) {
	if c == nil {
		return
	}
	c.Lookups.WithLabelValues(provider, target, observer).Inc()
	if err != nil {
		c.LookupErrors.WithLabelValues(provider).Inc()
	}
}

// ObserveFrame records one live render frame.
func (c *Collector) ObserveFrame() {
	if c == nil {
		return
	}
	c.LiveFrames.Inc()
}

// SetLiveClients sets the number of connected live clients.
func (c *Collector) SetLiveClients(n int) {
	if c == nil {
		return
	}
	c.LiveClients.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the recorder.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer %T cannot hijack", rw.ResponseWriter)
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// Middleware records request count and duration for each request. The
// path label is supplied by route so that parameterised paths do not
// explode label cardinality.
func (c *Collector) Middleware(route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if c == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			path := r.URL.Path
			if route != nil {
				path = route(r)
			}
			c.HTTPRequests.WithLabelValues(path, r.Method, strconv.Itoa(rw.statusCode)).Inc()
			c.HTTPDurations.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
