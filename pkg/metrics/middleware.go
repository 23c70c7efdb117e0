package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Combine-Capital/reqlog/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// httpMetrics holds the request collectors registered by HTTPMiddleware.
type httpMetrics struct {
	duration *prometheus.HistogramVec
	count    *prometheus.CounterVec
}

// newHTTPMetrics registers the request collectors on reg. When another
// middleware already registered them the existing collectors are reused.
func newHTTPMetrics(reg prometheus.Registerer, ns string) (*httpMetrics, error) {
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method", "status_code"})

	count := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "status_code"})

	var err error
	if duration, err = registerOrReuse(reg, duration); err != nil {
		return nil, err
	}
	if count, err = registerOrReuse(reg, count); err != nil {
		return nil, err
	}
	return &httpMetrics{duration: duration, count: count}, nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, errors.NewPermanent("failed to register HTTP metrics", err)
	}
	return c, nil
}

// HTTPMiddleware records request duration and count by method and status
// code on the registry created by Init. Paths are not used as a label to
// keep cardinality bounded; per-path detail belongs in the access log.
//
// Before Init, or when registration fails, the middleware passes requests
// through untouched.
func HTTPMiddleware() func(http.Handler) http.Handler {
	mu.RLock()
	reg, ns := registry, namespace
	mu.RUnlock()

	if reg == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return InstrumentHandler(reg, ns)
}

// InstrumentHandler is HTTPMiddleware for an explicit registerer.
func InstrumentHandler(reg prometheus.Registerer, ns string) func(http.Handler) http.Handler {
	m, err := newHTTPMetrics(reg, ns)
	if err != nil {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			observe := func(status int) {
				code := strconv.Itoa(status)
				m.duration.WithLabelValues(r.Method, code).Observe(time.Since(start).Seconds())
				m.count.WithLabelValues(r.Method, code).Inc()
			}

			defer func() {
				if p := recover(); p != nil {
					status := sw.status
					if !sw.wroteHeader {
						status = http.StatusInternalServerError
					}
					observe(status)
					panic(p)
				}
			}()

			next.ServeHTTP(sw, r)
			observe(sw.status)
		})
	}
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusWriter) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

// Flush implements http.Flusher.
func (s *statusWriter) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		s.wroteHeader = true
		f.Flush()
	}
}

// Hijack implements http.Hijacker.
func (s *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.NewPermanent("response writer does not support hijacking", nil)
	}
	conn, rw, err := h.Hijack()
	if err == nil && !s.wroteHeader {
		s.status = http.StatusSwitchingProtocols
		s.wroteHeader = true
	}
	return conn, rw, err
}

func (s *statusWriter) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
