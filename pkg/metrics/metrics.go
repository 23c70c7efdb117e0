// Package metrics owns the process-wide Prometheus registry and the HTTP
// endpoint that exposes it. The request-log pipeline registers its counters
// on Registry(); HTTPMiddleware adds request duration and count metrics.
//
// Example usage:
//
//	if err := metrics.Init(cfg.Metrics, logger); err != nil {
//	    log.Fatal(err)
//	}
//	defer metrics.Shutdown(context.Background())
//
//	mw, err := reqlog.New(cfg.RequestLog, reqlog.WithRegisterer(metrics.Registry()))
package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Combine-Capital/reqlog/pkg/config"
	"github.com/Combine-Capital/reqlog/pkg/errors"
	"github.com/Combine-Capital/reqlog/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// mu guards all package state below.
	mu sync.RWMutex

	registry    *prometheus.Registry
	namespace   string
	initialized bool

	server *http.Server
	addr   net.Addr
)

// Init creates the registry and, when cfg.Enabled, starts serving it on
// cfg.Port at cfg.Path. The listener is bound before Init returns so that a
// port conflict is reported to the caller.
//
// Calling Init again is a no-op until Shutdown.
func Init(cfg config.MetricsConfig, logger *logging.Logger) error {
	mu.Lock()
	defer mu.Unlock()

	if initialized {
		return nil
	}
	if logger == nil {
		logger = logging.Nop()
	}

	reg := prometheus.NewRegistry()
	namespace = cfg.Namespace

	if !cfg.Enabled {
		registry = reg
		initialized = true
		return nil
	}

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return errors.NewPermanent("failed to bind metrics listener", err)
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	logger.Info().
		Str("addr", ln.Addr().String()).
		Str("path", path).
		Msg("metrics endpoint listening")

	registry = reg
	server = srv
	addr = ln.Addr()
	initialized = true
	return nil
}

// Shutdown stops the metrics server and forgets the registry.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	var err error
	if server != nil {
		err = server.Shutdown(ctx)
	}

	registry = nil
	server = nil
	addr = nil
	namespace = ""
	initialized = false
	return err
}

// Registry returns the registry created by Init, or nil before Init.
func Registry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Addr returns the bound address of the metrics server, or nil when it is
// not running.
func Addr() net.Addr {
	mu.RLock()
	defer mu.RUnlock()
	return addr
}

// IsInitialized returns true if Init has been called successfully.
func IsInitialized() bool {
	mu.RLock()
	defer mu.RUnlock()
	return initialized
}

// Handler returns an HTTP handler for the registry, for services that mount
// metrics on their own mux.
func Handler() http.Handler {
	reg := Registry()
	if reg == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
