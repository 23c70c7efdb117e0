package service

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Combine-Capital/reqlog/pkg/config"
	"github.com/Combine-Capital/reqlog/pkg/errors"
	"github.com/Combine-Capital/reqlog/pkg/logging"
)

// HTTPService manages the lifecycle of an http.Server.
type HTTPService struct {
	name            string
	addr            string
	handler         http.Handler
	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
	maxHeaderBytes  int
	logger          *logging.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// HTTPServiceOption is a functional option for configuring an HTTPService.
type HTTPServiceOption func(*HTTPService)

// WithReadTimeout sets the HTTP server read timeout.
func WithReadTimeout(timeout time.Duration) HTTPServiceOption {
	return func(s *HTTPService) {
		s.readTimeout = timeout
	}
}

// WithWriteTimeout sets the HTTP server write timeout.
func WithWriteTimeout(timeout time.Duration) HTTPServiceOption {
	return func(s *HTTPService) {
		s.writeTimeout = timeout
	}
}

// WithShutdownTimeout bounds Stop when its context has no deadline.
func WithShutdownTimeout(timeout time.Duration) HTTPServiceOption {
	return func(s *HTTPService) {
		s.shutdownTimeout = timeout
	}
}

// WithMaxHeaderBytes sets the maximum header bytes for the HTTP server.
func WithMaxHeaderBytes(bytes int) HTTPServiceOption {
	return func(s *HTTPService) {
		s.maxHeaderBytes = bytes
	}
}

// WithLogger sets the logger for lifecycle events.
func WithLogger(logger *logging.Logger) HTTPServiceOption {
	return func(s *HTTPService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServerConfig applies the timeouts and header limit of cfg. Zero
// values keep the defaults.
func WithServerConfig(cfg config.ServerConfig) HTTPServiceOption {
	return func(s *HTTPService) {
		if cfg.ReadTimeout > 0 {
			s.readTimeout = cfg.ReadTimeout
		}
		if cfg.WriteTimeout > 0 {
			s.writeTimeout = cfg.WriteTimeout
		}
		if cfg.ShutdownTimeout > 0 {
			s.shutdownTimeout = cfg.ShutdownTimeout
		}
		if cfg.MaxHeaderBytes > 0 {
			s.maxHeaderBytes = cfg.MaxHeaderBytes
		}
	}
}

// NewHTTPService creates a service serving handler on addr. Use port 0 to
// let the system pick a port; Addr reports it after Start.
func NewHTTPService(name, addr string, handler http.Handler, opts ...HTTPServiceOption) *HTTPService {
	s := &HTTPService{
		name:            name,
		addr:            addr,
		handler:         handler,
		readTimeout:     10 * time.Second,
		writeTimeout:    10 * time.Second,
		shutdownTimeout: 30 * time.Second,
		maxHeaderBytes:  1 << 20, // 1 MB
		logger:          logging.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start binds the listener and serves in the background. The context becomes
// the base context of every request.
func (s *HTTPService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.NewPermanent("service "+s.name+" already started", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.NewPermanent("failed to start HTTP service "+s.name, err)
	}

	srv := &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.readTimeout,
		WriteTimeout:   s.writeTimeout,
		MaxHeaderBytes: s.maxHeaderBytes,
		BaseContext:    func(net.Listener) context.Context { return ctx },
		ErrorLog:       s.logger.StdLogger(),
	}
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Str("service", s.name).Msg("HTTP server stopped")
		}
	}()

	s.server = srv
	s.listener = ln
	s.done = done

	s.logger.Info().
		Str("service", s.name).
		Str("addr", ln.Addr().String()).
		Msg("HTTP service listening")
	return nil
}

// Stop shuts the server down gracefully. Stopping a service that is not
// running is a no-op.
func (s *HTTPService) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.server, s.done
	s.server, s.listener, s.done = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
	}

	if err := srv.Shutdown(ctx); err != nil {
		return errors.NewTemporary("failed to shutdown HTTP service "+s.name, err)
	}
	<-done

	s.logger.Info().Str("service", s.name).Msg("HTTP service stopped")
	return nil
}

// Name returns the service name.
func (s *HTTPService) Name() string {
	return s.name
}

// Addr returns the bound address, or nil when the service is not running.
func (s *HTTPService) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Check reports an error unless the service is running.
func (s *HTTPService) Check(ctx context.Context) error {
	s.mu.Lock()
	running := s.server != nil
	s.mu.Unlock()

	if !running {
		return errors.NewTemporary("service "+s.name+" not running", nil)
	}
	return nil
}
