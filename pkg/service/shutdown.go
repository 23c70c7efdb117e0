package service

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Combine-Capital/reqlog/pkg/logging"
)

// ShutdownConfig configures graceful shutdown behavior.
type ShutdownConfig struct {
	// Timeout bounds stopping the services and running cleanup together.
	Timeout time.Duration

	// Signals trigger shutdown. Defaults to SIGINT and SIGTERM.
	Signals []os.Signal
}

// DefaultShutdownConfig returns a 30 second timeout on SIGINT and SIGTERM.
func DefaultShutdownConfig() ShutdownConfig {
	return ShutdownConfig{
		Timeout: 30 * time.Second,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// CleanupFunc releases a resource during shutdown.
type CleanupFunc func(context.Context) error

// CleanupHandler runs cleanup functions in LIFO order, so the resource
// registered first (usually the request log) is released last.
type CleanupHandler struct {
	mu       sync.Mutex
	cleanups []CleanupFunc
	logger   *logging.Logger
}

// NewCleanupHandler creates a cleanup handler that logs failures to logger.
func NewCleanupHandler(logger *logging.Logger) *CleanupHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &CleanupHandler{logger: logger}
}

// Register adds fn to the handler.
func (h *CleanupHandler) Register(fn CleanupFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanups = append(h.cleanups, fn)
}

// Execute runs every registered function once, newest first, and returns
// the first error. Later calls do nothing.
func (h *CleanupHandler) Execute(ctx context.Context) error {
	h.mu.Lock()
	cleanups := h.cleanups
	h.cleanups = nil
	h.mu.Unlock()

	var firstErr error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i](ctx); err != nil {
			h.logger.Error().Err(err).Msg("cleanup failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Shutdown stops services in the order given and then runs cleanup. Stopping
// the servers first lets their in-flight requests reach the request log
// before it is drained.
func Shutdown(ctx context.Context, logger *logging.Logger, cleanup CleanupFunc, services ...Service) error {
	if logger == nil {
		logger = logging.Nop()
	}

	var firstErr error
	for _, svc := range services {
		if err := svc.Stop(ctx); err != nil {
			logger.Error().Err(err).Str("service", svc.Name()).Msg("failed to stop service")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if cleanup != nil {
		if err := cleanup(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	logger.Info().Msg("graceful shutdown completed")
	return firstErr
}

// WaitForShutdown blocks until SIGINT, SIGTERM or ctx cancellation and then
// calls Shutdown with the default timeout.
func WaitForShutdown(ctx context.Context, logger *logging.Logger, cleanup CleanupFunc, services ...Service) error {
	return WaitForShutdownWithConfig(ctx, DefaultShutdownConfig(), logger, cleanup, services...)
}

// WaitForShutdownWithConfig is WaitForShutdown with custom signals and timeout.
func WaitForShutdownWithConfig(ctx context.Context, cfg ShutdownConfig, logger *logging.Logger, cleanup CleanupFunc, services ...Service) error {
	if logger == nil {
		logger = logging.Nop()
	}
	signals := cfg.Signals
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultShutdownConfig().Timeout
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, signals...)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case <-ctx.Done():
		logger.Info().Msg("context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return Shutdown(shutdownCtx, logger, cleanup, services...)
}
