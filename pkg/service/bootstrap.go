package service

import (
	"context"
	"net/http"

	"github.com/Combine-Capital/reqlog/pkg/config"
	"github.com/Combine-Capital/reqlog/pkg/errors"
	"github.com/Combine-Capital/reqlog/pkg/health"
	"github.com/Combine-Capital/reqlog/pkg/logging"
	"github.com/Combine-Capital/reqlog/pkg/metrics"
	"github.com/Combine-Capital/reqlog/pkg/reqlog"
	"github.com/Combine-Capital/reqlog/pkg/sink"
)

// Bootstrap holds the components built from a Config.
type Bootstrap struct {
	Config     *config.Config
	Logger     *logging.Logger
	Sink       sink.Sink
	RequestLog *reqlog.Middleware
	Health     *health.Health

	cleanup *CleanupHandler
}

// BootstrapOption is a functional option for configuring bootstrap behavior.
type BootstrapOption func(*bootstrapConfig)

type bootstrapConfig struct {
	skipMetrics bool
	sink        sink.Sink
	reqlogOpts  []reqlog.Option
}

// WithoutMetrics skips metrics.Init even when metrics are enabled.
func WithoutMetrics() BootstrapOption {
	return func(c *bootstrapConfig) {
		c.skipMetrics = true
	}
}

// WithSink uses s instead of building the sink from cfg.Sink. The bootstrap
// takes ownership of s.
func WithSink(s sink.Sink) BootstrapOption {
	return func(c *bootstrapConfig) {
		c.sink = s
	}
}

// WithRequestLogOptions passes extra options to reqlog.New.
func WithRequestLogOptions(opts ...reqlog.Option) BootstrapOption {
	return func(c *bootstrapConfig) {
		c.reqlogOpts = append(c.reqlogOpts, opts...)
	}
}

// NewBootstrap builds the logger, metrics, sink, request-log middleware and
// health checks from cfg, in that order. On failure everything built so far
// is released.
//
// Example:
//
//	cfg := config.MustLoad("config.yaml", "REQLOG")
//	b, err := service.NewBootstrap(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Cleanup(context.Background())
func NewBootstrap(ctx context.Context, cfg *config.Config, opts ...BootstrapOption) (*Bootstrap, error) {
	bc := &bootstrapConfig{}
	for _, opt := range opts {
		opt(bc)
	}

	logger := logging.New(cfg.Log).WithServiceName(cfg.Service.Name)
	logger.Info().
		Str("version", cfg.Service.Version).
		Str("env", cfg.Service.Env).
		Msg("service starting")

	b := &Bootstrap{
		Config:  cfg,
		Logger:  logger,
		Health:  health.New(),
		cleanup: NewCleanupHandler(logger),
	}

	var reqOpts []reqlog.Option
	if !bc.skipMetrics && cfg.Metrics.Enabled {
		if err := metrics.Init(cfg.Metrics, logger); err != nil {
			return nil, errors.Wrap(err, "failed to initialize metrics")
		}
		b.cleanup.Register(metrics.Shutdown)
		reqOpts = append(reqOpts, reqlog.WithRegisterer(metrics.Registry()))
	}

	s := bc.sink
	if s == nil {
		var err error
		s, err = sink.New(ctx, cfg.Sink)
		if err != nil {
			_ = b.cleanup.Execute(ctx)
			return nil, errors.Wrap(err, "failed to create access log sink")
		}
	}
	b.Sink = s

	reqOpts = append(reqOpts, reqlog.WithSink(s), reqlog.WithLogger(logger))
	reqOpts = append(reqOpts, bc.reqlogOpts...)

	mw, err := reqlog.New(cfg.RequestLog, reqOpts...)
	if err != nil {
		_ = s.Close()
		_ = b.cleanup.Execute(ctx)
		return nil, errors.Wrap(err, "failed to create request log middleware")
	}
	b.RequestLog = mw
	b.cleanup.Register(mw.Close)
	b.Health.RegisterChecker("request_log", mw)

	ev := logger.Info().Str("sink", sinkName(s))
	if stats, ok := mw.Stats(); ok {
		ev = ev.Int("queue_capacity", stats.Capacity)
	}
	ev.Msg("request log ready")

	return b, nil
}

// Wrap applies the standard middleware chain to h: access logging
// outermost, then request metrics, then panic recovery that reports the
// error to the access record.
func (b *Bootstrap) Wrap(h http.Handler) http.Handler {
	h = errors.RecoveryMiddleware(nil, reqlog.ReportError)(h)
	h = metrics.HTTPMiddleware()(h)
	return b.RequestLog.Handler(h)
}

// AddCleanup registers fn to run during Cleanup, before anything registered
// by NewBootstrap.
func (b *Bootstrap) AddCleanup(fn CleanupFunc) {
	b.cleanup.Register(fn)
}

// Cleanup drains the request log and shuts down metrics. It matches
// CleanupFunc so that it can be passed to WaitForShutdown.
func (b *Bootstrap) Cleanup(ctx context.Context) error {
	err := b.cleanup.Execute(ctx)
	if stats, ok := b.RequestLog.Stats(); ok {
		b.Logger.Info().
			Uint64("written", stats.Written).
			Uint64("dropped", stats.Dropped).
			Uint64("lost", stats.Lost).
			Msg("request log closed")
	}
	return err
}

func sinkName(s sink.Sink) string {
	if named, ok := s.(interface{ String() string }); ok {
		return named.String()
	}
	return "custom"
}
