package reqlog

import (
	"github.com/Combine-Capital/reqlog/pkg/logging"
	"github.com/Combine-Capital/reqlog/pkg/sink"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Middleware.
type Option func(*options)

type options struct {
	sink       sink.Sink
	emitter    Emitter
	extractor  Extractor
	logger     *logging.Logger
	clock      clockwork.Clock
	newID      func() string
	registerer prometheus.Registerer
	trace      bool
}

// WithSink sets the destination of the middleware's own emitter.
// The middleware takes ownership and closes it on Close.
func WithSink(s sink.Sink) Option {
	return func(o *options) {
		o.sink = s
	}
}

// WithEmitter replaces the internal queue and emitter. The caller keeps
// ownership; Close does not stop it. Emit is called on the request path, so
// the emitter must not block. Emitters that do not implement Decoupler
// returning true cause a warning at construction.
func WithEmitter(e Emitter) Option {
	return func(o *options) {
		o.emitter = e
	}
}

// WithExtractor adds extra fields to every record.
func WithExtractor(x Extractor) Option {
	return func(o *options) {
		o.extractor = x
	}
}

// WithLogger sets the diagnostic logger. Defaults to a stderr logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock sets the clock used for timestamps and durations.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithIDGenerator sets the event id generator used when the request carries none.
func WithIDGenerator(gen func() string) Option {
	return func(o *options) {
		o.newID = gen
	}
}

// WithRegisterer registers the pipeline metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithTraceFields adds trace_id and span_id from the request's OpenTelemetry
// span context, as the trace_fields setting does.
func WithTraceFields() Option {
	return func(o *options) {
		o.trace = true
	}
}
