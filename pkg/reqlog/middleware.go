package reqlog

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/Combine-Capital/reqlog/pkg/config"
	"github.com/Combine-Capital/reqlog/pkg/errors"
	"github.com/Combine-Capital/reqlog/pkg/logging"
	"github.com/Combine-Capital/reqlog/pkg/sink"
	"github.com/jonboulle/clockwork"
)

// Middleware logs one access record per completed request.
// Its configuration is fixed at construction.
type Middleware struct {
	eventIDHeader   string
	clientIPHeaders []string
	errorInfoKey    string
	errorMapping    map[string]string
	exclude         map[string]struct{}
	extractors      []Extractor

	emitter Emitter
	owned   *AsyncEmitter
	logger  *logging.Logger
	clock   clockwork.Clock
	newID   func() string

	extractWarn sync.Once
}

// New builds a Middleware from cfg. Unset fields of cfg take their defaults.
// Unless WithEmitter is given, the middleware starts its own emitter writing
// to the WithSink sink, or to stdout.
func New(cfg config.RequestLogConfig, opts ...Option) (*Middleware, error) {
	cfg = cloneConfig(cfg)
	config.ApplyRequestLogDefaults(&cfg)
	if err := config.ValidateRequestLog(cfg); err != nil {
		return nil, errors.NewInvalidInputWithCause("request_log", "invalid configuration", err)
	}
	policy, err := ParseDropPolicy(cfg.DropPolicy)
	if err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.sink != nil && o.emitter != nil {
		return nil, errors.NewInvalidInput("options", "WithSink and WithEmitter are mutually exclusive")
	}
	if o.logger == nil {
		o.logger = logging.New(config.LogConfig{Output: "stderr"})
	}
	if o.clock == nil {
		o.clock = clockwork.NewRealClock()
	}
	if o.newID == nil {
		o.newID = NewEventID
	}

	m := &Middleware{
		eventIDHeader:   cfg.EventIDHeader,
		clientIPHeaders: cfg.ClientIPHeaders,
		errorInfoKey:    cfg.ErrorInfoKey,
		errorMapping:    cfg.ErrorInfoMapping,
		exclude:         make(map[string]struct{}, len(cfg.ExcludePaths)),
		logger:          o.logger.WithComponent("reqlog"),
		clock:           o.clock,
		newID:           o.newID,
	}
	for _, p := range cfg.ExcludePaths {
		m.exclude[p] = struct{}{}
	}
	if cfg.TraceFields || o.trace {
		m.extractors = append(m.extractors, TraceExtractor)
	}
	if o.extractor != nil {
		m.extractors = append(m.extractors, o.extractor)
	}

	if o.emitter != nil {
		m.emitter = o.emitter
		if d, ok := o.emitter.(Decoupler); !ok || !d.Decoupled() {
			m.logger.Warn().Msgf("emitter %T does not report decoupled writes; a blocking emitter will slow down every request", o.emitter)
		}
	} else {
		s := o.sink
		if s == nil {
			s = sink.NewWriterSink("stdout", os.Stdout)
		}
		m.owned = NewAsyncEmitter(s,
			WithQueueSize(cfg.QueueSize),
			WithDropPolicy(policy),
			WithWriteTimeout(cfg.WriteTimeout),
			WithDrainTimeout(cfg.DrainTimeout),
			WithEmitterLogger(m.logger),
		)
		m.emitter = m.owned
	}

	if o.registerer != nil {
		if src, ok := m.emitter.(StatsSource); ok {
			if err := RegisterMetrics(o.registerer, src); err != nil {
				if m.owned != nil {
					_ = m.owned.Close(context.Background())
				}
				return nil, err
			}
		}
	}

	return m, nil
}

func cloneConfig(cfg config.RequestLogConfig) config.RequestLogConfig {
	if cfg.ClientIPHeaders != nil {
		cfg.ClientIPHeaders = append([]string{}, cfg.ClientIPHeaders...)
	}
	if cfg.ErrorInfoMapping != nil {
		mapping := make(map[string]string, len(cfg.ErrorInfoMapping))
		for k, v := range cfg.ErrorInfoMapping {
			mapping[k] = v
		}
		cfg.ErrorInfoMapping = mapping
	}
	return cfg
}

// Handler wraps next. Exactly one record is emitted for every request that
// returns or panics; a panic before any status was written is recorded as
// 500 and then re-raised.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, skip := m.exclude[r.URL.Path]; skip {
			next.ServeHTTP(w, r)
			return
		}

		start := m.clock.Now()
		access := ExtractAccess(r, m.eventIDHeader, m.clientIPHeaders, m.newID)
		state := newState(m.errorInfoKey)

		ctx := WithState(r.Context(), state)
		ctx = logging.WithRequestID(ctx, access.EventID)
		r = r.WithContext(ctx)
		rw := &responseWriter{ResponseWriter: w}

		defer func() {
			if p := recover(); p != nil {
				status := http.StatusInternalServerError
				if rw.wroteHeader {
					status = rw.status
				}
				m.complete(ctx, state, access, start, status)
				panic(p)
			}
		}()

		next.ServeHTTP(rw, r)
		m.complete(ctx, state, access, start, rw.Status())
	})
}

func (m *Middleware) complete(ctx context.Context, state *State, access AccessFields, start time.Time, status int) {
	timing := Timing{Elapsed: m.clock.Since(start), Completed: m.clock.Now()}
	errFields := ErrorFields(state, m.errorInfoKey, m.errorMapping)
	rec := Build(access, errFields, m.extra(ctx, state), timing, status)
	m.emitter.Emit(rec)
}

func (m *Middleware) extra(ctx context.Context, state *State) map[string]any {
	var fields map[string]any
	for _, x := range m.extractors {
		for k, v := range m.safeExtract(ctx, x, state) {
			if fields == nil {
				fields = make(map[string]any)
			}
			fields[k] = v
		}
	}
	return fields
}

func (m *Middleware) safeExtract(ctx context.Context, x Extractor, state *State) (fields map[string]any) {
	defer func() {
		if p := recover(); p != nil {
			fields = nil
			m.extractWarn.Do(func() {
				m.logger.Warn().Interface("panic", p).Msg("extra-fields extractor panicked; its fields are omitted")
			})
		}
	}()
	return x.Extract(ctx, state)
}

// Stats returns the counters of the middleware's own emitter, or of a
// supplied emitter that exposes them.
func (m *Middleware) Stats() (Stats, bool) {
	if src, ok := m.emitter.(StatsSource); ok {
		return src.Stats(), true
	}
	return Stats{}, false
}

// Check reports the health of the middleware's own emitter.
// A supplied emitter is the caller's responsibility and always reports healthy.
func (m *Middleware) Check(ctx context.Context) error {
	if m.owned == nil {
		return nil
	}
	return m.owned.Check(ctx)
}

// Close drains and stops the emitter the middleware created, see
// AsyncEmitter.Close. A supplied emitter is left running.
func (m *Middleware) Close(ctx context.Context) error {
	if m.owned == nil {
		return nil
	}
	return m.owned.Close(ctx)
}
