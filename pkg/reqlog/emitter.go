package reqlog

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Combine-Capital/reqlog/pkg/config"
	"github.com/Combine-Capital/reqlog/pkg/errors"
	"github.com/Combine-Capital/reqlog/pkg/logging"
	"github.com/Combine-Capital/reqlog/pkg/sink"
)

// dropCheckInterval is how often drops are checked while the emitter
// goroutine may be busy in a sink write.
const dropCheckInterval = time.Second

// Emitter receives completed records from the middleware. Emit is called on
// the request path and must return without waiting for I/O.
type Emitter interface {
	Emit(rec Record)
}

// Decoupler is implemented by emitters that hand records off to another
// goroutine. A supplied emitter that does not report true is accepted with a
// startup warning.
type Decoupler interface {
	Decoupled() bool
}

// EmitterFunc adapts a function to Emitter. It cannot prove it is
// non-blocking, so the middleware warns when one is supplied.
type EmitterFunc func(rec Record)

// Emit calls f(rec).
func (f EmitterFunc) Emit(rec Record) {
	f(rec)
}

// Stats is a snapshot of an AsyncEmitter's counters.
type Stats struct {
	Submitted uint64 // records offered to the queue while open
	Dropped   uint64 // records discarded by the drop policy or after close
	Written   uint64 // records the sink accepted
	Failed    uint64 // records that failed to encode or write
	Lost      uint64 // records still queued when the drain deadline passed
	Queued    int
	Capacity  int
}

// EmitterOption configures an AsyncEmitter.
type EmitterOption func(*AsyncEmitter)

// WithQueueSize sets the queue capacity.
func WithQueueSize(n int) EmitterOption {
	return func(e *AsyncEmitter) {
		e.queueSize = n
	}
}

// WithDropPolicy sets the policy applied when the queue is full.
func WithDropPolicy(p DropPolicy) EmitterOption {
	return func(e *AsyncEmitter) {
		e.policy = p
	}
}

// WithWriteTimeout bounds each sink write. Zero disables the bound.
func WithWriteTimeout(d time.Duration) EmitterOption {
	return func(e *AsyncEmitter) {
		e.writeTimeout = d
	}
}

// WithDrainTimeout sets the grace period Close uses when its context has no deadline.
func WithDrainTimeout(d time.Duration) EmitterOption {
	return func(e *AsyncEmitter) {
		e.drainTimeout = d
	}
}

// WithEmitterLogger sets the logger for the emitter's own diagnostics.
func WithEmitterLogger(l *logging.Logger) EmitterOption {
	return func(e *AsyncEmitter) {
		e.logger = l
	}
}

// AsyncEmitter writes records to a sink from a single background goroutine.
// Sink failures are counted and reported once, never returned to callers.
type AsyncEmitter struct {
	queue        *Queue
	sink         sink.Sink
	logger       *logging.Logger
	queueSize    int
	policy       DropPolicy
	writeTimeout time.Duration
	drainTimeout time.Duration
	dropInterval time.Duration

	// ctx is cancelled when a drain deadline passes, aborting in-flight writes.
	ctx    context.Context
	cancel context.CancelFunc

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	written    atomic.Uint64
	failed     atomic.Uint64
	lost       atomic.Uint64
	lastFailed atomic.Bool

	dropWarned atomic.Bool
	writeWarn  sync.Once
	encodeWarn sync.Once
}

// NewAsyncEmitter starts an emitter writing to s. The emitter owns s and
// closes it when it stops.
func NewAsyncEmitter(s sink.Sink, opts ...EmitterOption) *AsyncEmitter {
	e := &AsyncEmitter{
		sink:         s,
		queueSize:    config.DefaultQueueSize,
		policy:       DropOldest,
		writeTimeout: config.DefaultWriteTimeout,
		drainTimeout: config.DefaultDrainTimeout,
		dropInterval: dropCheckInterval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.Nop()
	}
	if e.dropInterval <= 0 {
		e.dropInterval = dropCheckInterval
	}
	e.logger = e.logger.WithFields(map[string]any{logging.Sink: sinkName(s)})
	e.queue = NewQueue(e.queueSize, e.policy)
	e.ctx, e.cancel = context.WithCancel(context.Background())

	go e.run()
	go e.watchDrops()
	return e
}

// Emit submits rec to the queue. It never blocks.
func (e *AsyncEmitter) Emit(rec Record) {
	e.queue.Submit(rec)
}

// Decoupled reports true: writes happen on the emitter goroutine.
func (e *AsyncEmitter) Decoupled() bool {
	return true
}

// Stats returns the current counters.
func (e *AsyncEmitter) Stats() Stats {
	return Stats{
		Submitted: e.queue.Submitted(),
		Dropped:   e.queue.Dropped(),
		Written:   e.written.Load(),
		Failed:    e.failed.Load(),
		Lost:      e.lost.Load(),
		Queued:    e.queue.Len(),
		Capacity:  e.queue.Cap(),
	}
}

// Check reports whether the emitter is running and its last write succeeded.
// Sinks that implement sink.Checker are probed as well.
func (e *AsyncEmitter) Check(ctx context.Context) error {
	if e.closed.Load() {
		return errors.NewPermanent("access log emitter is closed", nil)
	}
	if e.lastFailed.Load() {
		return errors.NewTemporary("last access log write failed", nil)
	}
	if c, ok := e.sink.(sink.Checker); ok {
		return c.Check(ctx)
	}
	return nil
}

// Close stops accepting records and drains the queue. Draining ends when the
// queue is empty or when ctx is done; without a deadline on ctx the drain
// timeout applies. Records left at the deadline are lost. The sink is closed
// once the emitter goroutine exits.
func (e *AsyncEmitter) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.queue.close()
		close(e.stop)
	})

	if _, ok := ctx.Deadline(); !ok && e.drainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.drainTimeout)
		defer cancel()
	}

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		e.cancel()
		return errors.NewTemporary("access log drain did not finish", ctx.Err())
	}
}

func (e *AsyncEmitter) run() {
	defer close(e.done)

	for {
		select {
		case rec := <-e.queue.ch:
			e.write(rec)
			e.reportDrops()
		case <-e.stop:
			e.drain()
			return
		}
	}
}

func (e *AsyncEmitter) drain() {
	for e.ctx.Err() == nil {
		select {
		case rec := <-e.queue.ch:
			e.write(rec)
		default:
			e.finish()
			return
		}
	}
	e.finish()
}

func (e *AsyncEmitter) finish() {
	e.reportDrops()
	if n := e.queue.Len(); n > 0 {
		e.lost.Add(uint64(n))
		e.logger.Warn().Int(logging.Pending, n).Msg("access log drain deadline passed, pending records lost")
	}
	if err := e.sink.Close(); err != nil {
		e.logger.Warn().Err(err).Msg("failed to close access log sink")
	}
	e.cancel()

	st := e.Stats()
	e.logger.Debug().
		Uint64("written", st.Written).
		Uint64("failed", st.Failed).
		Uint64(logging.Dropped, st.Dropped).
		Msg("access log emitter stopped")
}

func (e *AsyncEmitter) write(rec Record) {
	line, err := Encode(rec)
	if err != nil {
		e.failed.Add(1)
		e.encodeWarn.Do(func() {
			e.logger.Warn().Err(err).Msg("access record is not JSON-serializable, dropping; further encode failures are not logged")
		})
		return
	}

	if err := e.writeLine(line); err != nil {
		e.failed.Add(1)
		e.lastFailed.Store(true)
		e.writeWarn.Do(func() {
			e.logger.Warn().Err(err).Msg("access log sink write failed; further write failures are not logged")
		})
		return
	}
	e.written.Add(1)
	e.lastFailed.Store(false)
}

func (e *AsyncEmitter) writeLine(line []byte) (err error) {
	ctx := e.ctx
	if e.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.writeTimeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			err = errors.NewPanic(p, debug.Stack())
		}
	}()
	return e.sink.Write(ctx, line)
}

// watchDrops reports drops while the emitter goroutine is stuck in a write.
func (e *AsyncEmitter) watchDrops() {
	ticker := time.NewTicker(e.dropInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.reportDrops()
		case <-e.done:
			return
		}
	}
}

// reportDrops warns the first time records have been dropped. It runs off
// the request path so Emit stays free of I/O.
func (e *AsyncEmitter) reportDrops() {
	if e.dropWarned.Load() {
		return
	}
	if n := e.queue.Dropped(); n > 0 && e.dropWarned.CompareAndSwap(false, true) {
		e.logger.Warn().
			Uint64(logging.Dropped, n).
			Str("policy", e.queue.Policy().String()).
			Int("capacity", e.queue.Cap()).
			Msg("access log queue full, dropping records")
	}
}

func sinkName(s sink.Sink) string {
	if st, ok := s.(fmt.Stringer); ok {
		return st.String()
	}
	return fmt.Sprintf("%T", s)
}
