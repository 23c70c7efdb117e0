package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Status values reported by Check.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusOK        = "ok"
	StatusError     = "error"
)

// Default probe settings.
const (
	DefaultCheckTimeout = 5 * time.Second
	DefaultCacheTTL     = time.Second
)

// Health runs registered checkers and caches the aggregate result briefly so
// that frequent probes do not hammer the sink backends.
type Health struct {
	mu       sync.RWMutex
	checkers map[string]Checker

	cacheMu     sync.Mutex
	cached      *Result
	cacheExpiry time.Time

	checkTimeout time.Duration
	cacheTTL     time.Duration
	clock        clockwork.Clock
}

// Result is the aggregate readiness result.
type Result struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// CheckResult is the outcome of a single checker.
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Option configures a Health.
type Option func(*Health)

// WithCheckTimeout bounds each checker when the caller's context has no deadline.
func WithCheckTimeout(d time.Duration) Option {
	return func(h *Health) {
		if d > 0 {
			h.checkTimeout = d
		}
	}
}

// WithCacheTTL sets how long an aggregate result is reused. Zero disables caching.
func WithCacheTTL(d time.Duration) Option {
	return func(h *Health) {
		if d >= 0 {
			h.cacheTTL = d
		}
	}
}

// WithClock sets the clock used for cache expiry.
func WithClock(c clockwork.Clock) Option {
	return func(h *Health) {
		if c != nil {
			h.clock = c
		}
	}
}

// New creates a Health with no checkers.
func New(opts ...Option) *Health {
	h := &Health{
		checkers:     make(map[string]Checker),
		checkTimeout: DefaultCheckTimeout,
		cacheTTL:     DefaultCacheTTL,
		clock:        clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterChecker registers checker under name, replacing any previous one.
func (h *Health) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.checkers[name] = checker
	h.invalidate()
}

// Names returns the registered checker names in sorted order.
func (h *Health) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs every checker concurrently and aggregates the outcome. A
// result younger than the cache TTL is returned without running checkers.
func (h *Health) Check(ctx context.Context) *Result {
	h.cacheMu.Lock()
	if h.cached != nil && h.clock.Now().Before(h.cacheExpiry) {
		result := h.cached
		h.cacheMu.Unlock()
		return result
	}
	h.cacheMu.Unlock()

	result := h.run(ctx)

	if h.cacheTTL > 0 {
		h.cacheMu.Lock()
		h.cached = result
		h.cacheExpiry = h.clock.Now().Add(h.cacheTTL)
		h.cacheMu.Unlock()
	}

	return result
}

func (h *Health) run(ctx context.Context) *Result {
	h.mu.RLock()
	checkers := make(map[string]Checker, len(h.checkers))
	for name, checker := range h.checkers {
		checkers[name] = checker
	}
	h.mu.RUnlock()

	result := &Result{
		Status: StatusHealthy,
		Checks: make(map[string]CheckResult, len(checkers)),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, checker := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			cr := CheckResult{Status: StatusOK}
			if err := h.checkOne(ctx, checker); err != nil {
				cr = CheckResult{Status: StatusError, Message: err.Error()}
			}

			mu.Lock()
			result.Checks[name] = cr
			if cr.Status != StatusOK {
				result.Status = StatusUnhealthy
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	return result
}

func (h *Health) checkOne(ctx context.Context, checker Checker) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.checkTimeout)
		defer cancel()
	}
	return checker.Check(ctx)
}

func (h *Health) invalidate() {
	h.cacheMu.Lock()
	h.cached = nil
	h.cacheMu.Unlock()
}
