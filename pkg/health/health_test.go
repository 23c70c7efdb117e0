package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// countingChecker counts invocations and returns err.
type countingChecker struct {
	calls atomic.Int32
	err   error
}

func (c *countingChecker) Check(ctx context.Context) error {
	c.calls.Add(1)
	return c.err
}

// TestNew verifies the defaults and option handling.
func TestNew(t *testing.T) {
	h := New()
	if h.checkTimeout != DefaultCheckTimeout {
		t.Errorf("checkTimeout = %v, want %v", h.checkTimeout, DefaultCheckTimeout)
	}
	if h.cacheTTL != DefaultCacheTTL {
		t.Errorf("cacheTTL = %v, want %v", h.cacheTTL, DefaultCacheTTL)
	}

	h = New(WithCheckTimeout(2*time.Second), WithCacheTTL(0), WithCheckTimeout(-1))
	if h.checkTimeout != 2*time.Second {
		t.Errorf("checkTimeout = %v, want 2s", h.checkTimeout)
	}
	if h.cacheTTL != 0 {
		t.Errorf("cacheTTL = %v, want 0", h.cacheTTL)
	}
}

// TestCheck verifies aggregation over healthy and failing checkers.
func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		checkers   map[string]Checker
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "no checkers",
			checkers:   map[string]Checker{},
			wantStatus: StatusHealthy,
			wantChecks: map[string]string{},
		},
		{
			name: "all healthy",
			checkers: map[string]Checker{
				"request_log": CheckerFunc(func(context.Context) error { return nil }),
				"sink":        CheckerFunc(func(context.Context) error { return nil }),
			},
			wantStatus: StatusHealthy,
			wantChecks: map[string]string{"request_log": StatusOK, "sink": StatusOK},
		},
		{
			name: "one failing",
			checkers: map[string]Checker{
				"request_log": CheckerFunc(func(context.Context) error { return nil }),
				"sink":        CheckerFunc(func(context.Context) error { return fmt.Errorf("connection refused") }),
			},
			wantStatus: StatusUnhealthy,
			wantChecks: map[string]string{"request_log": StatusOK, "sink": StatusError},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(WithCacheTTL(0))
			for name, c := range tt.checkers {
				h.RegisterChecker(name, c)
			}

			result := h.Check(context.Background())
			if result.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", result.Status, tt.wantStatus)
			}
			if len(result.Checks) != len(tt.wantChecks) {
				t.Fatalf("Checks = %v, want %v", result.Checks, tt.wantChecks)
			}
			for name, want := range tt.wantChecks {
				if got := result.Checks[name].Status; got != want {
					t.Errorf("Checks[%q].Status = %q, want %q", name, got, want)
				}
			}
			if got := result.Checks["sink"].Message; tt.wantChecks["sink"] == StatusError && got != "connection refused" {
				t.Errorf("Checks[sink].Message = %q, want %q", got, "connection refused")
			}
		})
	}
}

// TestCheckTimeout verifies that a checker without a caller deadline is
// bounded by the configured timeout.
func TestCheckTimeout(t *testing.T) {
	h := New(WithCheckTimeout(50*time.Millisecond), WithCacheTTL(0))
	h.RegisterChecker("slow", CheckerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	start := time.Now()
	result := h.Check(context.Background())
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Check() took %v, want about 50ms", elapsed)
	}
	if result.Status != StatusUnhealthy {
		t.Errorf("Status = %q, want %q", result.Status, StatusUnhealthy)
	}
}

// TestCheckCache verifies that results are reused until the TTL passes and
// that registering a checker invalidates the cache.
func TestCheckCache(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := New(WithCacheTTL(time.Second), WithClock(clock))

	c := &countingChecker{}
	h.RegisterChecker("sink", c)

	h.Check(context.Background())
	h.Check(context.Background())
	if got := c.calls.Load(); got != 1 {
		t.Errorf("calls within TTL = %d, want 1", got)
	}

	clock.Advance(2 * time.Second)
	h.Check(context.Background())
	if got := c.calls.Load(); got != 2 {
		t.Errorf("calls after TTL = %d, want 2", got)
	}

	h.RegisterChecker("other", CheckerFunc(func(context.Context) error { return nil }))
	result := h.Check(context.Background())
	if got := c.calls.Load(); got != 3 {
		t.Errorf("calls after register = %d, want 3", got)
	}
	if len(result.Checks) != 2 {
		t.Errorf("Checks = %v, want 2 entries", result.Checks)
	}
}

// TestNames verifies that registered names are sorted.
func TestNames(t *testing.T) {
	h := New()
	h.RegisterChecker("sink", &countingChecker{})
	h.RegisterChecker("request_log", &countingChecker{})

	names := h.Names()
	if len(names) != 2 || names[0] != "request_log" || names[1] != "sink" {
		t.Errorf("Names() = %v, want [request_log sink]", names)
	}
}

// TestLivenessHandler verifies that liveness ignores failing checkers.
func TestLivenessHandler(t *testing.T) {
	h := New()
	h.RegisterChecker("sink", &countingChecker{err: fmt.Errorf("down")})

	w := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["status"] != "alive" {
		t.Errorf("body status = %q, want %q", body["status"], "alive")
	}
}

// TestReadinessHandler verifies the status code and body for healthy and
// unhealthy dependencies.
func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantStatus string
	}{
		{name: "healthy", wantCode: http.StatusOK, wantStatus: StatusHealthy},
		{name: "unhealthy", err: fmt.Errorf("down"), wantCode: http.StatusServiceUnavailable, wantStatus: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(WithCacheTTL(0))
			h.RegisterChecker("sink", &countingChecker{err: tt.err})

			w := httptest.NewRecorder()
			h.ReadinessHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if got := w.Header().Get("Content-Type"); got != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", got)
			}

			var result Result
			if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if result.Status != tt.wantStatus {
				t.Errorf("body status = %q, want %q", result.Status, tt.wantStatus)
			}
		})
	}
}
