package reqlog

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"sync"

	"github.com/Combine-Capital/reqlog/pkg/config"
	"github.com/Combine-Capital/reqlog/pkg/errors"
)

type stateContextKey struct{}

// State is the per-request side-channel. The middleware creates one for each
// request and reads it after the handler returns; handlers write to it.
type State struct {
	mu       sync.RWMutex
	values   map[string]any
	errorKey string
}

// NewState returns an empty State whose error info is stored under the default key.
func NewState() *State {
	return newState(config.DefaultErrorInfoKey)
}

func newState(errorKey string) *State {
	return &State{values: make(map[string]any), errorKey: errorKey}
}

// Set stores value under key.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

// Get returns the value stored under key.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Snapshot returns a shallow copy of all values.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// WithState returns a copy of ctx carrying s.
func WithState(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, stateContextKey{}, s)
}

// StateFromContext returns the request's State, or nil outside the middleware.
func StateFromContext(ctx context.Context) *State {
	s, _ := ctx.Value(stateContextKey{}).(*State)
	return s
}

// SetErrorInfo attaches error details to the current request under the key
// the middleware was configured with. It reports whether a State was found.
func SetErrorInfo(ctx context.Context, info map[string]any) bool {
	s := StateFromContext(ctx)
	if s == nil {
		return false
	}
	s.Set(s.errorKey, info)
	return true
}

// RecordError attaches err to the current request, see errors.Info.
func RecordError(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	return SetErrorInfo(ctx, errors.Info(err))
}

// ReportError is an errors.Reporter that records err on the request.
func ReportError(r *http.Request, err error) {
	RecordError(r.Context(), err)
}

// ErrorFields reads the error info stored under key and copies the mapped
// entries: for every source -> target pair whose source is present, the value
// lands in target. Sources are applied in sorted order, so when several map to
// one target the last present source wins. Missing or non-mapping values
// produce no fields.
func ErrorFields(s *State, key string, mapping map[string]string) map[string]any {
	if s == nil {
		return nil
	}
	v, ok := s.Get(key)
	if !ok {
		return nil
	}

	var lookup func(string) (any, bool)
	switch info := v.(type) {
	case map[string]any:
		lookup = func(k string) (any, bool) { x, ok := info[k]; return x, ok }
	case map[string]string:
		lookup = func(k string) (any, bool) { x, ok := info[k]; return x, ok }
	default:
		return nil
	}

	var fields map[string]any
	for _, source := range slices.Sorted(maps.Keys(mapping)) {
		target := mapping[source]
		if val, ok := lookup(source); ok {
			if fields == nil {
				fields = make(map[string]any, len(mapping))
			}
			fields[target] = val
		}
	}
	return fields
}
