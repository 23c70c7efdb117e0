package reqlog

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
)

// memorySink collects written lines. It can be made to fail or to block until released.
type memorySink struct {
	mu     sync.Mutex
	lines  [][]byte
	closed bool
	fail   func(n int) error
	block  chan struct{}
	writes int
}

func (s *memorySink) Write(ctx context.Context, line []byte) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.fail != nil {
		if err := s.fail(s.writes); err != nil {
			return err
		}
	}
	s.lines = append(s.lines, append([]byte(nil), line...))
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *memorySink) Lines() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.lines...)
}

func (s *memorySink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *memorySink) Records(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range s.Lines() {
		var rec map[string]any
		if err := json.Unmarshal(line, &rec); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

// syncBuffer is a bytes.Buffer safe for the emitter goroutine and the test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// recorder is an Emitter that keeps records in memory.
type recorder struct {
	mu      sync.Mutex
	records []Record
}

func (r *recorder) Emit(rec Record) {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
}

func (r *recorder) Decoupled() bool {
	return true
}

func (r *recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}
