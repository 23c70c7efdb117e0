package reqlog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Combine-Capital/reqlog/pkg/config"
	"github.com/Combine-Capital/reqlog/pkg/errors"
	"github.com/Combine-Capital/reqlog/pkg/logging"
)

func closeEmitter(t *testing.T, e *AsyncEmitter) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

// TestAsyncEmitterWritesInOrder verifies records are written one line each in submission order
func TestAsyncEmitterWritesInOrder(t *testing.T) {
	s := &memorySink{}
	e := NewAsyncEmitter(s, WithQueueSize(100))

	for i := 0; i < 50; i++ {
		e.Emit(Record{"seq": i, "path": "/ü"})
	}
	closeEmitter(t, e)

	recs := s.Records(t)
	if len(recs) != 50 {
		t.Fatalf("wrote %d records, want 50", len(recs))
	}
	for i, rec := range recs {
		if rec["seq"] != float64(i) {
			t.Fatalf("record %d has seq %v", i, rec["seq"])
		}
	}
	if !strings.Contains(string(s.Lines()[0]), `"/ü"`) {
		t.Errorf("line = %s, want unescaped non-ASCII", s.Lines()[0])
	}
	if !s.Closed() {
		t.Error("sink not closed after Close()")
	}

	st := e.Stats()
	if st.Written != 50 || st.Submitted != 50 || st.Failed != 0 || st.Dropped != 0 {
		t.Errorf("Stats() = %+v", st)
	}
}

// TestAsyncEmitterFailingSink verifies a failing sink never stops draining
func TestAsyncEmitterFailingSink(t *testing.T) {
	var logBuf syncBuffer
	logger := logging.NewWithWriter(&logBuf, config.LogConfig{Level: "warn"})

	s := &memorySink{fail: func(n int) error {
		if n <= 3 {
			return errors.NewTemporary("collector unavailable", nil)
		}
		return nil
	}}
	e := NewAsyncEmitter(s, WithEmitterLogger(logger))

	for i := 0; i < 3; i++ {
		e.Emit(Record{"seq": i})
	}
	waitFor(t, func() bool { return e.Stats().Failed == 3 })

	if err := e.Check(context.Background()); !errors.IsTemporary(err) {
		t.Errorf("Check() after failures = %v, want temporary error", err)
	}

	e.Emit(Record{"seq": 3})
	e.Emit(Record{"seq": 4})
	waitFor(t, func() bool { return e.Stats().Written == 2 })

	if err := e.Check(context.Background()); err != nil {
		t.Errorf("Check() after recovery = %v, want nil", err)
	}
	closeEmitter(t, e)

	if n := strings.Count(logBuf.String(), "sink write failed"); n != 1 {
		t.Errorf("write failure logged %d times, want once:\n%s", n, logBuf.String())
	}
}

// TestAsyncEmitterAlwaysFailingSink verifies every record is still attempted
func TestAsyncEmitterAlwaysFailingSink(t *testing.T) {
	s := &memorySink{fail: func(int) error { return fmt.Errorf("disk full") }}
	e := NewAsyncEmitter(s, WithQueueSize(1000))

	for i := 0; i < 200; i++ {
		e.Emit(Record{"seq": i})
	}
	closeEmitter(t, e)

	st := e.Stats()
	if st.Failed != 200 || st.Written != 0 {
		t.Errorf("Stats() = %+v, want 200 failed", st)
	}
}

// panickingSink panics on every write.
type panickingSink struct{ memorySink }

func (s *panickingSink) Write(context.Context, []byte) error {
	panic("sink exploded")
}

// TestAsyncEmitterPanickingSink verifies a panicking sink does not kill the emitter
func TestAsyncEmitterPanickingSink(t *testing.T) {
	e := NewAsyncEmitter(&panickingSink{})
	e.Emit(Record{"a": 1})
	e.Emit(Record{"a": 2})
	closeEmitter(t, e)

	if st := e.Stats(); st.Failed != 2 {
		t.Errorf("Stats().Failed = %v, want 2", st.Failed)
	}
}

// TestAsyncEmitterEncodeFailure verifies unserializable records are skipped
func TestAsyncEmitterEncodeFailure(t *testing.T) {
	s := &memorySink{}
	e := NewAsyncEmitter(s)
	e.Emit(Record{"bad": func() {}})
	e.Emit(Record{"good": true})
	closeEmitter(t, e)

	if len(s.Lines()) != 1 {
		t.Fatalf("wrote %d lines, want 1", len(s.Lines()))
	}
	var rec map[string]any
	if err := json.Unmarshal(s.Lines()[0], &rec); err != nil || rec["good"] != true {
		t.Errorf("line = %s, want the good record", s.Lines()[0])
	}
	if st := e.Stats(); st.Failed != 1 {
		t.Errorf("Stats().Failed = %v, want 1", st.Failed)
	}
}

// TestAsyncEmitterDrainDeadline verifies Close gives up after the grace period
func TestAsyncEmitterDrainDeadline(t *testing.T) {
	s := &memorySink{block: make(chan struct{})}
	e := NewAsyncEmitter(s, WithQueueSize(10), WithWriteTimeout(0), WithDrainTimeout(50*time.Millisecond))

	for i := 0; i < 5; i++ {
		e.Emit(Record{"seq": i})
	}

	start := time.Now()
	err := e.Close(context.Background())
	if err == nil {
		t.Fatal("Close() error = nil, want drain deadline error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Close() took %v, want about 50ms", elapsed)
	}

	<-e.done
	st := e.Stats()
	if st.Written != 0 {
		t.Errorf("Stats().Written = %v, want 0", st.Written)
	}
	if st.Lost+st.Failed != 5 {
		t.Errorf("Stats() = %+v, want all 5 records lost or failed", st)
	}
	if !s.Closed() {
		t.Error("sink not closed after drain")
	}
}

// TestAsyncEmitterWriteTimeout verifies a hung write is abandoned after the write timeout
func TestAsyncEmitterWriteTimeout(t *testing.T) {
	s := &memorySink{block: make(chan struct{})}
	e := NewAsyncEmitter(s, WithWriteTimeout(20*time.Millisecond))

	e.Emit(Record{"seq": 1})
	e.Emit(Record{"seq": 2})
	waitFor(t, func() bool { return e.Stats().Failed == 2 })

	close(s.block)
	e.Emit(Record{"seq": 3})
	closeEmitter(t, e)

	if st := e.Stats(); st.Written != 1 {
		t.Errorf("Stats().Written = %v, want 1", st.Written)
	}
}

// TestAsyncEmitterEmitAfterClose verifies records emitted after Close are dropped
func TestAsyncEmitterEmitAfterClose(t *testing.T) {
	s := &memorySink{}
	e := NewAsyncEmitter(s)
	closeEmitter(t, e)

	e.Emit(Record{"late": true})

	if st := e.Stats(); st.Dropped != 1 {
		t.Errorf("Stats().Dropped = %v, want 1", st.Dropped)
	}
	if err := e.Check(context.Background()); !errors.IsPermanent(err) {
		t.Errorf("Check() after Close = %v, want permanent error", err)
	}
	// a second Close is harmless
	closeEmitter(t, e)
}

// TestAsyncEmitterDropWarning verifies queue overflow is reported once
func TestAsyncEmitterDropWarning(t *testing.T) {
	var logBuf syncBuffer
	logger := logging.NewWithWriter(&logBuf, config.LogConfig{Level: "warn"})

	s := &memorySink{block: make(chan struct{})}
	e := NewAsyncEmitter(s, WithQueueSize(2), WithDropPolicy(DropNewest), WithWriteTimeout(0), WithEmitterLogger(logger))

	for i := 0; i < 20; i++ {
		e.Emit(Record{"seq": i})
	}
	close(s.block)
	closeEmitter(t, e)

	st := e.Stats()
	if st.Dropped == 0 {
		t.Fatalf("Stats().Dropped = 0, want drops")
	}
	if st.Written+st.Dropped != 20 {
		t.Errorf("Stats() = %+v, want written+dropped = 20", st)
	}
	if n := strings.Count(logBuf.String(), "queue full"); n != 1 {
		t.Errorf("drop warning logged %d times, want once:\n%s", n, logBuf.String())
	}
}

// TestAsyncEmitterDropWarningOnClose verifies drops right before Close are
// still reported when the drain finds nothing left to write
func TestAsyncEmitterDropWarningOnClose(t *testing.T) {
	for i := 0; i < 50; i++ {
		var logBuf syncBuffer
		logger := logging.NewWithWriter(&logBuf, config.LogConfig{Level: "warn"})

		s := &memorySink{}
		e := NewAsyncEmitter(s, WithQueueSize(2), WithDropPolicy(DropNewest), WithEmitterLogger(logger))
		for j := 0; j < 20; j++ {
			e.Emit(Record{"seq": j})
		}
		closeEmitter(t, e)

		st := e.Stats()
		if st.Dropped == 0 {
			continue
		}
		if n := strings.Count(logBuf.String(), "queue full"); n != 1 {
			t.Fatalf("run %d: %d dropped, drop warning logged %d times, want once:\n%s", i, st.Dropped, n, logBuf.String())
		}
	}
}

// TestAsyncEmitterDropWarningStuckSink verifies drops are reported while the
// sink is still blocked in a write
func TestAsyncEmitterDropWarningStuckSink(t *testing.T) {
	var logBuf syncBuffer
	logger := logging.NewWithWriter(&logBuf, config.LogConfig{Level: "warn"})

	s := &memorySink{block: make(chan struct{})}
	fastCheck := func(e *AsyncEmitter) { e.dropInterval = 10 * time.Millisecond }
	e := NewAsyncEmitter(s, WithQueueSize(1), WithWriteTimeout(0), WithEmitterLogger(logger), fastCheck)

	for i := 0; i < 5; i++ {
		e.Emit(Record{"seq": i})
	}
	waitFor(t, func() bool { return strings.Contains(logBuf.String(), "queue full") })

	close(s.block)
	closeEmitter(t, e)

	if n := strings.Count(logBuf.String(), "queue full"); n != 1 {
		t.Errorf("drop warning logged %d times, want once:\n%s", n, logBuf.String())
	}
}

// TestAsyncEmitterDecoupled verifies the emitter advertises decoupled writes
func TestAsyncEmitterDecoupled(t *testing.T) {
	e := NewAsyncEmitter(&memorySink{})
	defer closeEmitter(t, e)

	var em Emitter = e
	d, ok := em.(Decoupler)
	if !ok || !d.Decoupled() {
		t.Error("AsyncEmitter should report Decoupled() = true")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 5s")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
