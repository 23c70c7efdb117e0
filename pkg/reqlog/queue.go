package reqlog

import (
	"strings"
	"sync/atomic"

	"github.com/Combine-Capital/reqlog/pkg/config"
	"github.com/Combine-Capital/reqlog/pkg/errors"
)

// DropPolicy decides which record is discarded when the queue is full.
type DropPolicy int

const (
	// DropOldest evicts the longest-waiting record to make room for the new one.
	DropOldest DropPolicy = iota
	// DropNewest discards the incoming record.
	DropNewest
)

func (p DropPolicy) String() string {
	if p == DropNewest {
		return "newest"
	}
	return "oldest"
}

// ParseDropPolicy parses "oldest" or "newest".
func ParseDropPolicy(s string) (DropPolicy, error) {
	switch strings.ToLower(s) {
	case "oldest", "":
		return DropOldest, nil
	case "newest":
		return DropNewest, nil
	default:
		return DropOldest, errors.NewInvalidInput("drop_policy", "must be oldest or newest, got "+s)
	}
}

// evictAttempts bounds how often Submit retries after evicting under contention.
const evictAttempts = 4

// Queue is a bounded FIFO between request handlers and the emitter.
// Submit never blocks; the emitter is the only receiver.
type Queue struct {
	ch     chan Record
	policy DropPolicy
	closed atomic.Bool

	submitted atomic.Uint64
	dropped   atomic.Uint64
}

// NewQueue creates a queue holding at most capacity records.
// A non-positive capacity means the default of 1000.
func NewQueue(capacity int, policy DropPolicy) *Queue {
	if capacity <= 0 {
		capacity = config.DefaultQueueSize
	}
	return &Queue{
		ch:     make(chan Record, capacity),
		policy: policy,
	}
}

// Submit enqueues rec without blocking and reports whether rec was accepted.
// When the queue is full one record is dropped according to the policy.
// After close every record is dropped.
func (q *Queue) Submit(rec Record) bool {
	if q.closed.Load() {
		q.dropped.Add(1)
		return false
	}
	q.submitted.Add(1)

	for attempt := 0; ; attempt++ {
		select {
		case q.ch <- rec:
			return true
		default:
		}

		if q.policy == DropNewest || attempt == evictAttempts {
			q.dropped.Add(1)
			return false
		}

		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
			// the emitter took one meanwhile
		}
	}
}

// Len returns the number of queued records.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}

// Submitted returns how many records were offered while the queue was open.
func (q *Queue) Submitted() uint64 {
	return q.submitted.Load()
}

// Dropped returns how many records were discarded.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Policy returns the drop policy.
func (q *Queue) Policy() DropPolicy {
	return q.policy
}

// close makes further submissions drop. The channel itself stays open since
// handlers may still be submitting.
func (q *Queue) close() {
	q.closed.Store(true)
}
