package flowgraph

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/metricz"
)

// edgeStallWarnInterval is how often a blocked Push re-emits
// SignalEdgeBlocked while it keeps waiting, so a stuck consumer shows up
// repeatedly in signal output rather than once at the start of a long
// stall.
const edgeStallWarnInterval = 5 * time.Second

// Edge metrics, grounded in the teacher's per-connector metricz.Registry
// pattern (see handle.go), scoped here per edge instance rather than
// globally.
const (
	EdgePushedTotal  = metricz.Key("edge.pushed.total")
	EdgePoppedTotal  = metricz.Key("edge.popped.total")
	EdgeBlockedTotal = metricz.Key("edge.blocked.total")
)

type edgeItem struct {
	stamp Stamp
	datum Datum
}

// Edge is a bounded, blocking, single-producer/single-consumer FIFO channel
// carrying (Stamp, Datum) pairs between one output port and one input port.
// A capacity of 0 means unbounded.
type Edge struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	capacity int
	blocking bool
	down     portAddr

	items              []edgeItem
	downstreamComplete bool // set by MarkDownstreamComplete: later pushes fail
	completeSent       bool // a `complete` datum was pushed: it is the last accepted item
	upstreamClosed     bool // set by CloseUpstream: pop drains then returns synthetic complete

	metrics *metricz.Registry
	clock   clockz.Clock
}

// NewEdge creates an edge with the given capacity (0 = unbounded), blocking
// policy, and downstream address (used only for diagnostics/signals).
func NewEdge(capacity int, blocking bool, downProcess, downPort string) *Edge {
	e := &Edge{
		capacity: capacity,
		blocking: blocking,
		down:     portAddr{process: downProcess, port: downPort},
		metrics:  metricz.New(),
		clock:    clockz.RealClock,
	}
	e.notEmpty = sync.NewCond(&e.mu)
	e.notFull = sync.NewCond(&e.mu)
	e.metrics.Counter(EdgePushedTotal)
	e.metrics.Counter(EdgePoppedTotal)
	e.metrics.Counter(EdgeBlockedTotal)
	return e
}

// WithClock overrides the clock that schedules a blocked Push's periodic
// re-warnings and measures their elapsed time (tests).
func (e *Edge) WithClock(clock clockz.Clock) *Edge {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = clock
	return e
}

func (e *Edge) full() bool {
	return e.capacity > 0 && len(e.items) >= e.capacity
}

// Push appends (stamp, datum) to the edge. If bounded, full, and blocking,
// the caller suspends until space frees or the edge closes; if full and
// non-blocking, it fails with KindEdgeFull. A `complete` datum is the last
// item Push accepts; any push after MarkDownstreamComplete fails with
// KindEdgeComplete.
func (e *Edge) Push(ctx context.Context, stamp Stamp, datum Datum) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.downstreamComplete || e.completeSent {
		return newErr(KindEdgeComplete, e.down.String())
	}

	if e.full() {
		if !e.blocking {
			return newErr(KindEdgeFull, e.down.String())
		}
		since := e.clock.Now()
		capitan.Warn(ctx, SignalEdgeBlocked,
			FieldPeer.Field(e.down.process),
			FieldPeerPort.Field(e.down.port),
			FieldCapacity.Field(e.capacity),
			FieldElapsedSeconds.Field(0),
		)
		e.metrics.Counter(EdgeBlockedTotal).Inc()

		stop := e.watchBlocked(ctx, since)
		defer stop()
		for e.full() && !e.downstreamComplete && ctx.Err() == nil {
			e.notFull.Wait()
		}
		if e.downstreamComplete {
			return newErr(KindEdgeComplete, e.down.String())
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	e.items = append(e.items, edgeItem{stamp: stamp, datum: datum})
	if datum.Kind() == KindComplete {
		e.completeSent = true
	}
	e.metrics.Counter(EdgePushedTotal).Inc()
	e.notEmpty.Signal()
	return nil
}

// watchContext wakes any condition wait when ctx is canceled. It returns a
// stop function that must be called (via defer) to release the watcher.
func (e *Edge) watchContext(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			e.mu.Lock()
			e.notFull.Broadcast()
			e.notEmpty.Broadcast()
			e.mu.Unlock()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// watchBlocked wakes a blocked Push when ctx is canceled, and otherwise
// re-emits SignalEdgeBlocked on e.clock's schedule for as long as the edge
// remains full, carrying the elapsed blocked duration measured via
// e.clock.Since. It is the same clock-driven periodic-wait idiom pipz's
// ratelimiter.go/backoff.go use (select on clock.After in place of a real
// sleep), so tests can drive a stall deterministically with a fake clock
// instead of waiting on the wall clock.
func (e *Edge) watchBlocked(ctx context.Context, since time.Time) (stop func()) {
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ctx.Done():
				e.mu.Lock()
				e.notFull.Broadcast()
				e.notEmpty.Broadcast()
				e.mu.Unlock()
				return
			case <-e.clock.After(edgeStallWarnInterval):
				e.mu.Lock()
				stillBlocked := e.full() && !e.downstreamComplete
				e.mu.Unlock()
				if !stillBlocked {
					return
				}
				capitan.Warn(ctx, SignalEdgeBlocked,
					FieldPeer.Field(e.down.process),
					FieldPeerPort.Field(e.down.port),
					FieldCapacity.Field(e.capacity),
					FieldElapsedSeconds.Field(e.clock.Since(since).Seconds()),
				)
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

// Pop removes and returns the oldest (stamp, datum) pair, suspending until
// one is available or the upstream side is closed. Once closed and
// drained, Pop returns a synthetic complete datum instead of blocking
// forever.
func (e *Edge) Pop(ctx context.Context) (Stamp, Datum, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stop := e.watchContext(ctx)
	defer stop()

	for len(e.items) == 0 && !e.upstreamClosed && ctx.Err() == nil {
		e.notEmpty.Wait()
	}
	if ctx.Err() != nil {
		return Stamp{}, Datum{}, ctx.Err()
	}
	if len(e.items) == 0 {
		return Stamp{}, CompleteDatum(), nil
	}

	item := e.items[0]
	e.items = e.items[1:]
	e.metrics.Counter(EdgePoppedTotal).Inc()
	e.notFull.Signal()
	return item.stamp, item.datum, nil
}

// Peek non-destructively inspects the offset-th pending item (0 = next to
// pop). Fails with KindEdgeEmpty if fewer items are present.
func (e *Edge) Peek(offset int) (Stamp, Datum, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if offset < 0 || offset >= len(e.items) {
		return Stamp{}, Datum{}, newErr(KindEdgeEmpty, e.down.String())
	}
	item := e.items[offset]
	return item.stamp, item.datum, nil
}

// TryPush is the non-blocking form of Push: it fails immediately with
// KindEdgeFull instead of suspending.
func (e *Edge) TryPush(stamp Stamp, datum Datum) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.downstreamComplete || e.completeSent {
		return newErr(KindEdgeComplete, e.down.String())
	}
	if e.full() {
		return newErr(KindEdgeFull, e.down.String())
	}
	e.items = append(e.items, edgeItem{stamp: stamp, datum: datum})
	if datum.Kind() == KindComplete {
		e.completeSent = true
	}
	e.metrics.Counter(EdgePushedTotal).Inc()
	e.notEmpty.Signal()
	return nil
}

// TryPop is the non-blocking form of Pop: it fails immediately with
// KindEdgeEmpty instead of suspending.
func (e *Edge) TryPop() (Stamp, Datum, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.items) == 0 {
		if e.upstreamClosed {
			return Stamp{}, CompleteDatum(), nil
		}
		return Stamp{}, Datum{}, newErr(KindEdgeEmpty, e.down.String())
	}
	item := e.items[0]
	e.items = e.items[1:]
	e.metrics.Counter(EdgePoppedTotal).Inc()
	e.notFull.Signal()
	return item.stamp, item.datum, nil
}

// MarkDownstreamComplete signals that the downstream reader will consume no
// more items. Any later Push fails with KindEdgeComplete. Pending items
// remain poppable (they are drained, not discarded).
func (e *Edge) MarkDownstreamComplete() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.downstreamComplete = true
	e.notFull.Broadcast()
}

// CloseUpstream signals that the producer side is finished. Pending items
// drain normally; once empty, Pop returns a synthetic complete datum
// instead of blocking. Scheduler shutdown calls this on every edge so
// blocked poppers wake and see completion.
func (e *Edge) CloseUpstream() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.upstreamClosed = true
	e.notEmpty.Broadcast()
}

// Len reports the number of pending items.
func (e *Edge) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.items)
}

// Capacity returns the edge's configured capacity (0 = unbounded).
func (e *Edge) Capacity() int {
	return e.capacity
}

// Blocking reports whether a full edge suspends pushers instead of failing.
func (e *Edge) Blocking() bool {
	return e.blocking
}

// Metrics returns the edge's metrics registry.
func (e *Edge) Metrics() *metricz.Registry {
	return e.metrics
}
