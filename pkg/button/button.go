// Package button debounces raw edges from a button line and delivers them
// to a callback on a consumer goroutine.
package button

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// QueueSize bounds the edges waiting for the consumer.
	QueueSize       = 8
	DefaultDebounce = 50 * time.Millisecond
)

var (
	eventsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "moodlight",
		Subsystem: "button",
		Name:      "events_accepted_total",
		Help:      "Button edges that passed the debounce window",
	})
	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodlight",
		Subsystem: "button",
		Name:      "events_dropped_total",
		Help:      "Button edges that were discarded",
	}, []string{"reason"})
)

// Event is an accepted edge.
type Event struct {
	Level int
	At    time.Time
}

type Options struct {
	Debounce time.Duration
	Callback func(Event)
}

// Button filters edges. Edge may be called from the line's event goroutine;
// the callback runs on the goroutine calling Run.
type Button struct {
	debounce atomic.Int64
	level    atomic.Int32
	callback func(Event)

	mu       sync.Mutex
	hasLast  bool
	lastEdge time.Time

	queue chan Event
}

func New(opts Options) *Button {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	b := &Button{
		callback: opts.Callback,
		queue:    make(chan Event, QueueSize),
	}
	b.debounce.Store(int64(opts.Debounce))
	b.level.Store(-1)
	return b
}

// Edge reports a level change at the given time. Edges closer than the
// debounce window to the last accepted edge are dropped, as are edges that
// find the queue full. It never blocks.
func (b *Button) Edge(level int, at time.Time) bool {
	b.mu.Lock()
	if b.hasLast && at.Sub(b.lastEdge) < time.Duration(b.debounce.Load()) {
		b.mu.Unlock()
		eventsDropped.WithLabelValues("debounce").Inc()
		return false
	}
	b.hasLast = true
	b.lastEdge = at
	b.mu.Unlock()

	select {
	case b.queue <- Event{Level: level, At: at}:
		eventsAccepted.Inc()
		return true
	default:
		eventsDropped.WithLabelValues("queue_full").Inc()
		return false
	}
}

// Run delivers queued events until ctx is cancelled.
func (b *Button) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-b.queue:
			b.level.Store(int32(evt.Level))
			if b.callback != nil {
				b.callback(evt)
			}
		}
	}
}

// Level is the level of the last delivered event, the seeded level, or -1.
func (b *Button) Level() int {
	return int(b.level.Load())
}

// Seed sets the initial level without notifying the callback.
func (b *Button) Seed(level int) {
	b.level.Store(int32(level))
}

func (b *Button) SetDebounce(d time.Duration) {
	b.debounce.Store(int64(d))
}
