// Package timer provides a small pool of one-shot countdown timers.
package timer

import (
	"errors"
	"sync"
	"time"

	"github.com/moodlight-community/moodlight-agent/pkg/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Capacity is the number of timers that can run at once.
const Capacity = 8

var ErrPoolExhausted = errors.New("no free timer slot")

var timersActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "moodlight",
	Subsystem: "timer",
	Name:      "active",
	Help:      "Timers currently counting down",
})

type slot struct {
	inUse    bool
	gen      uint64
	deadline time.Time
	timer    clock.Timer
}

// Pool hands out timer ids 0..Capacity-1. Timers count down on the pool's
// clock. Each timer fires once, frees its
// slot and then runs its callback on a new goroutine. A callback whose timer
// was cancelled before it fired does not run; one that already fired may
// still be running when Cancel returns false.
type Pool struct {
	mu    sync.Mutex
	clock clock.Clock
	slots [Capacity]slot
}

func NewPool(c clock.Clock) *Pool {
	if c == nil {
		c = clock.System{}
	}
	return &Pool{clock: c}
}

// Start arms a timer for d and returns its id, or -1 and ErrPoolExhausted
// when all slots are busy. The first free slot wins.
func (p *Pool) Start(d time.Duration, cb func()) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id := range p.slots {
		s := &p.slots[id]
		if s.inUse {
			continue
		}

		s.inUse = true
		s.gen++
		s.deadline = p.clock.Now().Add(d)
		gen := s.gen
		s.timer = p.clock.AfterFunc(d, func() { p.fire(id, gen, cb) })

		timersActive.Inc()
		return id, nil
	}
	return -1, ErrPoolExhausted
}

func (p *Pool) fire(id int, gen uint64, cb func()) {
	p.mu.Lock()
	s := &p.slots[id]
	if !s.inUse || s.gen != gen {
		p.mu.Unlock()
		return
	}
	p.releaseLocked(s)
	p.mu.Unlock()

	if cb != nil {
		go cb()
	}
}

// Cancel stops timer id. It returns false if id is invalid, has already
// fired, or was already cancelled.
func (p *Pool) Cancel(id int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.slotLocked(id)
	if s == nil {
		return false
	}
	s.timer.Stop()
	p.releaseLocked(s)
	return true
}

// Remaining returns the time left on timer id, or zero if it is invalid or
// no longer running.
func (p *Pool) Remaining(id int) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.slotLocked(id)
	if s == nil {
		return 0
	}
	if left := s.deadline.Sub(p.clock.Now()); left > 0 {
		return left
	}
	return 0
}

// Active returns the number of running timers.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, s := range p.slots {
		if s.inUse {
			n++
		}
	}
	return n
}

// CancelAll stops every running timer.
func (p *Pool) CancelAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.slots {
		if s := &p.slots[i]; s.inUse {
			s.timer.Stop()
			p.releaseLocked(s)
		}
	}
}

func (p *Pool) slotLocked(id int) *slot {
	if id < 0 || id >= Capacity || !p.slots[id].inUse {
		return nil
	}
	return &p.slots[id]
}

func (p *Pool) releaseLocked(s *slot) {
	s.inUse = false
	s.timer = nil
	timersActive.Dec()
}
