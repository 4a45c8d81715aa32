// Package ledengine runs the strip's animations on a single background loop.
package ledengine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moodlight-community/moodlight-agent/pkg/clock"
	"github.com/moodlight-community/moodlight-agent/pkg/hal/led"
	"github.com/moodlight-community/moodlight-agent/pkg/log"
	"github.com/moodlight-community/moodlight-agent/pkg/pixel"
	"go.uber.org/zap"
)

const DefaultIdleInterval = 100 * time.Millisecond

// ModeKind selects one of the single-colour modes for StartMode.
type ModeKind string

const (
	ModeNone    ModeKind = "none"
	ModeStatic  ModeKind = "static"
	ModeBreath  ModeKind = "breath"
	ModePulse   ModeKind = "pulse"
	ModeRainbow ModeKind = "rainbow"
)

// Options configures an Engine.
type Options struct {
	Strip *pixel.Strip
	// Clock defaults to the system clock.
	Clock clock.Clock
	// IdleInterval is how often the loop wakes while no animation runs.
	IdleInterval time.Duration
	// Manual disables the background loop; the caller drives Step.
	Manual bool
}

// Engine owns the current animation of one strip. Mode changes are
// fire-and-forget: they replace the current animation and wake the loop,
// which calls the new animation's Start on its next tick.
type Engine struct {
	ctx   context.Context
	strip *pixel.Strip
	clock clock.Clock
	idle  time.Duration

	manual bool

	mu      sync.Mutex
	mode    Animation
	started bool
	gen     uint64
	cancel  context.CancelFunc
	done    chan struct{}

	wake   chan struct{}
	reshow atomic.Bool
}

// New creates an idle engine. ctx bounds the lifetime of every loop the
// engine starts and carries its logger.
func New(ctx context.Context, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = DefaultIdleInterval
	}

	e := &Engine{
		ctx:     ctx,
		strip:   opts.Strip,
		clock:   opts.Clock,
		idle:    opts.IdleInterval,
		manual:  opts.Manual,
		started: true,
		wake:    make(chan struct{}, 1),
	}
	e.mode = None{Interval: e.idle}
	setActiveMode(e.mode.Name())
	return e
}

// Start replaces the current animation with the given one. The previous
// animation is dropped together with any fade snapshot it held, and the
// loop is started if needed.
func (e *Engine) Start(a Animation) {
	if a == nil {
		a = None{Interval: e.idle}
	}

	e.mu.Lock()
	e.mode = a
	e.started = false
	e.gen++
	e.ensureLoopLocked()
	e.mu.Unlock()

	setActiveMode(a.Name())
	e.poke()
}

// StartMode starts one of the single-colour modes. Unknown kinds fall back
// to None.
func (e *Engine) StartMode(kind ModeKind, c led.Color) {
	e.Start(NewMode(kind, c))
}

// NewMode builds the animation for kind with base colour c.
func NewMode(kind ModeKind, c led.Color) Animation {
	switch kind {
	case ModeStatic:
		return NewStaticPattern(c)
	case ModeBreath:
		return &Breath{Color: c}
	case ModePulse:
		return &Pulse{Color: c}
	case ModeRainbow:
		return &Rainbow{}
	default:
		return None{}
	}
}

// FadeTo fades from whatever the strip shows when the fade begins to c over d.
func (e *Engine) FadeTo(c led.Color, d time.Duration) {
	e.Start(NewFade(c, d))
}

// RainbowSmoothStart cycles the hue once per period.
func (e *Engine) RainbowSmoothStart(period time.Duration, gradient bool, saturation, value uint8) {
	e.Start(&RainbowSmooth{
		Period:     period,
		Gradient:   gradient,
		Saturation: saturation,
		Value:      value,
	})
}

// Stop ends the background loop and resets the mode to None. Pixels already
// written stay as they are. A later Start launches a new loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.mode = None{Interval: e.idle}
	e.started = true
	e.gen++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.mu.Unlock()

	setActiveMode(ModeNone)
}

// Wait blocks until the most recent loop has exited.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()

	if done != nil {
		<-done
	}
}

// SetBrightnessCap changes the cap applied when frames are shown. The
// current frame is shown again with the new cap on the next tick.
// SetBrightnessCap rescales the strip output. Without a loop to pick up
// the change, the current frame is re-sent right away.
func (e *Engine) SetBrightnessCap(level uint8) {
	e.strip.SetBrightnessCap(level)

	e.mu.Lock()
	looping := e.manual || e.cancel != nil
	e.mu.Unlock()

	if !looping {
		e.show(e.ctx)
		return
	}
	e.reshow.Store(true)
	e.poke()
}

func (e *Engine) BrightnessCap() uint8 {
	return e.strip.BrightnessCap()
}

// Mode returns the name of the current animation.
func (e *Engine) Mode() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode.Name()
}

// Running reports whether a background loop is alive.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done == nil {
		return false
	}
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

// Strip returns the strip the engine renders to.
func (e *Engine) Strip() *pixel.Strip {
	return e.strip
}

// Step renders a single frame at now and returns the delay until the next.
func (e *Engine) Step(ctx context.Context, now time.Time) time.Duration {
	e.mu.Lock()
	mode, gen, needStart := e.mode, e.gen, !e.started
	e.started = true
	e.mu.Unlock()

	engineTicks.Inc()

	if isIdle(mode) {
		next := mode.NextStep(nil, now)
		if e.reshow.Swap(false) {
			e.show(ctx)
		}
		return next
	}

	var next time.Duration
	e.strip.Update(func(b *pixel.Buffer) {
		if needStart {
			mode.Start(b, now)
		}
		next = mode.NextStep(b, now)
	})
	e.reshow.Store(false)
	e.show(ctx)

	if next > 0 {
		return next
	}

	// Finished. Only revert if nobody switched modes in the meantime.
	e.mu.Lock()
	if e.gen == gen {
		e.mode = None{Interval: e.idle}
		e.gen++
		setActiveMode(ModeNone)
	}
	e.mu.Unlock()

	log.FromContext(ctx).Debug("animation finished", zap.String("mode", mode.Name()))
	return e.idle
}

func (e *Engine) show(ctx context.Context) {
	if err := e.strip.Show(ctx); err != nil && ctx.Err() == nil {
		renderErrors.Inc()
		log.FromContext(ctx).WithError(err).Warn("failed to show frame")
	}
}

// ensureLoopLocked must be called with mu held.
func (e *Engine) ensureLoopLocked() {
	if e.manual || e.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(e.ctx)
	done := make(chan struct{})
	e.cancel, e.done = cancel, done

	go e.run(ctx, done)
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		e.mu.Lock()
		if e.done == done {
			e.cancel = nil
		}
		e.mu.Unlock()
	}()

	log.FromContext(ctx).Debug("animation loop started")
	defer log.FromContext(ctx).Debug("animation loop stopped")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.wake:
		case <-timer.C:
		}

		if ctx.Err() != nil {
			return
		}
		timer.Reset(e.Step(ctx, e.clock.Now()))
	}
}

func isIdle(a Animation) bool {
	switch a.(type) {
	case None, *None:
		return true
	}
	return false
}

func (e *Engine) poke() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}
