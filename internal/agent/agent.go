package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	lightapiv1 "github.com/moodlight-community/moodlight-agent/api/lightapi/v1"
	"github.com/moodlight-community/moodlight-agent/pkg/alarm"
	"github.com/moodlight-community/moodlight-agent/pkg/button"
	"github.com/moodlight-community/moodlight-agent/pkg/clock"
	"github.com/moodlight-community/moodlight-agent/pkg/dimmer"
	"github.com/moodlight-community/moodlight-agent/pkg/hal"
	"github.com/moodlight-community/moodlight-agent/pkg/hal/led"
	"github.com/moodlight-community/moodlight-agent/pkg/ledengine"
	"github.com/moodlight-community/moodlight-agent/pkg/log"
	"github.com/moodlight-community/moodlight-agent/pkg/pixel"
	"github.com/moodlight-community/moodlight-agent/pkg/pot"
	"github.com/moodlight-community/moodlight-agent/pkg/scene"
	"github.com/moodlight-community/moodlight-agent/pkg/store"
	"github.com/moodlight-community/moodlight-agent/pkg/timer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sierrasoftworks/humane-errors-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// eventQueueSize bounds the events waiting for the event loop.
const eventQueueSize = 10

// bootColor is shown while the agent starts up.
var bootColor = led.RGBW(0, 0, 10, 0)

var (
	// eventCounter counts the events handled by the agent
	eventCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodlight",
		Subsystem: "agent",
		Name:      "events_total",
		Help:      "Moodlight agent internal event handler statistics (handled events)",
	}, []string{"type"})

	// droppedEventCounter counts the events dropped because the event loop was behind
	droppedEventCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodlight",
		Subsystem: "agent",
		Name:      "events_dropped_total",
		Help:      "Moodlight agent internal event handler statistics (dropped events)",
	}, []string{"type"})
)

// MoodlightAgent runs the light: it owns the strip, its peripherals and the
// control API.
type MoodlightAgent interface {
	// RunAsync starts the agent in a goroutine and cancels ctx if it fails.
	RunAsync(ctx context.Context, cancel context.CancelCauseFunc)
	// Run runs all subsystems until ctx is done.
	Run(ctx context.Context) error
	// GracefulStop stops the API, turns the strip off and releases the hardware.
	GracefulStop(ctx context.Context) error
	// EmitEvent queues an event, blocking while the queue is full.
	EmitEvent(ctx context.Context, event Event) error

	SetScene(ctx context.Context, sc scene.Scene) error
	Stop(ctx context.Context)
	FadeTo(ctx context.Context, c led.Color, d time.Duration)
	RainbowSmooth(ctx context.Context, req lightapiv1.RainbowRequest)
	// SetBrightnessCap pins the cap until ResetBrightnessCap.
	SetBrightnessCap(ctx context.Context, level uint8)
	// ResetBrightnessCap hands the cap back to the knob.
	ResetBrightnessCap(ctx context.Context)
	// StartSleepTimer fades the strip out over fade once after has passed.
	StartSleepTimer(ctx context.Context, after, fade time.Duration) (int, error)
	CancelSleepTimer(ctx context.Context, id int) bool
	// SetAlarm installs or replaces alarm id and persists the table.
	SetAlarm(ctx context.Context, id string, at alarm.Time) error
	// RemoveAlarm deletes alarm id and reports whether it existed.
	RemoveAlarm(ctx context.Context, id string) bool
	Status(ctx context.Context) lightapiv1.Status
}

type moodlightAgent struct {
	config     AgentConfig
	clock      clock.Clock
	timeSource alarm.TimeSource
	tx         hal.Transmitter
	adc        pot.ADC
	store      store.BlobStore

	strip   *pixel.Strip
	engine  *ledengine.Engine
	timers  *timer.Pool
	alarms  *alarm.Manager
	button  *button.Button
	edges   *hal.GpiodButton
	knob    *pot.Sampler
	dimmer  dimmer.Dimmer
	scenes  *scene.Cycler
	api     *LightGrpcService
	metrics *http.Server

	knobPercent atomic.Uint32
	eventChan   chan Event

	mu        sync.Mutex
	wakeTimer int
}

// NewMoodlightAgent builds the agent and every peripheral the configuration
// enables, then shows the boot frame and starts the boot animation.
// Peripherals passed as options are used instead.
func NewMoodlightAgent(ctx context.Context, config AgentConfig, opts ...AgentOption) (MoodlightAgent, error) {
	a := &moodlightAgent{
		config:    config,
		eventChan: make(chan Event, eventQueueSize),
		wakeTimer: -1,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.clock == nil {
		a.clock = clock.System{}
	}
	if a.timeSource == nil {
		a.timeSource = alarm.SystemTime{}
	}
	a.knobPercent.Store(100)

	if err := a.setupStrip(ctx); err != nil {
		return nil, err
	}

	d, herr := dimmer.NewLinearDimmer(config.Dimmer)
	if herr != nil {
		return nil, errors.Join(herr, a.closeHardware())
	}
	a.dimmer = d

	if err := a.setupAlarms(ctx); err != nil {
		return nil, errors.Join(err, a.closeHardware())
	}

	scenes, err := a.loadScenes()
	if err != nil {
		return nil, errors.Join(err, a.closeHardware())
	}
	a.scenes = scene.NewCycler(scenes)

	if err := a.setupButton(ctx); err != nil {
		return nil, errors.Join(err, a.closeHardware())
	}
	a.setupKnob(ctx)

	listenMode, herr := ListenModeFromString(config.Listen.GrpcListenMode)
	if herr != nil {
		return nil, errors.Join(herr, a.closeHardware())
	}
	a.api = NewGrpcApiServer(ctx,
		WithMoodlightAgent(a),
		WithListenAddr(config.Listen.Grpc),
		WithListenMode(listenMode),
	)

	if err := a.boot(ctx); err != nil {
		return nil, errors.Join(err, a.closeHardware())
	}

	if config.Listen.Metrics != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		a.metrics = &http.Server{
			Addr:              config.Listen.Metrics,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return a, nil
}

// boot shows the boot frame and starts the boot animation. It runs before
// the agent is handed out so no later mode request can be overwritten by it.
func (a *moodlightAgent) boot(ctx context.Context) error {
	a.strip.Fill(bootColor)
	if err := a.strip.Show(ctx); err != nil {
		return humane.Wrap(err, "failed to show the boot frame",
			"ensure the LED strip is connected and the transmitter settings match your hardware",
		)
	}
	a.engine.StartMode(ledengine.ModeBreath, a.config.Engine.BootColor)
	return nil
}

func (a *moodlightAgent) setupStrip(ctx context.Context) error {
	order, err := pixel.ParseOrder(a.config.Strip.Order)
	if err != nil {
		return humane.Wrap(err, "invalid strip.order", "set strip.order to grb or grbw")
	}

	if a.tx == nil {
		opts := a.config.Strip.TransmitterOpts
		opts.BytesPerPixel = order.BytesPerPixel()
		tx, herr := hal.NewTransmitter(ctx, opts)
		if herr != nil {
			return herr
		}
		a.tx = tx
	}

	a.strip, err = pixel.NewStrip(ctx, a.tx, a.config.Strip.Count, order)
	if err != nil {
		return errors.Join(err, a.tx.Close())
	}

	a.engine = ledengine.New(ctx, ledengine.Options{
		Strip:        a.strip,
		Clock:        a.clock,
		IdleInterval: a.config.Engine.IdleInterval,
	})
	a.timers = timer.NewPool(a.clock)
	return nil
}

// setupAlarms restores the persisted alarm table, merges the configured
// alarms into it and writes it back.
func (a *moodlightAgent) setupAlarms(ctx context.Context) error {
	if a.store == nil {
		if a.config.StorePath == "" {
			a.store = store.NewMemory()
		} else {
			fs, err := store.Open(a.config.StorePath)
			if err != nil {
				return humane.Wrap(err, "failed to open the agent store",
					"ensure the directory of store_path exists and is writable by the agent",
				)
			}
			a.store = fs
		}
	}

	a.alarms = alarm.New(ctx, alarm.Options{
		Store:      a.store,
		TimeSource: a.timeSource,
	})
	if err := a.alarms.Load(); err != nil {
		log.FromContext(ctx).WithError(err).Warn("Discarding unreadable alarm table")
	}

	for _, cfg := range a.config.Alarms {
		id := cfg.ID
		if err := a.alarms.Set(id, cfg.Time, a.alarmCallback(ctx, id)); err != nil {
			return humane.Wrap(err, fmt.Sprintf("failed to install alarm %q", id),
				fmt.Sprintf("at most %d alarms can be active, including alarms restored from the store", alarm.Capacity),
			)
		}
	}
	a.alarms.Bind(func(id string) { a.alarmCallback(ctx, id)() })

	return a.alarms.Save()
}

func (a *moodlightAgent) alarmCallback(ctx context.Context, id string) func() {
	return func() { a.emit(ctx, Event{Kind: AlarmEvent, AlarmID: id}) }
}

func (a *moodlightAgent) loadScenes() (*scene.File, error) {
	if a.config.ScenesFile == "" {
		return scene.Default(), nil
	}

	scenes, err := scene.Load(a.config.ScenesFile)
	if err != nil {
		return nil, humane.Wrap(err, "failed to load scenes",
			"fix the scene file or remove it to use the built-in scenes",
		)
	}
	return scenes, nil
}

func (a *moodlightAgent) setupButton(ctx context.Context) error {
	if !a.config.Button.Enabled {
		return nil
	}

	a.button = button.New(button.Options{
		Debounce: a.config.Button.Debounce,
		Callback: func(evt button.Event) {
			if evt.Level == 1 {
				a.emit(ctx, Event{Kind: ButtonPressEvent})
			}
		},
	})

	edges, err := hal.NewGpiodButton(ctx, hal.ButtonOpts{
		Chip:      a.config.Button.Chip,
		Line:      a.config.Button.Line,
		ActiveLow: a.config.Button.ActiveLow,
	}, a.button, a.clock.Now)
	if err != nil {
		return humane.Wrap(err, "failed to set up the button",
			"check button.chip and button.line, or disable the button with button.enabled=false",
		)
	}
	a.edges = edges

	if level, err := edges.Level(); err == nil {
		a.button.Seed(level)
	}
	return nil
}

func (a *moodlightAgent) setupKnob(ctx context.Context) {
	if a.adc == nil {
		if !a.config.Pot.Enabled {
			return
		}
		a.adc = hal.IIOADC{Path: a.config.Pot.Path}
	}

	a.knob = pot.New(a.adc, pot.Options{
		Period:    a.config.Pot.Period,
		Threshold: a.config.Pot.Threshold,
		Smoothing: a.config.Pot.Smoothing,
		Callback: func(_ uint16, percent uint8) {
			a.emit(ctx, Event{Kind: KnobEvent, Percent: percent})
		},
	})
}

// RunAsync starts the agent in a separate goroutine and handles errors, allowing cancellation through the provided context.
func (a *moodlightAgent) RunAsync(ctx context.Context, cancel context.CancelCauseFunc) {
	go func() {
		log.FromContext(ctx).Info("Starting agent")
		err := a.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.FromContext(ctx).Error("Failed to run agent", zap.Error(err))
			cancel(err)
		}
	}()
}

// Run runs every subsystem until ctx is cancelled or one of them fails.
func (a *moodlightAgent) Run(origCtx context.Context) error {
	log.FromContext(origCtx).Info("Starting moodlight agent")

	g, ctx := errgroup.WithContext(origCtx)

	g.Go(func() error { return a.runEventHandler(ctx) })
	g.Go(func() error { return a.alarms.Run(ctx) })

	if a.button != nil {
		log.FromContext(ctx).Info("Starting button handler")
		g.Go(func() error { return a.button.Run(ctx) })
	}
	if a.knob != nil {
		log.FromContext(ctx).Info("Starting potentiometer sampler")
		g.Go(func() error { return a.knob.Run(ctx) })
	}

	g.Go(func() error {
		if err := a.api.Serve(ctx); err != nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.api.GracefulStop()
		return nil
	})

	if a.metrics != nil {
		g.Go(func() error {
			log.FromContext(ctx).Info("Starting metrics server", zap.String("address", a.metrics.Addr))
			if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return humane.Wrap(err, "failed to start metrics server",
					"ensure listen.metrics is not bound by another process",
				)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			return a.metrics.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// GracefulStop stops the gRPC server, ensuring all in-progress RPCs are
// completed, then turns the strip off and releases the hardware.
func (a *moodlightAgent) GracefulStop(ctx context.Context) error {
	a.api.GracefulStop()

	log.FromContext(ctx).Info("Exiting, turning the strip off")
	a.timers.CancelAll()
	a.engine.Stop()
	a.engine.Wait()

	clearErr := a.strip.Clear(ctx)
	if clearErr != nil {
		log.FromContext(ctx).Error("Failed to turn the strip off", zap.Error(clearErr))
	}

	return errors.Join(clearErr, a.alarms.Save(), a.closeHardware())
}

func (a *moodlightAgent) closeHardware() error {
	var edgesErr error
	if a.edges != nil {
		edgesErr = a.edges.Close()
	}
	return errors.Join(edgesErr, a.tx.Close())
}

// EmitEvent dispatches an event to the event handler
func (a *moodlightAgent) EmitEvent(ctx context.Context, event Event) error {
	select {
	case a.eventChan <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// emit queues an event without blocking; peripherals and timers call it
// from their own goroutines.
func (a *moodlightAgent) emit(ctx context.Context, event Event) {
	select {
	case a.eventChan <- event:
	default:
		log.FromContext(ctx).Warn("Event dropped due to backlog", zap.Stringer("event", event))
		droppedEventCounter.WithLabelValues(event.String()).Inc()
	}
}

func (a *moodlightAgent) SetScene(ctx context.Context, sc scene.Scene) error {
	anim, err := sc.Animation()
	if err != nil {
		return err
	}

	log.FromContext(ctx).Info("Switching scene", zap.String("scene", sc.Name), zap.String("mode", string(sc.Mode)))
	a.engine.Start(anim)
	return nil
}

func (a *moodlightAgent) Stop(context.Context) {
	a.engine.Stop()
}

func (a *moodlightAgent) FadeTo(_ context.Context, c led.Color, d time.Duration) {
	a.engine.FadeTo(c, d)
}

func (a *moodlightAgent) RainbowSmooth(_ context.Context, req lightapiv1.RainbowRequest) {
	a.engine.RainbowSmoothStart(req.Period, req.Gradient, req.Saturation, req.Value)
}

func (a *moodlightAgent) SetBrightnessCap(_ context.Context, level uint8) {
	a.dimmer.Override(&dimmer.OverrideOpts{Level: level})
	a.engine.SetBrightnessCap(level)
}

func (a *moodlightAgent) ResetBrightnessCap(context.Context) {
	a.dimmer.Override(nil)
	a.engine.SetBrightnessCap(a.dimmer.Level(uint8(a.knobPercent.Load())))
}

func (a *moodlightAgent) StartSleepTimer(ctx context.Context, after, fade time.Duration) (int, error) {
	id, err := a.timers.Start(after, func() {
		a.emit(ctx, Event{Kind: SleepTimerEvent, Fade: fade})
	})
	if err == nil {
		log.FromContext(ctx).Info("Sleep timer armed", zap.Int("id", id), zap.Duration("after", after))
	}
	return id, err
}

func (a *moodlightAgent) CancelSleepTimer(_ context.Context, id int) bool {
	return a.timers.Cancel(id)
}

func (a *moodlightAgent) SetAlarm(ctx context.Context, id string, at alarm.Time) error {
	if err := a.alarms.Set(id, at, a.alarmCallback(ctx, id)); err != nil {
		return err
	}
	log.FromContext(ctx).Info("Alarm set", zap.String("alarm", id), zap.Stringer("time", at))
	return a.alarms.Save()
}

func (a *moodlightAgent) RemoveAlarm(ctx context.Context, id string) bool {
	removed := a.alarms.Clear(id)
	if removed {
		log.FromContext(ctx).Info("Alarm removed", zap.String("alarm", id))
	}
	return removed
}

func (a *moodlightAgent) Status(context.Context) lightapiv1.Status {
	alarms := a.alarms.List()
	alarmLabels := make([]string, len(alarms))
	for i, al := range alarms {
		alarmLabels[i] = fmt.Sprintf("%s: %s", al.ID, al.Time)
	}

	return lightapiv1.Status{
		Mode:          a.engine.Mode(),
		Running:       a.engine.Running(),
		BrightnessCap: a.engine.BrightnessCap(),
		CapAutomatic:  a.dimmer.IsAutomatic(),
		Driver:        string(a.config.Strip.Driver),
		Count:         a.strip.Len(),
		Order:         string(a.strip.Order()),
		Frame:         a.strip.Snapshot(),
		KnobPercent:   uint8(a.knobPercent.Load()),
		TimersActive:  a.timers.Active(),
		Alarms:        alarmLabels,
	}
}

// handleEvent dispatches an incoming event to its handler.
func (a *moodlightAgent) handleEvent(ctx context.Context, event Event) error {
	log.FromContext(ctx).Debug("Handling event", zap.Stringer("event", event))
	eventCounter.WithLabelValues(event.String()).Inc()

	switch event.Kind {
	case ButtonPressEvent:
		return a.SetScene(ctx, a.scenes.Next())
	case AlarmEvent:
		return a.handleWake(ctx, event.AlarmID)
	case KnobEvent:
		a.knobPercent.Store(uint32(event.Percent))
		a.engine.SetBrightnessCap(a.dimmer.Level(event.Percent))
	case SleepTimerEvent:
		log.FromContext(ctx).Info("Fading out", zap.Duration("fade", event.Fade))
		a.engine.FadeTo(led.Color{}, event.Fade)
	case NoopEvent:
	}

	return nil
}

// handleWake fades to the wake colour and arms the timer that fades the
// strip out again. A repeated alarm restarts the sequence.
func (a *moodlightAgent) handleWake(ctx context.Context, alarmID string) error {
	wake := a.config.Wake
	log.FromContext(ctx).Info("Alarm fired, starting wake sequence",
		zap.String("alarm", alarmID),
		zap.Duration("fade", wake.FadeDuration),
		zap.Duration("off_after", wake.OffAfter),
	)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.wakeTimer >= 0 {
		a.timers.Cancel(a.wakeTimer)
		a.wakeTimer = -1
	}

	// the callback takes a.mu, so it cannot observe id before it is assigned
	var id int
	id, err := a.timers.Start(wake.FadeDuration+wake.OffAfter, func() {
		a.mu.Lock()
		current := a.wakeTimer == id
		if current {
			a.wakeTimer = -1
		}
		a.mu.Unlock()

		if current {
			a.emit(ctx, Event{Kind: SleepTimerEvent, Fade: wake.FadeOut})
		}
	})
	if err != nil {
		return fmt.Errorf("failed to arm the wake timer: %w", err)
	}
	a.wakeTimer = id

	a.engine.FadeTo(wake.Color, wake.FadeDuration)
	return nil
}

// runEventHandler processes events from the agent's event channel until ctx is cancelled.
func (a *moodlightAgent) runEventHandler(ctx context.Context) error {
	log.FromContext(ctx).Info("Starting event handler")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event := <-a.eventChan:
			if err := a.handleEvent(ctx, event); err != nil {
				log.FromContext(ctx).Error("Event handler failed", zap.Stringer("event", event), zap.Error(err))
			}
		}
	}
}
