// Package pot samples a potentiometer through an ADC, smooths the reading
// and reports changes of at least a few percent.
package pot

import (
	"context"
	"sync"
	"time"

	"github.com/moodlight-community/moodlight-agent/pkg/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MaxRaw = 4095

	DefaultPeriod    = 50 * time.Millisecond
	DefaultThreshold = 2
	DefaultSmoothing = 80
)

var notifications = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "moodlight",
	Subsystem: "pot",
	Name:      "notifications_total",
	Help:      "Potentiometer changes reported to the agent",
})

// ADC returns one raw conversion.
type ADC interface {
	Read() (int, error)
}

type Options struct {
	Period time.Duration
	// Threshold is the change in percent that triggers a notification,
	// clamped to 50.
	Threshold uint8
	// Smoothing is the weight in percent kept from the previous reading.
	// 0 and 100 disable smoothing.
	Smoothing uint8
	Callback  func(raw uint16, percent uint8)
}

// DefaultOptions notify on a 2% change and keep 80% of the previous value.
func DefaultOptions() Options {
	return Options{
		Period:    DefaultPeriod,
		Threshold: DefaultThreshold,
		Smoothing: DefaultSmoothing,
	}
}

type Sampler struct {
	adc      ADC
	period   time.Duration
	callback func(raw uint16, percent uint8)

	mu           sync.Mutex
	threshold    uint8
	smoothing    uint8
	raw          uint16
	percent      uint8
	notified     bool
	lastNotified uint8
}

func New(adc ADC, opts Options) *Sampler {
	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}

	s := &Sampler{adc: adc, period: opts.Period, callback: opts.Callback}
	s.SetThreshold(opts.Threshold)
	s.SetSmoothing(opts.Smoothing)
	return s
}

func (s *Sampler) SetThreshold(pct uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = min(pct, 50)
}

func (s *Sampler) SetSmoothing(keepPercent uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.smoothing = min(keepPercent, 100)
}

// Sample takes one reading and notifies the callback on the first reading
// and whenever the percentage has moved by the threshold since the last
// notification.
func (s *Sampler) Sample() error {
	v, err := s.adc.Read()
	if err != nil {
		return err
	}
	v = max(0, min(v, MaxRaw))

	s.mu.Lock()
	if s.smoothing > 0 && s.smoothing < 100 {
		a := uint32(s.smoothing)
		s.raw = uint16((uint32(s.raw)*a + uint32(v)*(100-a)) / 100)
	} else {
		s.raw = uint16(v)
	}
	s.percent = uint8(min(uint32(s.raw)*100/MaxRaw, 100))

	notify := !s.notified || absDiff(s.percent, s.lastNotified) >= s.threshold
	if notify {
		s.notified = true
		s.lastNotified = s.percent
	}
	raw, percent := s.raw, s.percent
	s.mu.Unlock()

	if notify && s.callback != nil {
		notifications.Inc()
		s.callback(raw, percent)
	}
	return nil
}

// Run samples every period until ctx is cancelled. Read errors are logged
// and sampling continues.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		if err := s.Sample(); err != nil {
			log.FromContext(ctx).WithError(err).Debug("potentiometer read failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Raw is the smoothed reading, 0..4095.
func (s *Sampler) Raw() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw
}

// Percent is the smoothed reading scaled to 0..100.
func (s *Sampler) Percent() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.percent
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
