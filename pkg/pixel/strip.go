package pixel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moodlight-community/moodlight-agent/pkg/hal"
	"github.com/moodlight-community/moodlight-agent/pkg/hal/led"
	"github.com/moodlight-community/moodlight-agent/pkg/log"
	"github.com/moodlight-community/moodlight-agent/pkg/ws281x"
	"go.uber.org/zap"
)

// Strip binds a Buffer to a transmitter.
//
// The buffer always holds the intended colours. The brightness cap is
// applied to a separate wire copy on every Show, as v*cap/255 truncated, so
// a cap of 255 sends the buffer unchanged and 255 at cap 128 sends 128.
type Strip struct {
	mu   sync.Mutex
	buf  *Buffer
	wire []byte
	tx   hal.Transmitter
	enc  *ws281x.Encoder

	brightnessCap atomic.Uint32
}

// NewStrip allocates a zeroed buffer and configures the encoder for the
// transmitter's resolution.
func NewStrip(ctx context.Context, tx hal.Transmitter, count int, order Order) (*Strip, error) {
	if count <= 0 {
		return nil, fmt.Errorf("strip needs at least one pixel, got %d", count)
	}

	enc, err := ws281x.NewEncoder(tx.Resolution(), ws281x.DefaultTiming)
	if err != nil {
		return nil, fmt.Errorf("transmitter resolution %s cannot express the LED timing: %w", tx.Resolution(), err)
	}

	s := &Strip{
		buf: NewBuffer(count, order),
		tx:  tx,
		enc: enc,
	}
	s.brightnessCap.Store(255)
	brightnessCapGauge.Set(255)

	zero, one := enc.Symbols()
	log.FromContext(ctx).Debug("strip initialized",
		zap.Int("count", count),
		zap.String("order", string(order)),
		zap.Duration("tick", enc.Tick()),
		zap.Uint32("t0h", zero.High), zap.Uint32("t0l", zero.Low),
		zap.Uint32("t1h", one.High), zap.Uint32("t1l", one.Low),
		zap.Uint32("reset", enc.ResetTicks()),
	)
	return s, nil
}

func (s *Strip) Len() int {
	return s.buf.Len()
}

func (s *Strip) Order() Order {
	return s.buf.Order()
}

func (s *Strip) SetPixel(i int, c led.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.SetPixel(i, c)
}

func (s *Strip) Fill(c led.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Fill(c)
}

func (s *Strip) Pixel(i int) led.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Pixel(i)
}

// Snapshot copies the intended colours, before the brightness cap.
func (s *Strip) Snapshot() []led.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Snapshot()
}

// Update runs fn with exclusive access to the buffer.
func (s *Strip) Update(fn func(b *Buffer)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.buf)
}

func (s *Strip) SetBrightnessCap(level uint8) {
	s.brightnessCap.Store(uint32(level))
	brightnessCapGauge.Set(float64(level))
}

func (s *Strip) BrightnessCap() uint8 {
	return uint8(s.brightnessCap.Load())
}

// Show transmits the buffer and returns once the frame, including the
// latch period, has been emitted. The buffer may be modified as soon as
// Show returns.
func (s *Strip) Show(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showLocked(ctx)
}

// Clear turns every pixel off and shows the result.
func (s *Strip) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Zero()
	return s.showLocked(ctx)
}

func (s *Strip) showLocked(ctx context.Context) error {
	start := time.Now()

	s.wire = s.buf.scaled(s.wire, s.BrightnessCap())
	wf := s.enc.Encode(s.wire, s.buf.Order().BytesPerPixel())
	if err := s.tx.Transmit(ctx, wf); err != nil {
		return fmt.Errorf("failed to transmit frame: %w", err)
	}

	framesShown.Inc()
	showDuration.Observe(time.Since(start).Seconds())
	return nil
}

// Encoder exposes the encoder configured for the transmitter.
func (s *Strip) Encoder() *ws281x.Encoder {
	return s.enc
}
