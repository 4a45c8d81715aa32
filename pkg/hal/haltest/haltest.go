// Package haltest provides in-memory transmitters for tests.
package haltest

import (
	"context"
	"sync"
	"time"

	"github.com/moodlight-community/moodlight-agent/pkg/hal"
	"github.com/moodlight-community/moodlight-agent/pkg/ws281x"
	"github.com/stretchr/testify/mock"
)

// DefaultResolution matches the RP1 serializer clock.
const DefaultResolution = 20 * time.Nanosecond

// Recorder is a Transmitter that keeps every frame it is asked to send.
type Recorder struct {
	mu     sync.Mutex
	tick   time.Duration
	frames []*ws281x.Waveform
	err    error
	closed bool
	sent   chan struct{}
}

var _ hal.Transmitter = (*Recorder)(nil)

// NewRecorder returns a recorder with the given resolution, or
// DefaultResolution when tick is zero.
func NewRecorder(tick time.Duration) *Recorder {
	if tick == 0 {
		tick = DefaultResolution
	}
	return &Recorder{tick: tick, sent: make(chan struct{}, 1)}
}

func (r *Recorder) Resolution() time.Duration { return r.tick }

func (r *Recorder) Transmit(ctx context.Context, wf *ws281x.Waveform) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return hal.ErrClosed
	}
	if r.err != nil {
		return r.err
	}
	r.frames = append(r.frames, wf)

	select {
	case r.sent <- struct{}{}:
	default:
	}
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// FailWith makes every following Transmit return err.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Frames returns the number of frames sent so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Last returns the last waveform sent, or nil.
func (r *Recorder) Last() *ws281x.Waveform {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

// LastBytes decodes the last frame back into pixel bytes.
func (r *Recorder) LastBytes() []byte {
	wf := r.Last()
	if wf == nil {
		return nil
	}
	return wf.Data()
}

// Sent is signalled after a frame is recorded. It holds at most one
// pending notification.
func (r *Recorder) Sent() <-chan struct{} { return r.sent }

// Closed reports whether Close has been called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// MockTransmitter is a testify mock for call expectations.
type MockTransmitter struct {
	mock.Mock
}

var _ hal.Transmitter = (*MockTransmitter)(nil)

func (m *MockTransmitter) Resolution() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

func (m *MockTransmitter) Transmit(ctx context.Context, wf *ws281x.Waveform) error {
	args := m.Called(ctx, wf)
	return args.Error(0)
}

func (m *MockTransmitter) Close() error {
	args := m.Called()
	return args.Error(0)
}
