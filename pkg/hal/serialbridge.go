package hal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/moodlight-community/moodlight-agent/pkg/hal/bridge"
	"github.com/moodlight-community/moodlight-agent/pkg/log"
	"github.com/moodlight-community/moodlight-agent/pkg/ws281x"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

const (
	// The microcontroller regenerates the waveform itself; the resolution
	// only determines how the local encoder accounts for wire time.
	bridgeResolution = 10 * time.Nanosecond
	bridgeAckSlack   = 100 * time.Millisecond
	defaultBaud      = 115200
)

// SerialBridge forwards frames to a microcontroller over a serial port and
// waits for it to acknowledge each one.
type SerialBridge struct {
	mu     sync.Mutex
	port   io.ReadWriteCloser
	acks   chan bridge.HostPacketType
	closed chan struct{}
	done   chan struct{}
	once   sync.Once
	logger *log.Logger
}

// NewSerialBridge opens opts.SerialDevice and initializes the remote strip.
func NewSerialBridge(ctx context.Context, opts TransmitterOpts) (*SerialBridge, error) {
	baud := opts.SerialBaud
	if baud == 0 {
		baud = defaultBaud
	}

	port, err := serial.Open(opts.SerialDevice, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %q: %w", opts.SerialDevice, err)
	}
	if err := port.SetReadTimeout(serial.NoTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to reset read timeout: %w", err)
	}

	b := newSerialBridge(ctx, port)
	if err := b.initialize(ctx, opts); err != nil {
		b.Close()
		return nil, err
	}

	platform.WithLabelValues(string(DriverSerial)).Set(1)
	log.FromContext(ctx).Info("serial bridge ready", zap.String("device", opts.SerialDevice), zap.Int("baud", baud))
	return b, nil
}

func newSerialBridge(ctx context.Context, port io.ReadWriteCloser) *SerialBridge {
	b := &SerialBridge{
		port:   port,
		acks:   make(chan bridge.HostPacketType, 1),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
		logger: log.FromContext(ctx),
	}
	go b.readPackets()
	return b
}

func (b *SerialBridge) initialize(ctx context.Context, opts TransmitterOpts) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.exchange(ctx, bridge.Initialize{
		NumLEDs:       uint16(opts.Count),
		BytesPerPixel: uint8(opts.BytesPerPixel),
	}, bridgeAckSlack)
}

func (b *SerialBridge) Resolution() time.Duration {
	return bridgeResolution
}

// Transmit returns once the microcontroller has acknowledged the frame.
func (b *SerialBridge) Transmit(ctx context.Context, wf *ws281x.Waveform) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.exchange(ctx, bridge.Set{Pix: wf.Data()}, wf.Duration()+bridgeAckSlack)
	observeTransmit(DriverSerial, err)
	return err
}

// exchange must be called with mu held.
func (b *SerialBridge) exchange(ctx context.Context, p bridge.HostPacket, timeout time.Duration) error {
	select {
	case <-b.closed:
		return ErrClosed
	default:
	}

	// Drop a stale ack from an exchange that timed out earlier.
	select {
	case <-b.acks:
	default:
	}

	if err := bridge.WriteHostPacket(b.port, p); err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return ErrClosed
		case <-timer.C:
			return fmt.Errorf("no ack for %s packet after %s", p.Type(), timeout)
		case t := <-b.acks:
			if t == p.Type() {
				return nil
			}
		}
	}
}

func (b *SerialBridge) readPackets() {
	defer close(b.done)

	for {
		p, err := bridge.ReadDevicePacket(b.port)
		if err != nil {
			select {
			case <-b.closed:
				return
			default:
			}
			if errors.Is(err, bridge.ErrChecksum) {
				b.logger.Debug("dropping corrupt frame from serial bridge")
				continue
			}
			b.logger.WithError(err).Warn("serial bridge read failed")
			return
		}

		switch p := p.(type) {
		case bridge.Ack:
			select {
			case b.acks <- p.For:
			default:
			}
		case bridge.Error:
			b.logger.Warn("serial bridge reported error", zap.String("message", p.Message))
		case bridge.Log:
			b.logger.Debug("serial bridge log", zap.String("message", p.Message))
		}
	}
}

func (b *SerialBridge) Close() error {
	var err error
	b.once.Do(func() {
		close(b.closed)
		err = b.port.Close()
	})
	return err
}
