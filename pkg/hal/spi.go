package hal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/moodlight-community/moodlight-agent/pkg/log"
	"github.com/moodlight-community/moodlight-agent/pkg/ws281x"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// At 5 MHz every SPI bit is one 200ns tick: "0" = 2 high + 4 low,
// "1" = 4 high + 3 low, all within the ±150ns tolerance.
const (
	spiClock = 5 * physic.MegaHertz
	spiTick  = 200 * time.Nanosecond
)

// spiTransmitter shifts the tick-level waveform out of MOSI. Only the data
// line is wired to the strip; the SPI clock is left unconnected.
type spiTransmitter struct {
	mu   sync.Mutex
	port spi.PortCloser
	conn spi.Conn
	buf  []byte
}

// NewSPITransmitter opens the SPI port named in opts.SpiPort.
func NewSPITransmitter(ctx context.Context, opts TransmitterOpts) (*spiTransmitter, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host drivers: %w", err)
	}

	port, err := spireg.Open(opts.SpiPort)
	if err != nil {
		return nil, fmt.Errorf("failed to open spi port %q: %w", opts.SpiPort, err)
	}

	conn, err := port.Connect(spiClock, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to configure spi port %q at %s: %w", opts.SpiPort, spiClock, err)
	}

	platform.WithLabelValues(string(DriverSPI)).Set(1)
	log.FromContext(ctx).Info("spi transmitter ready", zap.String("port", opts.SpiPort), zap.Stringer("clock", spiClock))

	return &spiTransmitter{port: port, conn: conn}, nil
}

func (s *spiTransmitter) Resolution() time.Duration {
	return spiTick
}

// Transmit is synchronous: Tx returns after the last bit, and the reset
// period is part of the shifted data.
func (s *spiTransmitter) Transmit(ctx context.Context, wf *ws281x.Waveform) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.buf = wf.AppendBits(s.buf[:0])
	err := s.conn.Tx(s.buf, nil)
	observeTransmit(DriverSPI, err)
	return err
}

func (s *spiTransmitter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port, s.conn = nil, nil
	return err
}
