package hal

import (
	"context"
	"errors"
	"time"

	"github.com/moodlight-community/moodlight-agent/pkg/ws281x"
)

// Driver names a transmitter implementation.
type Driver string

const (
	// DriverAuto picks the native transmitter for the detected platform.
	DriverAuto Driver = "auto"
	// DriverRP1 drives the data line from the RP1 PWM serializer (Raspberry Pi 5 / CM5).
	DriverRP1 Driver = "rp1"
	// DriverSPI shifts the waveform out of an SPI MOSI pin.
	DriverSPI Driver = "spi"
	// DriverSerial forwards frames to a microcontroller over a serial port.
	DriverSerial Driver = "serial"
	// DriverTerminal previews the strip in the terminal.
	DriverTerminal Driver = "terminal"
)

var ErrClosed = errors.New("transmitter closed")

// Transmitter emits encoded frames on the LED data line.
type Transmitter interface {
	// Resolution is the smallest pulse length the transmitter can produce.
	// Encoders round every protocol timing up to a multiple of it.
	Resolution() time.Duration
	// Transmit sends the frame and returns once the whole waveform, including
	// the trailing reset, has left the line.
	Transmit(ctx context.Context, wf *ws281x.Waveform) error
	Close() error
}

// TransmitterOpts configures NewTransmitter.
type TransmitterOpts struct {
	Driver Driver `mapstructure:"driver"`
	// Pin is the GPIO carrying the data line for native drivers.
	Pin int `mapstructure:"pin"`
	// Count is the number of pixels on the strip.
	Count int `mapstructure:"count"`
	// BytesPerPixel is 3 for GRB strips and 4 for GRBW strips.
	BytesPerPixel int `mapstructure:"-"`
	// SpiPort is the periph port name, e.g. "/dev/spidev0.0" or "" for the first one.
	SpiPort string `mapstructure:"spi_port"`
	// SerialDevice is the serial port of the bridge microcontroller.
	SerialDevice string `mapstructure:"serial_device"`
	// SerialBaud is the bridge baud rate.
	SerialBaud int `mapstructure:"serial_baud"`
}
