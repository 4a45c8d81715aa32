package hal

import (
	"context"

	"github.com/sierrasoftworks/humane-errors-go"
)

// NewTransmitter builds the transmitter selected by opts.Driver. Failures are
// not recoverable: the agent cannot run without its display.
func NewTransmitter(ctx context.Context, opts TransmitterOpts) (Transmitter, humane.Error) {
	var (
		tx  Transmitter
		err error
	)

	switch opts.Driver {
	case DriverAuto, DriverRP1, "":
		tx, err = newNativeTransmitter(ctx, opts)
	case DriverSPI:
		tx, err = NewSPITransmitter(ctx, opts)
	case DriverSerial:
		tx, err = NewSerialBridge(ctx, opts)
	case DriverTerminal:
		tx, err = NewTerminalTransmitter(ctx, opts)
	default:
		return nil, humane.New("unknown LED transmitter driver "+string(opts.Driver),
			"set strip.driver to one of: auto, rp1, spi, serial, terminal",
		)
	}

	if err != nil {
		return nil, humane.Wrap(err, "failed to set up LED transmitter",
			"ensure the agent runs with access to the selected peripheral (/dev/mem, /dev/spidev*, or the serial device)",
			"check strip.driver and the matching device settings in the agent configuration",
		)
	}
	return tx, nil
}
