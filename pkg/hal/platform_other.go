//go:build !linux || tinygo

package hal

import (
	"context"
	"errors"
)

func newNativeTransmitter(context.Context, TransmitterOpts) (Transmitter, error) {
	return nil, errors.New("native LED transmitters are only available on linux")
}
