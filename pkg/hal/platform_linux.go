//go:build linux && !tinygo

package hal

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/moodlight-community/moodlight-agent/pkg/log"
	"go.uber.org/zap"
)

const deviceTreeCompatiblePath = "/sys/firmware/devicetree/base/compatible"

// newNativeTransmitter creates the transmitter for the detected platform.
// It reads the device tree compatible string to determine the SoC; only
// BCM2712 (CM5/Pi 5) has a native serializer driver, everything else must
// pick spi, serial or terminal explicitly.
func newNativeTransmitter(ctx context.Context, opts TransmitterOpts) (Transmitter, error) {
	compatible, err := os.ReadFile(deviceTreeCompatiblePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read device tree compatible string: %w", err)
	}

	compatStr := string(compatible)
	log.FromContext(ctx).Info("detected platform", zap.String("compatible", strings.ReplaceAll(compatStr, "\x00", ", ")))

	switch {
	case strings.Contains(compatStr, "bcm2712"):
		return newRP1Transmitter(ctx, opts)
	default:
		return nil, fmt.Errorf("no native LED transmitter for platform: %s", strings.ReplaceAll(compatStr, "\x00", ", "))
	}
}
