package hal

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
)

// IIOADC reads one channel of a Linux industrial-I/O ADC, e.g.
// /sys/bus/iio/devices/iio:device0/in_voltage0_raw.
type IIOADC struct {
	Path string
}

func (a IIOADC) Read() (int, error) {
	raw, err := os.ReadFile(a.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to read adc channel: %w", err)
	}

	v, err := strconv.Atoi(string(bytes.TrimSpace(raw)))
	if err != nil {
		return 0, fmt.Errorf("failed to parse adc value %q: %w", bytes.TrimSpace(raw), err)
	}
	return v, nil
}
