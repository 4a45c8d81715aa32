//go:build !linux

package hal

import (
	"context"
	"errors"
	"time"
)

type GpiodButton struct{}

func NewGpiodButton(ctx context.Context, opts ButtonOpts, sink EdgeSink, now func() time.Time) (*GpiodButton, error) {
	return nil, errors.New("gpio buttons are only supported on linux")
}

func (b *GpiodButton) Level() (int, error) { return 0, errors.New("not supported") }

func (b *GpiodButton) Close() error { return nil }
