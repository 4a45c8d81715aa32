// Package pixel holds the strip's colour buffer and pushes it through a
// transmitter.
package pixel

import (
	"fmt"
	"strings"

	"github.com/moodlight-community/moodlight-agent/pkg/hal/led"
)

// Order is the channel layout of a pixel on the wire.
type Order string

const (
	OrderGRB  Order = "GRB"
	OrderGRBW Order = "GRBW"
)

// ParseOrder accepts "grb" or "grbw" in any case.
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToUpper(s)) {
	case OrderGRB, "":
		return OrderGRB, nil
	case OrderGRBW:
		return OrderGRBW, nil
	default:
		return "", fmt.Errorf("unsupported channel order %q, expected GRB or GRBW", s)
	}
}

// BytesPerPixel is 4 when the order carries a white channel, else 3.
func (o Order) BytesPerPixel() int {
	if o == OrderGRBW {
		return 4
	}
	return 3
}

// Buffer is a fixed-size array of pixels in wire byte order. It is not safe
// for concurrent use on its own; Strip guards it.
type Buffer struct {
	count int
	order Order
	data  []byte
}

// NewBuffer allocates a zeroed buffer for count pixels.
func NewBuffer(count int, order Order) *Buffer {
	if count < 0 {
		count = 0
	}
	return &Buffer{
		count: count,
		order: order,
		data:  make([]byte, count*order.BytesPerPixel()),
	}
}

func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return b.count
}

func (b *Buffer) Order() Order {
	return b.order
}

// SetPixel stores c at index i. Out-of-range indices and unallocated
// buffers are ignored.
func (b *Buffer) SetPixel(i int, c led.Color) {
	if b == nil || b.data == nil || i < 0 || i >= b.count {
		return
	}

	bpp := b.order.BytesPerPixel()
	p := b.data[i*bpp : (i+1)*bpp]
	p[0], p[1], p[2] = c.Green, c.Red, c.Blue
	if bpp == 4 {
		p[3] = c.White
	}
}

// Fill sets every pixel to c.
func (b *Buffer) Fill(c led.Color) {
	for i := 0; i < b.Len(); i++ {
		b.SetPixel(i, c)
	}
}

// Pixel returns the colour at index i, or black when out of range.
func (b *Buffer) Pixel(i int) led.Color {
	if b == nil || b.data == nil || i < 0 || i >= b.count {
		return led.Color{}
	}

	bpp := b.order.BytesPerPixel()
	p := b.data[i*bpp : (i+1)*bpp]
	c := led.Color{Green: p[0], Red: p[1], Blue: p[2]}
	if bpp == 4 {
		c.White = p[3]
	}
	return c
}

// Snapshot copies every pixel out of the buffer.
func (b *Buffer) Snapshot() []led.Color {
	out := make([]led.Color, b.Len())
	for i := range out {
		out[i] = b.Pixel(i)
	}
	return out
}

// Bytes returns a copy of the raw wire-order bytes.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b.data...)
}

// Zero turns every pixel off.
func (b *Buffer) Zero() {
	if b == nil {
		return
	}
	clear(b.data)
}

// scaled writes the buffer into dst with every byte scaled by level.
func (b *Buffer) scaled(dst []byte, level uint8) []byte {
	dst = append(dst[:0], b.data...)
	if level == 255 {
		return dst
	}
	for i, v := range dst {
		dst[i] = led.ScaleChannel(v, level)
	}
	return dst
}
