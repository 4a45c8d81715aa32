package led

import (
	"encoding"
	"fmt"
	"strconv"
	"strings"
)

// Color is the colour intent of a single pixel. White is only emitted on
// four-channel strips.
type Color struct {
	Red   uint8 `mapstructure:"red" yaml:"red"`
	Green uint8 `mapstructure:"green" yaml:"green"`
	Blue  uint8 `mapstructure:"blue" yaml:"blue"`
	White uint8 `mapstructure:"white" yaml:"white"`
}

var (
	_ encoding.TextUnmarshaler = (*Color)(nil)
	_ encoding.TextMarshaler   = Color{}
)

// RGB returns a colour without a white component.
func RGB(r, g, b uint8) Color {
	return Color{Red: r, Green: g, Blue: b}
}

// RGBW returns a colour with all four channels set.
func RGBW(r, g, b, w uint8) Color {
	return Color{Red: r, Green: g, Blue: b, White: w}
}

// Scale multiplies every channel by level/255, truncating.
func (c Color) Scale(level uint8) Color {
	return Color{
		Red:   ScaleChannel(c.Red, level),
		Green: ScaleChannel(c.Green, level),
		Blue:  ScaleChannel(c.Blue, level),
		White: ScaleChannel(c.White, level),
	}
}

// ScaleChannel returns v*level/255 with integer truncation. A level of 255 is
// the identity.
func ScaleChannel(v, level uint8) uint8 {
	return uint8(uint16(v) * uint16(level) / 255)
}

// String returns the colour as #rrggbb, or #rrggbbww if white is set.
func (c Color) String() string {
	if c.White != 0 {
		return fmt.Sprintf("#%02x%02x%02x%02x", c.Red, c.Green, c.Blue, c.White)
	}
	return fmt.Sprintf("#%02x%02x%02x", c.Red, c.Green, c.Blue)
}

// ParseColor parses #rrggbb or #rrggbbww (the leading # is optional).
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("invalid color %q: expected #rrggbb or #rrggbbww", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}

	if len(hex) == 6 {
		return RGB(uint8(v>>16), uint8(v>>8), uint8(v)), nil
	}
	return RGBW(uint8(v>>24), uint8(v>>16), uint8(v>>8), uint8(v)), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
