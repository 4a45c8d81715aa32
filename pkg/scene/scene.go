// Package scene reads the list of presets the button steps through.
package scene

import (
	"encoding"
	"io"
	"os"
	"time"

	"github.com/moodlight-community/moodlight-agent/pkg/hal/led"
	"github.com/moodlight-community/moodlight-agent/pkg/ledengine"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Mode is the kind of animation a scene runs.
type Mode string

const (
	ModeStatic        Mode = "static"
	ModeBreath        Mode = "breath"
	ModePulse         Mode = "pulse"
	ModeRainbow       Mode = "rainbow"
	ModeRainbowSmooth Mode = "rainbow-smooth"
	ModeFade          Mode = "fade"
	ModeBlink         Mode = "blink"
	ModeBurst         Mode = "burst"
	ModeOff           Mode = "off"
)

// File is a scene file:
//
//	[[scene]]
//	name = "reading"
//	mode = "fade"
//	color = "#ffb46b"
//	duration = "2s"
type File struct {
	Scenes []Scene `toml:"scene"`
}

// Scene is one preset.
type Scene struct {
	Name  string    `toml:"name"`
	Mode  Mode      `toml:"mode"`
	Color led.Color `toml:"color"`
	// Duration is the fade time for fade and off.
	Duration Duration `toml:"duration"`
	// Period, Gradient, Saturation and Value configure rainbow-smooth.
	Period     Duration `toml:"period"`
	Gradient   bool     `toml:"gradient"`
	Saturation int      `toml:"saturation"`
	Value      int      `toml:"value"`
}

// Duration is a time.Duration written as a string like "1m30s".
type Duration time.Duration

var (
	_ encoding.TextUnmarshaler = (*Duration)(nil)
	_ encoding.TextMarshaler   = (*Duration)(nil)
)

func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Parse reads and validates a scene file.
func Parse(r io.Reader) (*File, error) {
	var f File
	if err := toml.NewDecoder(r).Decode(&f); err != nil {
		return nil, errors.Wrap(err, "failed to decode scene file")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load parses the scene file at path, or returns Default if it does not
// exist.
func Load(path string) (*File, error) {
	fd, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to open scene file")
	}
	defer fd.Close()

	f, err := Parse(fd)
	return f, errors.Wrapf(err, "in %s", path)
}

// Validate checks every scene.
func (f *File) Validate() error {
	if len(f.Scenes) == 0 {
		return errors.New("no scenes configured")
	}

	seen := make(map[string]bool, len(f.Scenes))
	for i, s := range f.Scenes {
		if s.Name == "" {
			return errors.Errorf("scene %d has no name", i)
		}
		if seen[s.Name] {
			return errors.Errorf("scene %q is defined twice", s.Name)
		}
		seen[s.Name] = true

		if err := s.Validate(); err != nil {
			return errors.Wrapf(err, "scene %q", s.Name)
		}
	}
	return nil
}

// Validate checks the mode and its parameters.
func (s Scene) Validate() error {
	switch s.Mode {
	case ModeStatic, ModeBreath, ModePulse, ModeRainbow, ModeFade, ModeBlink, ModeBurst, ModeOff:
	case ModeRainbowSmooth:
		if s.Period <= 0 {
			return errors.New("rainbow-smooth needs a positive period")
		}
		if s.Saturation < 0 || s.Saturation > 255 {
			return errors.Errorf("saturation %d out of range 0-255", s.Saturation)
		}
		if s.Value < 0 || s.Value > 255 {
			return errors.Errorf("value %d out of range 0-255", s.Value)
		}
	default:
		return errors.Errorf("unknown mode %q", s.Mode)
	}

	if s.Duration < 0 {
		return errors.New("duration must not be negative")
	}
	return nil
}

// Animation builds the engine mode for the scene.
func (s Scene) Animation() (ledengine.Animation, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	switch s.Mode {
	case ModeStatic:
		return ledengine.NewStaticPattern(s.Color), nil
	case ModeBreath:
		return ledengine.NewMode(ledengine.ModeBreath, s.Color), nil
	case ModePulse:
		return ledengine.NewMode(ledengine.ModePulse, s.Color), nil
	case ModeRainbow:
		return ledengine.NewMode(ledengine.ModeRainbow, s.Color), nil
	case ModeRainbowSmooth:
		return &ledengine.RainbowSmooth{
			Period:     time.Duration(s.Period),
			Gradient:   s.Gradient,
			Saturation: uint8(s.Saturation),
			Value:      uint8(s.Value),
		}, nil
	case ModeFade:
		return ledengine.NewFade(s.Color, time.Duration(s.Duration)), nil
	case ModeBlink:
		return ledengine.NewSlowBlinkPattern(led.Color{}, s.Color), nil
	case ModeBurst:
		return ledengine.NewBurstPattern(led.Color{}, s.Color), nil
	default:
		return ledengine.NewFade(led.Color{}, time.Duration(s.Duration)), nil
	}
}

// Default is used when no scene file exists.
func Default() *File {
	return &File{Scenes: []Scene{
		{Name: "warm", Mode: ModeFade, Color: led.RGBW(255, 147, 41, 60), Duration: Duration(time.Second)},
		{Name: "night", Mode: ModeBreath, Color: led.RGB(0, 0, 255)},
		{Name: "rainbow", Mode: ModeRainbowSmooth, Period: Duration(20 * time.Second), Gradient: true, Saturation: 255, Value: 255},
		{Name: "off", Mode: ModeOff, Duration: Duration(time.Second)},
	}}
}

// Cycler steps through scenes in order, wrapping around.
type Cycler struct {
	scenes []Scene
	next   int
}

func NewCycler(f *File) *Cycler {
	return &Cycler{scenes: f.Scenes}
}

// Next returns the following scene.
func (c *Cycler) Next() Scene {
	s := c.scenes[c.next]
	c.next = (c.next + 1) % len(c.scenes)
	return s
}
