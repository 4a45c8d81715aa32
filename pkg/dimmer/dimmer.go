package dimmer

import (
	"fmt"
	"slices"
	"sync"

	"github.com/sierrasoftworks/humane-errors-go"
)

// Dimmer maps the knob position to a brightness cap.
type Dimmer interface {
	Override(opts *OverrideOpts)
	// Level returns the brightness cap for a knob position in percent
	Level(percent uint8) uint8
	// IsAutomatic returns true if the level follows the knob, or false if pinned by an OverrideOpts
	IsAutomatic() bool

	// Steps returns the configured knob/brightness curve.
	Steps() []Step
}

type Step struct {
	Percent uint8 `mapstructure:"percent"`
	Level   uint8 `mapstructure:"level"`
}

type Config struct {
	Steps []Step `mapstructure:"steps"`
}

type OverrideOpts struct {
	Level uint8
}

// DefaultConfig keeps the strip faintly lit at the knob's lowest position.
func DefaultConfig() Config {
	return Config{
		Steps: []Step{
			{Percent: 0, Level: 8},
			{Percent: 100, Level: 255},
		},
	}
}

// linearDimmer interpolates linearly between the configured steps
type linearDimmer struct {
	mu           sync.Mutex
	overrideOpts *OverrideOpts
	config       Config
}

// NewLinearDimmer creates a new Dimmer following config's curve
func NewLinearDimmer(config Config) (Dimmer, humane.Error) {
	steps := slices.Clone(config.Steps)
	if len(steps) == 0 {
		return nil, humane.New("dimmer curve has no steps",
			"Define at least one step mapping a knob position to a brightness level",
		)
	}

	slices.SortFunc(steps, func(a, b Step) int {
		return int(a.Percent) - int(b.Percent)
	})

	for _, step := range steps {
		if step.Percent > 100 {
			return nil, humane.New("knob position must be between 0 and 100",
				fmt.Sprintf("Ensure your knob position is 0 <= %d <= 100", step.Percent),
			)
		}
	}

	for i := 0; i < len(steps)-1; i++ {
		curr := steps[i]
		next := steps[i+1]

		if curr.Percent == next.Percent {
			return nil, humane.New("knob positions must be strictly increasing",
				fmt.Sprintf("Knob position %d%% is defined more than once", curr.Percent),
			)
		}
		if curr.Level > next.Level {
			return nil, humane.New("brightness level must not decrease",
				"Ensure that the brightness levels are not decreasing for higher knob positions",
				fmt.Sprintf("Knob position %d%% is defined at level %d and must be >= level %d defined for %d%%", curr.Percent, curr.Level, next.Level, next.Percent),
			)
		}
	}

	config.Steps = steps
	return &linearDimmer{config: config}, nil
}

func (d *linearDimmer) Steps() []Step {
	return d.config.Steps
}

func (d *linearDimmer) Override(opts *OverrideOpts) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.overrideOpts = opts
}

func (d *linearDimmer) Level(percent uint8) uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.overrideOpts != nil {
		return d.overrideOpts.Level
	}

	steps := d.config.Steps
	if percent <= steps[0].Percent {
		return steps[0].Level
	}

	lastIdx := len(steps) - 1
	if percent >= steps[lastIdx].Percent {
		return steps[lastIdx].Level
	}

	for i := 0; i < lastIdx; i++ {
		lo, hi := steps[i], steps[i+1]
		if percent >= lo.Percent && percent < hi.Percent {
			span := int(hi.Percent) - int(lo.Percent)
			return uint8(int(lo.Level) + (int(hi.Level)-int(lo.Level))*(int(percent)-int(lo.Percent))/span)
		}
	}

	return steps[lastIdx].Level
}

func (d *linearDimmer) IsAutomatic() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.overrideOpts == nil
}
