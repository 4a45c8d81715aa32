package agent

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/moodlight-community/moodlight-agent/pkg/alarm"
	"github.com/moodlight-community/moodlight-agent/pkg/dimmer"
	"github.com/moodlight-community/moodlight-agent/pkg/hal"
	"github.com/moodlight-community/moodlight-agent/pkg/hal/led"
	"github.com/moodlight-community/moodlight-agent/pkg/pixel"
	"github.com/moodlight-community/moodlight-agent/pkg/pot"
	"github.com/sierrasoftworks/humane-errors-go"
	"github.com/spf13/viper"
)

// AgentConfig is the daemon configuration, read by LoadConfig.
type AgentConfig struct {
	Listen     ListenConfig  `mapstructure:"listen"`
	Strip      StripConfig   `mapstructure:"strip"`
	Engine     EngineConfig  `mapstructure:"engine"`
	Button     ButtonConfig  `mapstructure:"button"`
	Pot        PotConfig     `mapstructure:"pot"`
	Dimmer     dimmer.Config `mapstructure:"dimmer"`
	Wake       WakeConfig    `mapstructure:"wake"`
	Alarms     []AlarmConfig `mapstructure:"alarms"`
	ScenesFile string        `mapstructure:"scenes_file"`
	StorePath  string        `mapstructure:"store_path"`
}

type ListenConfig struct {
	Grpc           string `mapstructure:"grpc"`
	GrpcListenMode string `mapstructure:"grpc_listen_mode"`
	Metrics        string `mapstructure:"metrics"`
}

type StripConfig struct {
	hal.TransmitterOpts `mapstructure:",squash"`
	Order               string `mapstructure:"order"`
}

type EngineConfig struct {
	BootColor    led.Color     `mapstructure:"boot_color"`
	IdleInterval time.Duration `mapstructure:"idle_interval"`
}

type ButtonConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Chip      string        `mapstructure:"chip"`
	Line      int           `mapstructure:"line"`
	ActiveLow bool          `mapstructure:"active_low"`
	Debounce  time.Duration `mapstructure:"debounce"`
}

type PotConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Path      string        `mapstructure:"path"`
	Period    time.Duration `mapstructure:"period"`
	Threshold uint8         `mapstructure:"threshold"`
	Smoothing uint8         `mapstructure:"smoothing"`
}

// WakeConfig is the sequence run when an alarm fires: fade to Color over
// FadeDuration, hold for OffAfter, then fade out over FadeOut.
type WakeConfig struct {
	Color        led.Color     `mapstructure:"color"`
	FadeDuration time.Duration `mapstructure:"fade_duration"`
	OffAfter     time.Duration `mapstructure:"off_after"`
	FadeOut      time.Duration `mapstructure:"fade_out"`
}

type AlarmConfig struct {
	ID         string `mapstructure:"id"`
	alarm.Time `mapstructure:",squash"`
}

// SetDefaults registers the default configuration on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("listen.grpc", "/tmp/moodlight-agent.sock")
	v.SetDefault("listen.grpc_listen_mode", "unix")
	v.SetDefault("listen.metrics", ":9666")

	v.SetDefault("strip.driver", string(hal.DriverAuto))
	v.SetDefault("strip.pin", 18)
	v.SetDefault("strip.count", 30)
	v.SetDefault("strip.order", string(pixel.OrderGRBW))
	v.SetDefault("strip.serial_device", "/dev/ttyACM0")
	v.SetDefault("strip.serial_baud", 115200)

	v.SetDefault("engine.boot_color", "#0000ff")
	v.SetDefault("engine.idle_interval", "100ms")

	v.SetDefault("button.enabled", true)
	v.SetDefault("button.chip", "gpiochip0")
	v.SetDefault("button.line", 17)
	v.SetDefault("button.active_low", true)
	v.SetDefault("button.debounce", "50ms")

	v.SetDefault("pot.enabled", true)
	v.SetDefault("pot.path", "/sys/bus/iio/devices/iio:device0/in_voltage0_raw")
	v.SetDefault("pot.period", pot.DefaultPeriod.String())
	v.SetDefault("pot.threshold", pot.DefaultThreshold)
	v.SetDefault("pot.smoothing", pot.DefaultSmoothing)

	steps := dimmer.DefaultConfig().Steps
	defaultSteps := make([]map[string]any, len(steps))
	for i, s := range steps {
		defaultSteps[i] = map[string]any{"percent": s.Percent, "level": s.Level}
	}
	v.SetDefault("dimmer.steps", defaultSteps)

	v.SetDefault("wake.color", "#ff932960")
	v.SetDefault("wake.fade_duration", "10m")
	v.SetDefault("wake.off_after", "30m")
	v.SetDefault("wake.fade_out", "5s")

	v.SetDefault("scenes_file", "/etc/moodlight-agent/scenes.toml")
	v.SetDefault("store_path", "/var/lib/moodlight-agent/store.yaml")
}

// LoadConfig decodes v into an AgentConfig and validates it.
func LoadConfig(v *viper.Viper) (AgentConfig, humane.Error) {
	var config AgentConfig
	err := v.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)))
	if err != nil {
		return config, humane.Wrap(err, "failed to decode agent configuration",
			"check the configuration file for typos and wrongly typed values",
		)
	}

	return config, config.Validate()
}

// Validate checks the parts of the configuration the agent cannot recover
// from at runtime.
func (c AgentConfig) Validate() humane.Error {
	if c.Strip.Count <= 0 {
		return humane.New(fmt.Sprintf("strip.count must be positive, got %d", c.Strip.Count),
			"set strip.count to the number of LEDs on your strip",
		)
	}

	if _, err := pixel.ParseOrder(c.Strip.Order); err != nil {
		return humane.Wrap(err, "invalid strip.order",
			"set strip.order to grb or grbw",
		)
	}

	if _, err := ListenModeFromString(c.Listen.GrpcListenMode); err != nil {
		return err
	}

	if c.Pot.Enabled && c.Pot.Path == "" {
		return humane.New("pot.path is empty",
			"set pot.path to the raw value file of your ADC channel, or disable the potentiometer with pot.enabled=false",
		)
	}

	if _, err := dimmer.NewLinearDimmer(c.Dimmer); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Alarms))
	if len(c.Alarms) > alarm.Capacity {
		return humane.New(fmt.Sprintf("at most %d alarms can be configured", alarm.Capacity),
			"remove alarms from the configuration",
		)
	}
	for _, a := range c.Alarms {
		if a.ID == "" || seen[a.ID] {
			return humane.New(fmt.Sprintf("alarm id %q is empty or used twice", a.ID),
				"give every alarm a unique id",
			)
		}
		seen[a.ID] = true

		if err := a.Time.Validate(); err != nil {
			return humane.Wrap(err, fmt.Sprintf("alarm %q has an invalid time", a.ID),
				"weekday is 0 (Sunday) to 6, hour 0-23, minute and second 0-59",
			)
		}
	}

	return nil
}
