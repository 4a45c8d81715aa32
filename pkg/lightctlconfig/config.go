package lightctlconfig

import (
	"github.com/sierrasoftworks/humane-errors-go"
)

type LightctlConfig struct {
	Lights       []NamedLight `yaml:"lights" mapstructure:"lights"`
	CurrentLight string       `yaml:"current-light" mapstructure:"current-light"`
}

type NamedLight struct {
	Name  string `yaml:"name" mapstructure:"name"`
	Light Light  `yaml:"light" mapstructure:"light"`
}

type Light struct {
	Server string `yaml:"server" mapstructure:"server"`
	// Mode is "unix" or "tcp"; empty infers it from Server.
	Mode string `yaml:"mode,omitempty" mapstructure:"mode,omitempty"`
}

func FindCurrentLight(config LightctlConfig) (*Light, humane.Error) {
	for _, light := range config.Lights {
		if light.Name == config.CurrentLight {
			return &light.Light, nil
		}
	}

	return nil, humane.New("current light not found in configuration",
		"ensure you have a current-light set in your configuration file, or use the --light flag to specify one",
		"make sure you have a light with the name you specified in the lights configuration",
	)
}

// Target returns the gRPC dial target for l.
func (l Light) Target() string {
	if l.Mode == "unix" || (l.Mode == "" && len(l.Server) > 0 && l.Server[0] == '/') {
		return "unix://" + l.Server
	}
	return l.Server
}
