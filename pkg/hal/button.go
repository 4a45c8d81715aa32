package hal

import "time"

// EdgeSink receives raw level changes from a button line. Edge runs on the
// line's event goroutine and must not block.
type EdgeSink interface {
	Edge(level int, at time.Time) bool
}

// ButtonOpts configures the GPIO button source.
type ButtonOpts struct {
	Chip string `mapstructure:"chip"`
	Line int    `mapstructure:"line"`
	// ActiveLow reports a pressed, pulled-up button as level 1.
	ActiveLow bool `mapstructure:"active_low"`
}
