package ledengine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeMode = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "moodlight",
		Subsystem: "engine",
		Name:      "active_mode",
		Help:      "Currently active animation (1 for the active mode)",
	}, []string{"mode"})

	engineTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "moodlight",
		Subsystem: "engine",
		Name:      "ticks_total",
		Help:      "Animation loop iterations",
	})

	renderErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "moodlight",
		Subsystem: "engine",
		Name:      "render_errors_total",
		Help:      "Frames the engine failed to show",
	})
)

func setActiveMode[T ~string](mode T) {
	activeMode.Reset()
	activeMode.WithLabelValues(string(mode)).Set(1)
}
