package pixel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesShown = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "moodlight",
		Subsystem: "strip",
		Name:      "frames_shown_total",
		Help:      "Frames pushed to the strip",
	})

	showDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "moodlight",
		Subsystem: "strip",
		Name:      "show_duration_seconds",
		Help:      "Time spent encoding and transmitting a frame",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	brightnessCapGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "moodlight",
		Subsystem: "strip",
		Name:      "brightness_cap",
		Help:      "Brightness cap applied to every channel (0-255)",
	})
)
