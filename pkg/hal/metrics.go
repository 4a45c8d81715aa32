package hal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	platform = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "moodlight",
		Subsystem: "hal",
		Name:      "platform",
		Help:      "Detected platform / transmitter driver",
	}, []string{"driver"})

	framesTransmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodlight",
		Subsystem: "hal",
		Name:      "frames_transmitted_total",
		Help:      "Frames written to the LED data line",
	}, []string{"driver"})

	transmitErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodlight",
		Subsystem: "hal",
		Name:      "transmit_errors_total",
		Help:      "Frames that could not be written to the LED data line",
	}, []string{"driver"})

	buttonEdges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "moodlight",
		Subsystem: "hal",
		Name:      "button_edges_total",
		Help:      "Raw button edges reported by the GPIO line",
	})
)

func observeTransmit(driver Driver, err error) {
	if err != nil {
		transmitErrors.WithLabelValues(string(driver)).Inc()
		return
	}
	framesTransmitted.WithLabelValues(string(driver)).Inc()
}
