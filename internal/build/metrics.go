package build

import "github.com/prometheus/client_golang/prometheus"

var (
	buildTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stosh",
			Subsystem: "build",
			Name:      "total",
			Help:      "Artifact resolutions by outcome (cached, built, failed)",
		},
		[]string{"result"},
	)

	buildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stosh",
			Subsystem: "build",
			Name:      "duration_seconds",
			Help:      "Wall time of build tool invocations in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
)

func init() {
	prometheus.MustRegister(buildTotal, buildDuration)
}
