package stosh

import "github.com/prometheus/client_golang/prometheus"

var (
	nativeCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stosh",
			Subsystem: "session",
			Name:      "native_calls_total",
			Help:      "Native entry point calls by call and result",
		},
		[]string{"call", "result"},
	)

	sampleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stosh",
			Subsystem: "session",
			Name:      "sample_duration_seconds",
			Help:      "Duration of native sampler runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		},
	)

	liveHandles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stosh",
			Subsystem: "session",
			Name:      "live_handles",
			Help:      "Native model handles currently held",
		},
	)
)

func init() {
	prometheus.MustRegister(nativeCalls, sampleDuration, liveHandles)
}
