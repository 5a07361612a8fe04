package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mcpwrap_build_info",
			Help: "Build information",
		},
		[]string{"profile", "version", "sha", "date"},
	)

	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcpwrap_requests_total",
			Help: "Number of requests answered, by route and status code",
		},
		[]string{"route", "code"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcpwrap_request_duration_seconds",
			Help:    "Time spent answering a request",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// Register registers all metrics with the provided registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(buildInfo, requests, requestDuration)
}

// SetBuildInfo sets the build info metric for a wrapper profile.
func SetBuildInfo(profile, version, sha, date string) {
	buildInfo.WithLabelValues(profile, version, sha, date).Set(1)
}

// RecordRequest counts one answered request and its duration.
func RecordRequest(route string, code int, d time.Duration) {
	requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	requestDuration.WithLabelValues(route).Observe(d.Seconds())
}
