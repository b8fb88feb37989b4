package deaddrop

import "github.com/prometheus/client_golang/prometheus"

// Metrics mirrors internal/ghost's counter/histogram style, which itself
// mirrors the teacher's goWakuNode.NetworkMetrics() counter-map pattern.
var (
	uploadFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ghostcore",
		Subsystem: "deaddrop",
		Name:      "upload_failures_total",
		Help:      "Number of CreateDrop calls that failed to upload ciphertext to storage.",
	})
	downloadFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ghostcore",
		Subsystem: "deaddrop",
		Name:      "download_failures_total",
		Help:      "Number of OpenDrop calls that failed to download ciphertext.",
	})
	uploadDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ghostcore",
		Subsystem: "deaddrop",
		Name:      "upload_duration_seconds",
		Help:      "Wall-clock time of the upload step of a CreateDrop call, success or failure.",
		Buckets:   prometheus.DefBuckets,
	})
	downloadDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ghostcore",
		Subsystem: "deaddrop",
		Name:      "download_duration_seconds",
		Help:      "Wall-clock time of the download step of an OpenDrop call, success or failure.",
		Buckets:   prometheus.DefBuckets,
	})
)

// MustRegisterMetrics registers the pipeline's counters/histograms with
// reg. Call once per registry (the same collectors may be registered into
// several registries); a nil reg is a no-op so tests can skip registration.
func MustRegisterMetrics(reg *prometheus.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(uploadFailures, downloadFailures, uploadDurationSeconds, downloadDurationSeconds)
}
