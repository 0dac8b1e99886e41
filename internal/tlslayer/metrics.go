package tlslayer

//
// Metrics definitions
//

import (
	"strings"

	"github.com/ooni/btls/internal/errorsx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricsSummaryObjectives returns the summary objectives for promauto.NewSummary.
func metricsSummaryObjectives() map[float64]float64 {
	return map[float64]float64{
		0.25: 0.010,
		0.5:  0.010,
		0.75: 0.010,
		0.9:  0.010,
		0.99: 0.001,
	}
}

var (
	// metricAttachCount counts the attach operations.
	metricAttachCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "btls_attach_count",
		Help: "Total number of attach operations",
	}, []string{"role", "failure"})

	// metricHandshakeCount counts the completed handshakes.
	metricHandshakeCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "btls_handshake_count",
		Help: "Total number of completed handshakes",
	}, []string{"role", "failure"})

	// metricHandshakeDurationSeconds summarizes the duration of handshakes.
	metricHandshakeDurationSeconds = promauto.NewSummaryVec(prometheus.SummaryOpts{
		Name:       "btls_handshake_duration_seconds",
		Help:       "Summarizes the time to complete the TLS handshake (in seconds)",
		Objectives: metricsSummaryObjectives(),
	}, []string{"role"})

	// metricDetachCount counts the detach and reset operations.
	metricDetachCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "btls_detach_count",
		Help: "Total number of detach and reset operations",
	}, []string{"operation", "failure"})

	// metricSessionsAttached gauges the number of sessions currently attached.
	metricSessionsAttached = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "btls_sessions_attached_gauge",
		Help: "The number of TLS sessions currently attached to a handle",
	})
)

// metricFailure returns the failure label for err. We collapse all the
// unknown failures into a single label to bound the label cardinality.
func metricFailure(err error) string {
	if err == nil {
		return ""
	}
	failure := errorsx.ErrorString(err)
	if strings.HasPrefix(failure, "unknown_failure") {
		return "unknown_failure"
	}
	return failure
}
