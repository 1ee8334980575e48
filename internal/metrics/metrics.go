// Package metrics holds the Prometheus collectors for planning and
// re-optimization.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "itinerary"

var (
	// itinerariesGenerated counts Generate calls.
	// Labels: status (success, error)
	itinerariesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "planning",
		Name:      "itineraries_total",
		Help:      "Itineraries generated by status",
	}, []string{"status"})

	planDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "planning",
		Name:      "plan_duration_seconds",
		Help:      "Time to generate a full itinerary",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	// replans counts partial replans.
	// Labels: reason (the event or advisory that caused it)
	replans = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "replans_total",
		Help:      "Partial replans by triggering reason",
	}, []string{"reason"})

	pendingDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "pending_decisions_total",
		Help:      "Pending decisions created by disruption type",
	}, []string{"type"})

	resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "resolutions_total",
		Help:      "Pending decision resolutions by action",
	}, []string{"action"})

	events = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "events_total",
		Help:      "Session events received by type",
	}, []string{"type"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "active",
		Help:      "Re-optimization sessions currently open",
	})
)

// RecordItinerary records one Generate call and its duration in seconds.
func RecordItinerary(status string, durationSec float64) {
	itinerariesGenerated.WithLabelValues(status).Inc()
	if status == "success" {
		planDuration.Observe(durationSec)
	}
}

// RecordReplan counts a replan caused by reason.
func RecordReplan(reason string) {
	replans.WithLabelValues(reason).Inc()
}

func RecordPendingDecision(kind string) {
	pendingDecisions.WithLabelValues(kind).Inc()
}

func RecordResolution(action string) {
	resolutions.WithLabelValues(action).Inc()
}

func RecordEvent(eventType string) {
	events.WithLabelValues(eventType).Inc()
}

// SessionOpened and SessionClosed track the live session gauge.
func SessionOpened() { activeSessions.Inc() }

func SessionClosed() { activeSessions.Dec() }
