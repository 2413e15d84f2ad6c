// Package metrics exposes the daemon's Prometheus instrumentation. The
// last-cycle gauge doubles as the liveness signal: an external supervisor
// can alert when it stops advancing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CyclesTotal counts completed poll cycles by outcome ("ok", "error").
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bursar_cycles_total",
			Help: "Total number of poll cycles, by outcome.",
		},
		[]string{"outcome"},
	)

	// RepliesSentTotal counts chat replies successfully posted to the gateway.
	RepliesSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bursar_replies_sent_total",
			Help: "Total number of chat replies posted.",
		},
	)

	// ProviderFailuresTotal counts generate calls that exhausted their retries.
	ProviderFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bursar_provider_failures_total",
			Help: "Total number of provider generation failures after retries.",
		},
	)

	// GatewayFailuresTotal counts failed gateway calls by operation.
	GatewayFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bursar_gateway_failures_total",
			Help: "Total number of failed approval gateway calls, by operation.",
		},
		[]string{"op"},
	)

	// WebhookRejectedTotal counts inbound webhook payloads rejected before parsing.
	WebhookRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bursar_webhook_rejected_total",
			Help: "Total number of inbound webhook payloads that failed signature verification.",
		},
	)

	// PendingApprovals gauges the size of the pending list seen last cycle.
	PendingApprovals = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bursar_pending_approvals",
			Help: "Pending approvals observed in the most recent poll cycle.",
		},
	)

	// LastCycleTimestamp is the liveness signal: Unix time of the last
	// successfully completed cycle.
	LastCycleTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bursar_last_cycle_timestamp_seconds",
			Help: "Unix timestamp of the last successfully completed poll cycle.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		CyclesTotal,
		RepliesSentTotal,
		ProviderFailuresTotal,
		GatewayFailuresTotal,
		WebhookRejectedTotal,
		PendingApprovals,
		LastCycleTimestamp,
	)
}

// MarkCycle records a completed cycle and advances the liveness gauge on
// success.
func MarkCycle(ok bool, finished time.Time) {
	if ok {
		CyclesTotal.WithLabelValues("ok").Inc()
		LastCycleTimestamp.Set(float64(finished.Unix()))
		return
	}
	CyclesTotal.WithLabelValues("error").Inc()
}
