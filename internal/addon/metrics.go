// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package addon

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for action metrics.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// AddonsByState is the gauge of tracked addons per state.
// Use RegisterMetrics to register this with a Prometheus registry.
var AddonsByState = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "nexus_addons",
		Help: "Number of tracked addons by state",
	},
	[]string{"state"},
)

// ActionsExecuted counts queued actions executed by the dispatcher.
var ActionsExecuted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "nexus_addon_actions_total",
		Help: "Total number of addon actions executed",
	},
	[]string{"action", "outcome"},
)

// QueuePassDuration observes how long one queue drain holds the registry lock.
var QueuePassDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "nexus_addon_queue_pass_seconds",
		Help:    "Duration of one addon queue pass in seconds",
		Buckets: prometheus.DefBuckets,
	},
)

// StaleReferences counts addon callbacks scrubbed after unload.
var StaleReferences = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "nexus_addon_stale_references_total",
		Help: "Total number of addon references left behind after unload",
	},
	[]string{"subsystem"},
)

// UpdateChecks counts completed update checks.
var UpdateChecks = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "nexus_addon_update_checks_total",
		Help: "Total number of addon update checks",
	},
	[]string{"provider", "result"},
)

// RegisterMetrics registers addon metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AddonsByState)
	reg.MustRegister(ActionsExecuted)
	reg.MustRegister(QueuePassDuration)
	reg.MustRegister(StaleReferences)
	reg.MustRegister(UpdateChecks)
}

// RecordAction increments the action counter.
func RecordAction(action Action, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	ActionsExecuted.WithLabelValues(action.String(), outcome).Inc()
}

// RecordQueuePass records the duration of one queue pass.
func RecordQueuePass(d time.Duration) {
	QueuePassDuration.Observe(d.Seconds())
}

// RecordStaleReferences adds n scrubbed references for subsystem.
func RecordStaleReferences(subsystem string, n int) {
	if n > 0 {
		StaleReferences.WithLabelValues(subsystem).Add(float64(n))
	}
}

// RecordUpdateCheck increments the update check counter.
// Parameters:
//   - provider: the update source that was queried
//   - result: "available", "none" or "error"
func RecordUpdateCheck(provider, result string) {
	UpdateChecks.WithLabelValues(provider, result).Inc()
}

// recordStates resets the state gauge to the given addons.
func recordStates(addons []*Addon) {
	counts := make(map[State]int, len(stateNames))
	for st := range stateNames {
		counts[st] = 0
	}
	for _, a := range addons {
		if !a.IsPlaceholder() {
			counts[a.State]++
		}
	}
	for st, n := range counts {
		AddonsByState.WithLabelValues(st.String()).Set(float64(n))
	}
}
