package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clash_service"

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	unitStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "core",
			Name:      "starts_total",
			Help:      "Number of successful core starts.",
		}, []string{"unit"},
	)
	unitStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "core",
			Name:      "stops_total",
			Help:      "Number of requested core stops.",
		}, []string{"unit"},
	)
	unitExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "core",
			Name:      "unexpected_exits_total",
			Help:      "Number of cores found dead while recorded as running.",
		}, []string{"unit"},
	)
	spawnFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "core",
			Name:      "spawn_failures_total",
			Help:      "Number of starts the OS refused.",
		}, []string{"unit"},
	)
	forcedKills = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "core",
			Name:      "forced_kills_total",
			Help:      "Number of terminations that escalated to a forced kill.",
		},
	)
	reapedChildren = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "daemon",
			Name:      "reaped_children_total",
			Help:      "Number of exited children collected by the SIGCHLD reaper.",
		},
	)

	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "core",
			Name:      "state_transitions_total",
			Help:      "Number of state transitions per unit.",
		}, []string{"unit", "from", "to"},
	)

	currentStates = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "core",
			Name:      "current_state",
			Help:      "Current state of each unit (1 = active state, 0 = inactive).",
		}, []string{"unit", "state"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		unitStarts, unitStops, unitExits, spawnFailures, forcedKills, reapedChildren,
		stateTransitions, currentStates,
		coreCPUPercent, coreMemoryRSS, coreNumThreads,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// already registered with the default registry
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncStart(unit string) {
	if regOK.Load() {
		unitStarts.WithLabelValues(unit).Inc()
	}
}

func IncStop(unit string) {
	if regOK.Load() {
		unitStops.WithLabelValues(unit).Inc()
	}
}

func IncUnexpectedExit(unit string) {
	if regOK.Load() {
		unitExits.WithLabelValues(unit).Inc()
	}
}

func IncSpawnFailure(unit string) {
	if regOK.Load() {
		spawnFailures.WithLabelValues(unit).Inc()
	}
}

func IncForcedKill() {
	if regOK.Load() {
		forcedKills.Inc()
	}
}

func IncReaped() {
	if regOK.Load() {
		reapedChildren.Inc()
	}
}

func RecordStateTransition(unit, from, to string) {
	if regOK.Load() {
		stateTransitions.WithLabelValues(unit, from, to).Inc()
	}
}

func SetCurrentState(unit, state string, active bool) {
	if regOK.Load() {
		var value float64
		if active {
			value = 1
		}
		currentStates.WithLabelValues(unit, state).Set(value)
	}
}
