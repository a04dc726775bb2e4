/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes Prometheus metrics and OpenTelemetry tracing.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PhaseTransitionsTotal counts controller phase transitions.
	PhaseTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "muninn",
		Subsystem: "player",
		Name:      "phase_transitions_total",
		Help:      "Number of playback phase transitions.",
	}, []string{"from", "to"})

	// PlaybackFailuresTotal counts failed health polls routed into recovery.
	PlaybackFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "muninn",
		Subsystem: "player",
		Name:      "playback_failures_total",
		Help:      "Number of playback failures by source kind.",
	}, []string{"kind"})

	// SourceFallbacksTotal counts retry-exhausted advances to the next source.
	SourceFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "muninn",
		Subsystem: "player",
		Name:      "source_fallbacks_total",
		Help:      "Number of automatic fallbacks to the next configured source.",
	})

	// LiveInterruptsTotal counts live streams pre-empting sequential playback.
	LiveInterruptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "muninn",
		Subsystem: "player",
		Name:      "live_interrupts_total",
		Help:      "Number of live streams that pre-empted normal playback.",
	})

	// ActiveSourceIndex reports the registry cursor.
	ActiveSourceIndex = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "muninn",
		Subsystem: "player",
		Name:      "active_source_index",
		Help:      "Index of the currently selected source.",
	})

	// BackendStartDuration observes how long backend starts take to launch.
	BackendStartDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "muninn",
		Subsystem: "backend",
		Name:      "start_duration_seconds",
		Help:      "Time from start request to launch acknowledgement.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	// ButtonPressesTotal counts physical input events by button.
	ButtonPressesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "muninn",
		Subsystem: "input",
		Name:      "button_presses_total",
		Help:      "Number of button press events processed.",
	}, []string{"button"})

	// DatabaseQueryDuration observes persistence operation latency.
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "muninn",
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "Database operation duration.",
		Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts persistence errors.
	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "muninn",
		Subsystem: "db",
		Name:      "errors_total",
		Help:      "Database errors by operation.",
	}, []string{"operation", "kind"})

	// APIRequestDuration observes status API request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "muninn",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "Status API request duration.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIRequestsTotal counts status API requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "muninn",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Status API requests by endpoint and status.",
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections tracks in-flight status API requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "muninn",
		Subsystem: "api",
		Name:      "active_connections",
		Help:      "In-flight status API requests.",
	})
)
