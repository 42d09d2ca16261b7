// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

// Package metrics declares the Prometheus instrumentation: database
// fetch performance, change feed health, reconciler activity, WebSocket
// fan-out, and API throughput. Exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulse_db_query_duration_seconds",
			Help:    "Duration of database fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_db_query_errors_total",
			Help: "Total number of database query errors",
		},
		[]string{"operation", "table"},
	)

	DBRowsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_db_rows_fetched_total",
			Help: "Total rows returned by full-table fetches",
		},
		[]string{"table"},
	)

	// Change feed
	FeedNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_feed_notifications_total",
			Help: "Change notifications received, by table and operation",
		},
		[]string{"table", "op"},
	)

	FeedState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pulse_feed_state",
			Help: "Change feed state (1 for the current state, 0 otherwise)",
		},
		[]string{"state"},
	)

	FeedRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_feed_retries_total",
			Help: "Subscription retries, by trigger",
		},
		[]string{"reason"},
	)

	// Reconciler
	RecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pulse_recompute_duration_seconds",
			Help:    "Duration of full snapshot recomputations",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	RecomputeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_recompute_total",
			Help: "Full recomputations, by trigger",
		},
		[]string{"trigger"},
	)

	DeltasApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_deltas_total",
			Help: "Change deltas processed, by outcome",
		},
		[]string{"outcome"},
	)

	DegradedMode = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulse_degraded_mode",
			Help: "1 when totals are degraded to the base paid count",
		},
	)

	TotalParticipants = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulse_total_participants",
			Help: "Current total participant count",
		},
	)

	// Team cross-check breaker
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulse_team_breaker_state",
			Help: "Team cross-check circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)

	// WebSocket
	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulse_websocket_clients",
			Help: "Currently connected WebSocket clients",
		},
	)

	WSBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulse_websocket_broadcasts_total",
			Help: "Snapshot broadcasts pushed to WebSocket clients",
		},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulse_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)
)

// SetFeedState flips the feed state gauge so exactly one state reads 1.
func SetFeedState(state string) {
	for _, s := range []string{"connecting", "subscribed", "error", "timed_out", "closed"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		FeedState.WithLabelValues(s).Set(v)
	}
}
