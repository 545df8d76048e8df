/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics.
var (
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hearthwarden_api_requests_total",
		Help: "Total number of API requests.",
	}, []string{"method", "endpoint", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hearthwarden_api_request_duration_seconds",
		Help:    "API request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hearthwarden_api_active_connections",
		Help: "Number of in-flight API requests.",
	})
)

// Maintenance engine metrics.
var (
	SweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hearthwarden_sweep_runs_total",
		Help: "Total number of due-schedule sweep runs.",
	})

	SweepErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hearthwarden_sweep_errors_total",
		Help: "Total number of sweep errors by stage.",
	}, []string{"stage"})

	SchedulesEvaluatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hearthwarden_schedules_evaluated_total",
		Help: "Total number of due schedules picked up by sweeps.",
	})

	WorkItemsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hearthwarden_work_items_created_total",
		Help: "Total number of maintenance work items created, by origin.",
	}, []string{"origin"})

	TriggerFanoutErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hearthwarden_trigger_fanout_errors_total",
		Help: "Total number of per-unit failures during trigger fan-out.",
	})

	TriggerDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hearthwarden_trigger_duration_seconds",
		Help:    "Duration of schedule trigger executions in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hearthwarden_notifications_sent_total",
		Help: "Total number of notifications sent, by channel and outcome.",
	}, []string{"channel", "outcome"})
)

// Handler exposes the prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
