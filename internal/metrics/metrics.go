package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label value constants to prevent typos
const (
	// Queue types
	QueueTypeSyncJob = "sync_job"

	// Queue results
	ResultSuccess = "success"
	ResultRetry   = "retry"
	ResultDropped = "dropped"
	ResultFailure = "failure"

	// Worker outcomes
	OutcomeSyncJobFound = "sync_job_found"
	OutcomeIdle         = "idle"

	// HTTP endpoints
	EndpointDashboard         = "dashboard"
	EndpointSteps             = "steps"
	EndpointStepEntry         = "step_entry"
	EndpointLeaderboardGlobal = "leaderboard_global"
	EndpointLeaderboardGroup  = "leaderboard_group"
	EndpointGroups            = "groups"
	EndpointGroupDetail       = "group_detail"
	EndpointOAuthStart        = "oauth_start"
	EndpointOAuthCallback     = "oauth_callback"
	EndpointSync              = "sync"
	EndpointHealth            = "health"

	// Fitbit API operations
	OpExchangeCode  = "exchange_code"
	OpRefreshToken  = "refresh_token"
	OpGetDailySteps = "get_daily_steps"

	// Badge trigger types (metric labels)
	TriggerSteps  = "steps"
	TriggerStreak = "streak"

	// Leaderboard scopes
	ScopeGlobal = "global"
	ScopeGroup  = "group"

	// Database operations
	DBOpEnqueueSyncJob = "enqueue_sync_job"
	DBOpClaimSyncJob   = "claim_sync_job"
	DBOpDeleteSyncJob  = "delete_sync_job"
	DBOpReleaseSyncJob = "release_sync_job"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint", "status_code"},
	)
)

// Queue Metrics
var (
	QueueDepthTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth_total",
			Help: "Total number of items in queue (all states)",
		},
		[]string{"queue_type"},
	)

	QueueDepthReady = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth_ready",
			Help: "Number of items ready for processing",
		},
		[]string{"queue_type"},
	)

	QueueDepthProcessing = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth_processing",
			Help: "Number of items currently being processed",
		},
		[]string{"queue_type"},
	)

	QueueEnqueueTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_enqueue_total",
			Help: "Total number of items enqueued",
		},
		[]string{"queue_type"},
	)

	QueueDequeueTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_dequeue_total",
			Help: "Total number of items dequeued with outcome",
		},
		[]string{"queue_type", "result"},
	)

	QueueRetryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_retry_total",
			Help: "Total number of retry attempts",
		},
		[]string{"queue_type", "retry_count"},
	)

	QueueProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queue_processing_duration_seconds",
			Help:    "Time spent processing a queue item in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"queue_type", "result"},
	)
)

// Worker Metrics
var (
	WorkerPollCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_poll_cycles_total",
			Help: "Total number of worker poll cycles by outcome",
		},
		[]string{"outcome"},
	)

	WorkerActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_active",
			Help: "Whether the sync worker is currently active (1) or not (0)",
		},
	)
)

// Fitbit API Metrics
var (
	FitbitAPIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitbit_api_requests_total",
			Help: "Total number of Fitbit API requests",
		},
		[]string{"operation", "status_code"},
	)

	FitbitAPIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fitbit_api_request_duration_seconds",
			Help:    "Fitbit API request latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation", "status_code"},
	)

	FitbitRateLimitRemaining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fitbit_rate_limit_remaining",
			Help: "Remaining Fitbit API requests in the current window",
		},
	)
)

// Database Metrics
var (
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Database operation latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	DBOperationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_operation_errors_total",
			Help: "Total number of database operation errors",
		},
		[]string{"operation"},
	)
)

// Business Metrics
var (
	RecomputationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_recomputations_total",
			Help: "Total number of streak/points recomputations",
		},
	)

	BadgesAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_badges_awarded_total",
			Help: "Total number of badges awarded by trigger type",
		},
		[]string{"trigger_type"},
	)

	LeaderboardRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_leaderboard_requests_total",
			Help: "Total number of leaderboard rankings computed",
		},
		[]string{"scope"},
	)

	SyncedDaysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_days_completed_total",
			Help: "Total number of per-day wearable syncs completed",
		},
	)
)
