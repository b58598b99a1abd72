// Package worker runs the background sync loop: it drains the sync job
// queue, pulls daily step totals from Fitbit, writes them into the ledger,
// and triggers a gamification recomputation for the affected user.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"stridesync/internal/database"
	"stridesync/internal/engine"
	"stridesync/internal/fitbit"
	"stridesync/internal/metrics"
	"stridesync/internal/oauth"
)

// Worker processes sync jobs from the queue
type Worker struct {
	db           *database.DB
	fitbitClient *fitbit.Client
	oauthManager *oauth.Manager
	engine       *engine.Engine
	logger       *slog.Logger
	pollInterval time.Duration
}

// NewWorker creates a new sync worker
func NewWorker(db *database.DB, fitbitClient *fitbit.Client, oauthManager *oauth.Manager, eng *engine.Engine) *Worker {
	return &Worker{
		db:           db,
		fitbitClient: fitbitClient,
		oauthManager: oauthManager,
		engine:       eng,
		logger:       slog.Default(),
		pollInterval: 500 * time.Millisecond,
	}
}

// Start begins processing sync jobs until the context is cancelled
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting sync worker")
	metrics.WorkerActive.Set(1)
	defer metrics.WorkerActive.Set(0)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping sync worker")
			return ctx.Err()
		default:
			job, err := w.db.ClaimSyncJob()
			if err != nil {
				w.logger.Error("Failed to claim sync job", "error", err)
				time.Sleep(w.pollInterval)
				continue
			}

			if job != nil {
				metrics.WorkerPollCyclesTotal.WithLabelValues(metrics.OutcomeSyncJobFound).Inc()
				w.processSyncJob(ctx, job)
				continue
			}

			// Nothing to process
			metrics.WorkerPollCyclesTotal.WithLabelValues(metrics.OutcomeIdle).Inc()
			time.Sleep(w.pollInterval)
		}
	}
}

// processSyncJob handles a single sync job: fetch the day's steps from
// Fitbit, upsert the synced ledger entry, and recompute derived state.
func (w *Worker) processSyncJob(ctx context.Context, job *database.SyncJob) {
	start := time.Now()
	w.logger.Info("Processing sync job",
		"id", job.ID,
		"user_id", job.UserID,
		"sync_date", job.SyncDate,
		"retry_count", job.RetryCount)

	err := w.syncDay(ctx, job.UserID, job.SyncDate)

	if err != nil {
		if errors.Is(err, oauth.ErrNotConnected) || fitbit.IsUnauthorized(err) {
			// Disconnected or revoked users are not retryable
			w.logger.Warn("User not connected or unauthorized, dropping sync job",
				"id", job.ID, "user_id", job.UserID)
			w.completeSyncJob(job.ID, start, metrics.ResultDropped)
			return
		}

		w.logger.Error("Failed to process sync job", "id", job.ID, "error", err)
		duration := time.Since(start).Seconds()
		metrics.QueueProcessingDuration.WithLabelValues(metrics.QueueTypeSyncJob, metrics.ResultFailure).Observe(duration)
		metrics.QueueDequeueTotal.WithLabelValues(metrics.QueueTypeSyncJob, metrics.ResultRetry).Inc()
		metrics.QueueRetryTotal.WithLabelValues(metrics.QueueTypeSyncJob, strconv.Itoa(job.RetryCount+1)).Inc()
		w.releaseSyncJob(job.ID, job.RetryCount, err.Error())
		return
	}

	w.completeSyncJob(job.ID, start, metrics.ResultSuccess)
	metrics.SyncedDaysTotal.Inc()
	w.logger.Info("Sync job processed successfully",
		"id", job.ID, "user_id", job.UserID, "sync_date", job.SyncDate)
}

// syncDay pulls one day of steps for a user and folds it into the ledger
func (w *Worker) syncDay(ctx context.Context, userID int64, syncDate string) error {
	accessToken, err := w.oauthManager.AccessTokenFor(ctx, userID)
	if err != nil {
		return err
	}

	steps, err := w.fitbitClient.GetDailySteps(ctx, accessToken, syncDate)
	if err != nil {
		return err
	}

	if err := w.db.UpsertSyncedEntry(userID, syncDate, steps, time.Now().Unix()); err != nil {
		return err
	}

	// The ledger changed, so streak, points, and badges must be rederived
	if _, err := w.engine.Recompute(userID); err != nil {
		return err
	}

	return nil
}

// completeSyncJob deletes a finished job and records its outcome
func (w *Worker) completeSyncJob(jobID int64, start time.Time, result string) {
	if err := w.db.DeleteSyncJob(jobID); err != nil {
		w.logger.Error("Failed to delete sync job", "id", jobID, "error", err)
		return
	}
	duration := time.Since(start).Seconds()
	metrics.QueueProcessingDuration.WithLabelValues(metrics.QueueTypeSyncJob, result).Observe(duration)
	metrics.QueueDequeueTotal.WithLabelValues(metrics.QueueTypeSyncJob, result).Inc()
}

// releaseSyncJob releases a failed sync job back to the queue with
// exponential backoff
func (w *Worker) releaseSyncJob(jobID int64, currentRetryCount int, errorMsg string) {
	shouldRetry, err := w.db.ReleaseSyncJob(jobID, currentRetryCount, errorMsg)
	if err != nil {
		w.logger.Error("Failed to release sync job", "id", jobID, "error", err)
		return
	}

	if !shouldRetry {
		w.logger.Warn("Sync job exceeded max retries, dropped",
			"id", jobID,
			"retry_count", currentRetryCount)
	} else {
		w.logger.Info("Sync job released for retry",
			"id", jobID,
			"retry_count", currentRetryCount+1)
	}
}
