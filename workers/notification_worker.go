package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/slotwise/slotwise/models"
	"github.com/slotwise/slotwise/notify"
	"github.com/slotwise/slotwise/utils"
)

// JobStore is the slice of the notification job store the worker needs.
type JobStore interface {
	ResetStale(ctx context.Context, staleAfter time.Duration) (int64, error)
	ClaimBatch(ctx context.Context, limit int) ([]*models.NotificationJob, error)
	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, attempts, maxAttempts int, errText string) error
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type WorkerConfig struct {
	PollInterval time.Duration
	StaleAfter   time.Duration
	BatchSize    int
}

// NotificationWorker polls the durable job table and delivers claimed
// jobs through the notification sender. Any number of instances may run
// concurrently: claiming uses a SKIP LOCKED read, so a row is only ever
// seen by one instance at a time. Start and Stop give the poll loop an
// explicit lifecycle instead of a fire-and-forget timer.
type NotificationWorker struct {
	jobs   JobStore
	sender notify.Sender
	logger *utils.Logger
	config WorkerConfig

	startOnce sync.Once
	stopOnce  sync.Once
	stopChan  chan struct{}
	doneChan  chan struct{}
}

func NewNotificationWorker(jobs JobStore, sender notify.Sender, config WorkerConfig) *NotificationWorker {
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = 5 * time.Minute
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	return &NotificationWorker{
		jobs:     jobs,
		sender:   sender,
		logger:   utils.NewLogger("notification-worker"),
		config:   config,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start launches the poll loop. Calling it more than once is a no-op.
func (w *NotificationWorker) Start() {
	w.startOnce.Do(func() {
		go w.run()
	})
}

// Stop signals the loop and waits for the in-flight tick to finish.
func (w *NotificationWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		<-w.doneChan
	})
}

func (w *NotificationWorker) run() {
	defer close(w.doneChan)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			ctx := context.Background()
			if err := w.Tick(ctx); err != nil {
				w.logger.Error(ctx, "notification poll tick failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

// Tick runs one poll pass: recover stale claims, claim a batch, process
// each claimed job independently. A failing job never aborts the batch.
func (w *NotificationWorker) Tick(ctx context.Context) error {
	recovered, err := w.jobs.ResetStale(ctx, w.config.StaleAfter)
	if err != nil {
		return fmt.Errorf("stale job recovery: %w", err)
	}
	if recovered > 0 {
		w.logger.Info(ctx, "recovered stale notification jobs", map[string]interface{}{
			"count": recovered,
		})
	}

	claimed, err := w.jobs.ClaimBatch(ctx, w.config.BatchSize)
	if err != nil {
		return fmt.Errorf("claim batch: %w", err)
	}

	for _, job := range claimed {
		w.processJob(ctx, job)
	}
	return nil
}

func (w *NotificationWorker) processJob(ctx context.Context, job *models.NotificationJob) {
	defer func() {
		if r := recover(); r != nil {
			w.failJob(ctx, job, fmt.Sprintf("panic: %v", r))
		}
	}()

	result, err := w.sender.Send(ctx, decodeNotification(job))
	if err != nil {
		w.failJob(ctx, job, err.Error())
		return
	}
	if result.Status != notify.StatusSent {
		w.failJob(ctx, job, channelSummary(result))
		return
	}

	if err := w.jobs.MarkCompleted(ctx, job.ID); err != nil {
		w.logger.Error(ctx, "failed to mark notification job completed", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
	}
}

func (w *NotificationWorker) failJob(ctx context.Context, job *models.NotificationJob, errText string) {
	w.logger.Warn(ctx, "notification job delivery failed", map[string]interface{}{
		"job_id":       job.ID,
		"type":         job.Type,
		"attempts":     job.Attempts,
		"max_attempts": job.MaxAttempts,
		"error":        errText,
	})

	if err := w.jobs.MarkFailed(ctx, job.ID, job.Attempts, job.MaxAttempts, errText); err != nil {
		w.logger.Error(ctx, "failed to record notification job failure", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
	}
}

// CleanupOldJobs deletes completed jobs older than retentionDays. It is
// invoked by an external scheduler, not by the poll loop.
func (w *NotificationWorker) CleanupOldJobs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = 7
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	deleted, err := w.jobs.DeleteCompletedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup old jobs: %w", err)
	}

	w.logger.Info(ctx, "cleaned up old notification jobs", map[string]interface{}{
		"deleted":        deleted,
		"retention_days": retentionDays,
	})
	return deleted, nil
}

func decodeNotification(job *models.NotificationJob) notify.Notification {
	n := notify.Notification{
		TenantID: job.TenantID,
		ClientID: job.ClientID,
		Kind:     job.Type,
	}
	n.Email, _ = job.Payload["email"].(string)
	n.Phone, _ = job.Payload["phone"].(string)
	n.Subject, _ = job.Payload["subject"].(string)
	n.Body, _ = job.Payload["body"].(string)
	if n.Subject == "" {
		n.Subject = subjectFor(job.Type)
	}
	if n.Body == "" {
		raw, _ := json.Marshal(job.Payload)
		n.Body = string(raw)
	}
	return n
}

func channelSummary(result *notify.SendResult) string {
	keys := make([]string, 0, len(result.PerChannel))
	for k := range result.PerChannel {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, result.PerChannel[k]))
	}
	if len(parts) == 0 {
		return "delivery failed"
	}
	return strings.Join(parts, "; ")
}

func subjectFor(jobType string) string {
	switch jobType {
	case models.NotificationTypeBookingConfirmed:
		return "Your appointment is confirmed"
	case models.NotificationTypeCancellation:
		return "Your appointment was cancelled"
	case models.NotificationTypeRefundIssued:
		return "Your deposit refund"
	}
	return "Appointment update"
}
