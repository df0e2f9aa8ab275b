package stores

import (
	"context"
	"time"

	"github.com/slotwise/slotwise/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationJobStore struct {
	BaseStore
}

func CreateNotificationJobStore(db *gorm.DB) *NotificationJobStore {
	return &NotificationJobStore{BaseStore: BaseStore{db: db}}
}

// Enqueue inserts a pending job. Callers enqueue inside the same
// transaction as the state change the notification announces, so a
// rolled-back booking never leaves an orphan job behind.
func (s *NotificationJobStore) Enqueue(ctx context.Context, job *models.NotificationJob) error {
	return s.GetDB(ctx).Create(job).Error
}

func (s *NotificationJobStore) GetByID(ctx context.Context, id string) (*models.NotificationJob, error) {
	var job models.NotificationJob
	if err := s.GetDB(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ResetStale returns jobs stuck in processing longer than staleAfter to
// pending. A worker that died mid-job leaves its claim behind; the next
// recovery pass hands the job to a live worker.
func (s *NotificationJobStore) ResetStale(ctx context.Context, staleAfter time.Duration) (int64, error) {
	cutoff := time.Now().Add(-staleAfter)
	result := s.GetDB(ctx).Model(&models.NotificationJob{}).
		Where("status = ? AND updated_at < ?", models.NotificationJobStatusProcessing, cutoff).
		Update("status", models.NotificationJobStatusPending)
	return result.RowsAffected, result.Error
}

// ClaimBatch atomically claims up to limit pending jobs: a SKIP LOCKED
// locking read selects claimable rows, and the same transaction flips
// them to processing with attempts incremented. Concurrent worker
// instances therefore never claim the same row.
func (s *NotificationJobStore) ClaimBatch(ctx context.Context, limit int) ([]*models.NotificationJob, error) {
	var claimed []*models.NotificationJob

	err := s.WithTransaction(ctx, func(txCtx context.Context) error {
		var jobs []*models.NotificationJob
		err := s.GetDB(txCtx).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND attempts < max_attempts", models.NotificationJobStatusPending).
			Order("created_at ASC").
			Limit(limit).
			Find(&jobs).Error
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			return nil
		}

		ids := make([]string, 0, len(jobs))
		for _, job := range jobs {
			ids = append(ids, job.ID)
		}

		err = s.GetDB(txCtx).Model(&models.NotificationJob{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":   models.NotificationJobStatusProcessing,
				"attempts": gorm.Expr("attempts + 1"),
			}).Error
		if err != nil {
			return err
		}

		for _, job := range jobs {
			job.Status = models.NotificationJobStatusProcessing
			job.Attempts++
		}
		claimed = jobs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *NotificationJobStore) MarkCompleted(ctx context.Context, id string) error {
	return s.GetDB(ctx).Model(&models.NotificationJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.NotificationJobStatusCompleted,
			"last_error": "",
		}).Error
}

// MarkFailed records a delivery failure: back to pending while attempts
// remain, failed once the final allowed attempt is spent.
func (s *NotificationJobStore) MarkFailed(ctx context.Context, id string, attempts, maxAttempts int, errText string) error {
	status := models.NotificationJobStatusPending
	if attempts >= maxAttempts {
		status = models.NotificationJobStatusFailed
	}
	return s.GetDB(ctx).Model(&models.NotificationJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"last_error": errText,
		}).Error
}

// DeleteCompletedBefore removes completed jobs whose last update is
// older than cutoff. Pending and failed jobs are never touched.
func (s *NotificationJobStore) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.GetDB(ctx).
		Where("status = ? AND updated_at < ?", models.NotificationJobStatusCompleted, cutoff).
		Delete(&models.NotificationJob{})
	return result.RowsAffected, result.Error
}
