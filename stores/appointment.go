package stores

import (
	"context"
	"errors"
	"time"

	"github.com/slotwise/slotwise/models"
	"github.com/slotwise/slotwise/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"
)

type AppointmentStore struct {
	BaseStore
}

func CreateAppointmentStore(db *gorm.DB) *AppointmentStore {
	return &AppointmentStore{BaseStore: BaseStore{db: db}}
}

func (s *AppointmentStore) Create(ctx context.Context, appointment *models.Appointment) error {
	return s.GetDB(ctx).Create(appointment).Error
}

func (s *AppointmentStore) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	var appointment models.Appointment
	if err := s.GetDB(ctx).First(&appointment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrAppointmentNotFound
		}
		return nil, err
	}
	return &appointment, nil
}

// FindConflicting issues the locking read behind the slot-conflict
// guard: every non-cancelled appointment for staffID whose
// [starts_at, ends_at) range intersects [start, end). SKIP LOCKED means
// rows held by a concurrent transaction are passed over instead of
// awaited, so a losing booker fails fast instead of queueing on a
// peer's lock.
func (s *AppointmentStore) FindConflicting(ctx context.Context, staffID string, start, end time.Time) ([]*models.Appointment, error) {
	var conflicts []*models.Appointment
	err := s.GetDB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("staff_id = ? AND status <> ? AND starts_at < ? AND ends_at > ?",
			staffID, models.AppointmentStatusCancelled, end, start).
		Find(&conflicts).Error
	if err != nil {
		return nil, err
	}
	return conflicts, nil
}

// ListForStaffBetween is a read-only availability query; it is routed
// to a replica when one is configured.
func (s *AppointmentStore) ListForStaffBetween(ctx context.Context, staffID string, from, to time.Time) ([]*models.Appointment, error) {
	var appointments []*models.Appointment
	err := s.GetDB(ctx).
		Clauses(dbresolver.Read).
		Where("staff_id = ? AND status <> ? AND starts_at < ? AND ends_at > ?",
			staffID, models.AppointmentStatusCancelled, to, from).
		Order("starts_at ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (s *AppointmentStore) MarkCancelled(ctx context.Context, id string, cancelledBy models.CancelActor, reason string) error {
	now := time.Now()
	result := s.GetDB(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status NOT IN ?", id,
			[]models.AppointmentStatus{models.AppointmentStatusCancelled, models.AppointmentStatusCompleted}).
		Updates(map[string]interface{}{
			"status":              models.AppointmentStatusCancelled,
			"cancelled_by":        cancelledBy,
			"cancellation_reason": reason,
			"cancelled_at":        now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrAppointmentNotFound
	}
	return nil
}

func (s *AppointmentStore) MarkCompleted(ctx context.Context, id string) error {
	return s.updateStatus(ctx, id, models.AppointmentStatusConfirmed, models.AppointmentStatusCompleted)
}

func (s *AppointmentStore) MarkNoShow(ctx context.Context, id string) error {
	return s.updateStatus(ctx, id, models.AppointmentStatusConfirmed, models.AppointmentStatusNoShow)
}

func (s *AppointmentStore) updateStatus(ctx context.Context, id string, from, to models.AppointmentStatus) error {
	result := s.GetDB(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrAppointmentNotFound
	}
	return nil
}

// SetDepositStatus transitions the deposit state only when it still has
// the expected current value. The conditional update keeps two
// concurrent cancellation requests from double-processing one refund.
func (s *AppointmentStore) SetDepositStatus(ctx context.Context, id string, from, to models.DepositStatus) (bool, error) {
	result := s.GetDB(ctx).Model(&models.Appointment{}).
		Where("id = ? AND deposit_status = ?", id, from).
		Update("deposit_status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
