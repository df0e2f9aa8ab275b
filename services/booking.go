package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/slotwise/slotwise/models"
	"github.com/slotwise/slotwise/stores"
	"github.com/slotwise/slotwise/utils"
)

// AppointmentBookingStore is the slice of the appointment store the
// booking service needs.
type AppointmentBookingStore interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error, opts ...*sql.TxOptions) error
	FindConflicting(ctx context.Context, staffID string, start, end time.Time) ([]*models.Appointment, error)
	Create(ctx context.Context, appointment *models.Appointment) error
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	MarkCancelled(ctx context.Context, id string, cancelledBy models.CancelActor, reason string) error
}

// NotificationEnqueuer schedules a notification job, joining whatever
// transaction is bound to ctx.
type NotificationEnqueuer interface {
	Enqueue(ctx context.Context, job *models.NotificationJob) error
}

// BookingOptions tunes the transient-conflict retry policy and the
// per-attempt transaction timeout.
type BookingOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
	TxTimeout   time.Duration
}

type BookingService struct {
	appointments AppointmentBookingStore
	jobs         NotificationEnqueuer
	logger       *utils.Logger
	opts         BookingOptions
}

func NewBookingService(appointments AppointmentBookingStore, jobs NotificationEnqueuer, opts BookingOptions) *BookingService {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 100 * time.Millisecond
	}
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = 10 * time.Second
	}
	return &BookingService{
		appointments: appointments,
		jobs:         jobs,
		logger:       utils.NewLogger("booking"),
		opts:         opts,
	}
}

// BookSlot creates a confirmed appointment for the requested staff time
// range, or fails with utils.ErrSlotConflict when the range is taken.
//
// Each attempt runs as one repeatable-read transaction: a SKIP LOCKED
// locking read over conflicting ranges, then the insert. A non-empty
// read is a semantic rejection and is never retried; only transient
// store write-conflicts rerun the whole transaction, up to
// opts.MaxAttempts with exponential backoff. An exclusion-constraint
// violation at insert means a concurrent transaction won the range
// between our read and commit, which is the same semantic conflict.
func (s *BookingService) BookSlot(ctx context.Context, req *models.BookingRequest) (*models.Appointment, error) {
	if !req.EndsAt.After(req.StartsAt) {
		return nil, utils.ErrInvalidTimeRange
	}

	var appointment *models.Appointment

	attempt := func() error {
		txCtx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
		defer cancel()

		return s.appointments.WithTransaction(txCtx, func(c context.Context) error {
			conflicts, err := s.appointments.FindConflicting(c, req.StaffID, req.StartsAt, req.EndsAt)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return utils.ErrSlotConflict
			}

			appt := &models.Appointment{
				TenantID:      req.TenantID,
				StaffID:       req.StaffID,
				ClientID:      req.ClientID,
				ServiceID:     req.ServiceID,
				LocationID:    req.LocationID,
				StartsAt:      req.StartsAt,
				EndsAt:        req.EndsAt,
				PriceCents:    req.PriceCents,
				DepositCents:  req.DepositCents,
				Status:        models.AppointmentStatusConfirmed,
				DepositStatus: models.DepositStatusNone,
			}
			if err := s.appointments.Create(c, appt); err != nil {
				if stores.IsExclusionViolation(err) {
					return utils.ErrSlotConflict
				}
				return err
			}

			job := &models.NotificationJob{
				TenantID:      req.TenantID,
				ClientID:      req.ClientID,
				AppointmentID: &appt.ID,
				Type:          models.NotificationTypeBookingConfirmed,
				Payload:       notificationPayload(req, appt),
				MaxAttempts:   3,
			}
			if err := s.jobs.Enqueue(c, job); err != nil {
				return err
			}

			appointment = appt
			return nil
		}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	}

	retryConfig := &utils.RetryConfig{
		MaxAttempts: s.opts.MaxAttempts,
		BaseDelay:   s.opts.BaseDelay,
		Multiplier:  2.0,
		BackoffType: utils.Exponential,
		RetryIf:     stores.IsTransient,
		OnRetry: func(attemptNum int, err error) {
			s.logger.Warn(ctx, "transient write conflict during booking, retrying", map[string]interface{}{
				"staff_id": req.StaffID,
				"attempt":  attemptNum,
				"error":    err.Error(),
			})
		},
	}

	if err := utils.Retry(ctx, retryConfig, attempt); err != nil {
		return nil, err
	}
	return appointment, nil
}

// Cancel marks the appointment cancelled and schedules the cancellation
// notice in the same transaction. Refund handling is the refund
// engine's job and runs separately.
func (s *BookingService) Cancel(ctx context.Context, appointmentID string, cancelledBy models.CancelActor, reason string) (*models.Appointment, error) {
	var appointment *models.Appointment

	err := s.appointments.WithTransaction(ctx, func(c context.Context) error {
		if err := s.appointments.MarkCancelled(c, appointmentID, cancelledBy, reason); err != nil {
			return err
		}

		appt, err := s.appointments.GetByID(c, appointmentID)
		if err != nil {
			return err
		}

		job := &models.NotificationJob{
			TenantID:      appt.TenantID,
			ClientID:      appt.ClientID,
			AppointmentID: &appt.ID,
			Type:          models.NotificationTypeCancellation,
			Payload: models.JSON{
				"appointment_id": appt.ID,
				"starts_at":      appt.StartsAt.Format(time.RFC3339),
				"cancelled_by":   string(cancelledBy),
				"reason":         reason,
			},
			MaxAttempts: 3,
		}
		if err := s.jobs.Enqueue(c, job); err != nil {
			return err
		}

		appointment = appt
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cancel appointment %s: %w", appointmentID, err)
	}
	return appointment, nil
}

func notificationPayload(req *models.BookingRequest, appt *models.Appointment) models.JSON {
	return models.JSON{
		"appointment_id": appt.ID,
		"staff_id":       appt.StaffID,
		"starts_at":      appt.StartsAt.Format(time.RFC3339),
		"ends_at":        appt.EndsAt.Format(time.RFC3339),
		"email":          req.ClientEmail,
		"phone":          req.ClientPhone,
	}
}
