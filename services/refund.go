package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slotwise/slotwise/models"
	"github.com/slotwise/slotwise/providers"
	"github.com/slotwise/slotwise/utils"
)

const reasonAuthorizationCancelled = "Authorization cancelled (not charged)"

// RefundAppointmentStore is the slice of the appointment store the
// refund engine needs.
type RefundAppointmentStore interface {
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	SetDepositStatus(ctx context.Context, id string, from, to models.DepositStatus) (bool, error)
}

// RefundPaymentStore is the slice of the payment store the refund
// engine needs.
type RefundPaymentStore interface {
	GetByAppointmentID(ctx context.Context, appointmentID string) (*models.Payment, error)
	MarkRefunded(ctx context.Context, id string, amountCents int64, reason, providerRefundID string, refundedAt time.Time) error
	MarkCancelled(ctx context.Context, id string, reason string) error
}

// RefundService decides and executes cancellation refunds. Local state
// is only written after the payment processor reports success, so a
// processor failure leaves everything unchanged and the whole operation
// can simply be retried.
type RefundService struct {
	appointments RefundAppointmentStore
	payments     RefundPaymentStore
	processor    providers.PaymentProcessor
	jobs         NotificationEnqueuer
	cutoffHours  float64
	logger       *utils.Logger
	now          func() time.Time
}

func NewRefundService(appointments RefundAppointmentStore, payments RefundPaymentStore, processor providers.PaymentProcessor, jobs NotificationEnqueuer, cutoffHours float64) *RefundService {
	if cutoffHours <= 0 {
		cutoffHours = 24
	}
	return &RefundService{
		appointments: appointments,
		payments:     payments,
		processor:    processor,
		jobs:         jobs,
		cutoffHours:  cutoffHours,
		logger:       utils.NewLogger("refund"),
		now:          time.Now,
	}
}

// ProcessCancellationRefund applies the refund policy:
//
//  1. no recorded payment, or a zero deposit: nothing to refund
//  2. salon cancellations are always eligible
//  3. client cancellations are eligible when the appointment starts at
//     least cutoffHours from now
//  4. late client cancellations are ineligible: the deposit is flagged
//     no_refund and the result asks for manual review
//
// An eligible authorized (uncaptured) deposit has its hold released; an
// eligible captured deposit is refunded in full. The authorization hold
// of a late client cancellation is deliberately left open pending
// product guidance on expiry.
func (s *RefundService) ProcessCancellationRefund(ctx context.Context, appointmentID string, cancelledBy models.CancelActor, reason string) (*models.RefundResult, error) {
	appointment, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	payment, err := s.payments.GetByAppointmentID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, utils.ErrPaymentNotFound) {
			return &models.RefundResult{Refunded: false, Reason: "no deposit on file"}, nil
		}
		return nil, err
	}

	if appointment.DepositCents <= 0 {
		return &models.RefundResult{Refunded: false, Reason: "no deposit on file"}, nil
	}

	if cancelledBy == models.CancelledByClient {
		hoursUntil := appointment.StartsAt.Sub(s.now()).Hours()
		if hoursUntil < s.cutoffHours {
			if _, err := s.appointments.SetDepositStatus(ctx, appointment.ID, appointment.DepositStatus, models.DepositStatusNoRefund); err != nil {
				return nil, err
			}
			return &models.RefundResult{
				Refunded:             false,
				Reason:               fmt.Sprintf("cancelled within %.0f hours of start", s.cutoffHours),
				RequiresManualReview: true,
			}, nil
		}
	}

	switch appointment.DepositStatus {
	case models.DepositStatusAuthorized:
		return s.releaseAuthorization(ctx, appointment, payment)
	case models.DepositStatusCaptured:
		return s.refundDeposit(ctx, appointment, payment, reason)
	default:
		return &models.RefundResult{
			Refunded: false,
			Reason:   fmt.Sprintf("deposit in state %q, nothing to refund", appointment.DepositStatus),
		}, nil
	}
}

func (s *RefundService) releaseAuthorization(ctx context.Context, appointment *models.Appointment, payment *models.Payment) (*models.RefundResult, error) {
	if err := s.processor.CancelAuthorization(ctx, payment.ProviderRef); err != nil {
		return nil, fmt.Errorf("appointment %s: cancel authorization via %s: %w", appointment.ID, s.processor.Name(), err)
	}

	if _, err := s.appointments.SetDepositStatus(ctx, appointment.ID, models.DepositStatusAuthorized, models.DepositStatusCancelled); err != nil {
		return nil, err
	}
	if err := s.payments.MarkCancelled(ctx, payment.ID, reasonAuthorizationCancelled); err != nil {
		return nil, err
	}

	s.enqueueRefundNotice(ctx, appointment, 0, reasonAuthorizationCancelled)

	return &models.RefundResult{
		Refunded: true,
		Reason:   reasonAuthorizationCancelled,
	}, nil
}

func (s *RefundService) refundDeposit(ctx context.Context, appointment *models.Appointment, payment *models.Payment, reason string) (*models.RefundResult, error) {
	record, err := s.processor.Refund(ctx, payment.ProviderRef, appointment.DepositCents, reason)
	if err != nil {
		return nil, fmt.Errorf("appointment %s: refund via %s: %w", appointment.ID, s.processor.Name(), err)
	}

	refundedAt := s.now()
	if err := s.payments.MarkRefunded(ctx, payment.ID, appointment.DepositCents, reason, record.ID, refundedAt); err != nil {
		return nil, err
	}
	if _, err := s.appointments.SetDepositStatus(ctx, appointment.ID, models.DepositStatusCaptured, models.DepositStatusRefunded); err != nil {
		return nil, err
	}

	s.enqueueRefundNotice(ctx, appointment, appointment.DepositCents, reason)

	return &models.RefundResult{
		Refunded:          true,
		RefundAmountCents: appointment.DepositCents,
		Reason:            reason,
	}, nil
}

// enqueueRefundNotice is best-effort: a refund that executed but could
// not schedule its notification is still a successful refund.
func (s *RefundService) enqueueRefundNotice(ctx context.Context, appointment *models.Appointment, amountCents int64, reason string) {
	if s.jobs == nil {
		return
	}

	job := &models.NotificationJob{
		TenantID:      appointment.TenantID,
		ClientID:      appointment.ClientID,
		AppointmentID: &appointment.ID,
		Type:          models.NotificationTypeRefundIssued,
		Payload: models.JSON{
			"appointment_id":      appointment.ID,
			"refund_amount_cents": amountCents,
			"reason":              reason,
		},
		MaxAttempts: 3,
	}
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		s.logger.Error(ctx, "failed to enqueue refund notification", map[string]interface{}{
			"appointment_id": appointment.ID,
			"error":          err.Error(),
		})
	}
}
