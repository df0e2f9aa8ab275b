package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/slotwise/slotwise/models"
	"github.com/slotwise/slotwise/providers"
	"github.com/slotwise/slotwise/utils"
)

// PaymentEventStore is the slice of the payment store the event
// handler needs.
type PaymentEventStore interface {
	GetByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error)
	UpdateStatus(ctx context.Context, id string, status models.PaymentStatus) error
}

// PaymentEventService applies verified, deduplicated payment-processor
// events to local payment and deposit state. It runs strictly after the
// idempotency ledger has admitted the event.
type PaymentEventService struct {
	payments     PaymentEventStore
	appointments RefundAppointmentStore
	logger       *utils.Logger
}

func NewPaymentEventService(payments PaymentEventStore, appointments RefundAppointmentStore) *PaymentEventService {
	return &PaymentEventService{
		payments:     payments,
		appointments: appointments,
		logger:       utils.NewLogger("payment-events"),
	}
}

func (s *PaymentEventService) ProcessPaymentEvent(ctx context.Context, event *providers.ExternalEvent) error {
	providerRef, err := extractProviderRef(event.Raw)
	if err != nil {
		return fmt.Errorf("event %s: %w", event.ID, err)
	}

	payment, err := s.payments.GetByProviderRef(ctx, providerRef)
	if err != nil {
		if errors.Is(err, utils.ErrPaymentNotFound) {
			s.logger.Warn(ctx, "payment event for unknown payment reference", map[string]interface{}{
				"event_id":     event.ID,
				"event_type":   event.Type,
				"provider_ref": providerRef,
			})
			return nil
		}
		return err
	}

	switch event.Type {
	case "payment_intent.amount_capturable_updated":
		// The deposit hold is in place but not yet captured.
		return s.setDeposit(ctx, payment, models.DepositStatusNone, models.DepositStatusAuthorized)
	case "payment_intent.succeeded", "payment.succeeded":
		if err := s.payments.UpdateStatus(ctx, payment.ID, models.PaymentStatusCompleted); err != nil {
			return err
		}
		if err := s.setDeposit(ctx, payment, models.DepositStatusAuthorized, models.DepositStatusCaptured); err != nil {
			return err
		}
		return s.setDeposit(ctx, payment, models.DepositStatusNone, models.DepositStatusCaptured)
	case "payment_intent.payment_failed", "payment.failed":
		return s.payments.UpdateStatus(ctx, payment.ID, models.PaymentStatusFailed)
	default:
		s.logger.Debug(ctx, "ignoring unhandled payment event type", map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
		})
		return nil
	}
}

// setDeposit applies a gated deposit transition; a false claim just
// means the deposit was not in the expected prior state, which is
// normal when events arrive out of their usual order.
func (s *PaymentEventService) setDeposit(ctx context.Context, payment *models.Payment, from, to models.DepositStatus) error {
	if payment.AppointmentID == nil {
		return nil
	}
	_, err := s.appointments.SetDepositStatus(ctx, *payment.AppointmentID, from, to)
	return err
}

func extractProviderRef(raw []byte) (string, error) {
	var body struct {
		Data struct {
			ID     string `json:"id"`
			Object struct {
				ID string `json:"id"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", fmt.Errorf("invalid event payload: %w", err)
	}

	if body.Data.Object.ID != "" {
		return body.Data.Object.ID, nil
	}
	if body.Data.ID != "" {
		return body.Data.ID, nil
	}
	return "", errors.New("event payload has no payment reference")
}
