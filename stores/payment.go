package stores

import (
	"context"
	"errors"
	"time"

	"github.com/slotwise/slotwise/models"
	"github.com/slotwise/slotwise/utils"
	"gorm.io/gorm"
)

type PaymentStore struct {
	BaseStore
}

func CreatePaymentStore(db *gorm.DB) *PaymentStore {
	return &PaymentStore{BaseStore: BaseStore{db: db}}
}

func (s *PaymentStore) Create(ctx context.Context, payment *models.Payment) error {
	return s.GetDB(ctx).Create(payment).Error
}

func (s *PaymentStore) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.GetDB(ctx).First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (s *PaymentStore) GetByAppointmentID(ctx context.Context, appointmentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.GetDB(ctx).First(&payment, "appointment_id = ?", appointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (s *PaymentStore) GetByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.GetDB(ctx).First(&payment, "provider_ref = ?", providerRef).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (s *PaymentStore) UpdateStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	return s.GetDB(ctx).Model(&models.Payment{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// MarkRefunded records the processor's refund outcome on the payment.
func (s *PaymentStore) MarkRefunded(ctx context.Context, id string, amountCents int64, reason, providerRefundID string, refundedAt time.Time) error {
	return s.GetDB(ctx).Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":              models.PaymentStatusRefunded,
			"refund_amount_cents": amountCents,
			"refund_reason":       reason,
			"provider_refund_id":  providerRefundID,
			"refunded_at":         refundedAt,
		}).Error
}

// MarkCancelled records that the payment's authorization hold was
// released without any funds moving.
func (s *PaymentStore) MarkCancelled(ctx context.Context, id string, reason string) error {
	return s.GetDB(ctx).Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.PaymentStatusCancelled,
			"refund_reason": reason,
		}).Error
}
