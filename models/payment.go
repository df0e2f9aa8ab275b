package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Payment settles at most one appointment. ProviderRef is the payment
// processor's reference (a charge or payment-intent id) used for refunds
// and authorization releases.
type Payment struct {
	ID                string        `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID          string        `json:"tenant_id" gorm:"not null;index"`
	AppointmentID     *string       `json:"appointment_id,omitempty" gorm:"uniqueIndex"`
	AmountCents       int64         `json:"amount_cents" gorm:"not null"`
	Currency          string        `json:"currency" gorm:"not null;default:'usd'"`
	Status            PaymentStatus `json:"status" gorm:"not null;default:'pending'"`
	ProviderName      string        `json:"provider_name" gorm:"not null"`
	ProviderRef       string        `json:"provider_ref" gorm:"index"`
	RefundAmountCents int64         `json:"refund_amount_cents" gorm:"default:0"`
	RefundReason      string        `json:"refund_reason,omitempty"`
	ProviderRefundID  string        `json:"provider_refund_id,omitempty"`
	RefundedAt        *time.Time    `json:"refunded_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// RefundResult is the outcome of a cancellation refund decision.
type RefundResult struct {
	Refunded             bool   `json:"refunded"`
	RefundAmountCents    int64  `json:"refund_amount_cents"`
	Reason               string `json:"reason,omitempty"`
	RequiresManualReview bool   `json:"requires_manual_review,omitempty"`
}
