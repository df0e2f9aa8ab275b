package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationJobStatus string

const (
	NotificationJobStatusPending    NotificationJobStatus = "pending"
	NotificationJobStatusProcessing NotificationJobStatus = "processing"
	NotificationJobStatusCompleted  NotificationJobStatus = "completed"
	NotificationJobStatusFailed     NotificationJobStatus = "failed"
)

const (
	NotificationTypeBookingConfirmed = "booking_confirmed"
	NotificationTypeCancellation     = "appointment_cancelled"
	NotificationTypeRefundIssued     = "refund_issued"
)

// NotificationJob is one durable unit of outbound client notification
// work. AppointmentID is a lookup-only reference; the job outlives the
// appointment's state transitions. Only the dispatch worker mutates a
// job after creation.
type NotificationJob struct {
	ID            string                `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID      string                `json:"tenant_id" gorm:"not null;index"`
	ClientID      string                `json:"client_id" gorm:"not null"`
	AppointmentID *string               `json:"appointment_id,omitempty" gorm:"index"`
	Type          string                `json:"type" gorm:"not null"`
	Payload       JSON                  `json:"payload" gorm:"type:jsonb"`
	Status        NotificationJobStatus `json:"status" gorm:"not null;default:'pending';index"`
	Attempts      int                   `json:"attempts" gorm:"default:0"`
	MaxAttempts   int                   `json:"max_attempts" gorm:"default:3"`
	LastError     string                `json:"last_error,omitempty"`
	CreatedAt     time.Time             `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt     time.Time             `json:"updated_at" gorm:"autoUpdateTime"`
}

func (j *NotificationJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	return nil
}
