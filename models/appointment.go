package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentStatus string
type DepositStatus string
type CancelActor string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"

	DepositStatusNone       DepositStatus = "none"
	DepositStatusAuthorized DepositStatus = "authorized"
	DepositStatusCaptured   DepositStatus = "captured"
	DepositStatusRefunded   DepositStatus = "refunded"
	DepositStatusCancelled  DepositStatus = "cancelled"
	DepositStatusNoRefund   DepositStatus = "no_refund"

	CancelledByClient CancelActor = "client"
	CancelledBySalon  CancelActor = "salon"
)

// Appointment is a staff member's reserved time range for one client.
// For a given staff id, no two non-cancelled appointments may have
// overlapping [starts_at, ends_at) ranges; the database enforces this
// with an exclusion constraint and the booking service enforces it with
// a locking read before insert.
type Appointment struct {
	ID                 string            `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID           string            `json:"tenant_id" gorm:"not null;index"`
	StaffID            string            `json:"staff_id" gorm:"not null;index:idx_appointments_staff_window"`
	ClientID           string            `json:"client_id" gorm:"not null;index"`
	ServiceID          string            `json:"service_id" gorm:"not null"`
	LocationID         *string           `json:"location_id,omitempty"`
	StartsAt           time.Time         `json:"starts_at" gorm:"not null;index:idx_appointments_staff_window"`
	EndsAt             time.Time         `json:"ends_at" gorm:"not null"`
	PriceCents         int64             `json:"price_cents" gorm:"not null"`
	DepositCents       int64             `json:"deposit_cents" gorm:"default:0"`
	Status             AppointmentStatus `json:"status" gorm:"not null;default:'pending'"`
	DepositStatus      DepositStatus     `json:"deposit_status" gorm:"not null;default:'none'"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`
	CancelledBy        CancelActor       `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Overlaps reports whether the appointment's [starts_at, ends_at) range
// intersects [start, end). Ranges that only touch at a boundary do not
// overlap.
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.StartsAt.Before(end) && start.Before(a.EndsAt)
}

// BookingRequest carries the appointment fields supplied by the caller
// of BookingService.BookSlot.
type BookingRequest struct {
	TenantID     string    `json:"tenant_id"`
	StaffID      string    `json:"staff_id"`
	ClientID     string    `json:"client_id"`
	ServiceID    string    `json:"service_id"`
	LocationID   *string   `json:"location_id,omitempty"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	PriceCents   int64     `json:"price_cents"`
	DepositCents int64     `json:"deposit_cents"`
	ClientEmail  string    `json:"client_email,omitempty"`
	ClientPhone  string    `json:"client_phone,omitempty"`
}
