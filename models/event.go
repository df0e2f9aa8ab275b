package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProcessedExternalEvent records that an externally delivered event id
// has been acted upon. Rows are inserted exactly once per distinct
// event id (unique index on event_id) and never updated or deleted;
// the table doubles as an audit trail of everything the webhook surface
// accepted.
type ProcessedExternalEvent struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	EventID     string    `json:"event_id" gorm:"not null;uniqueIndex"`
	EventType   string    `json:"event_type" gorm:"not null"`
	ProcessedAt time.Time `json:"processed_at" gorm:"autoCreateTime"`
}

func (e *ProcessedExternalEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
