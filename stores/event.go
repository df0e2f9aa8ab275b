package stores

import (
	"context"
	"errors"

	"github.com/slotwise/slotwise/models"
	"gorm.io/gorm"
)

type ProcessedEventStore struct {
	BaseStore
}

func CreateProcessedEventStore(db *gorm.DB) *ProcessedEventStore {
	return &ProcessedEventStore{BaseStore: BaseStore{db: db}}
}

// CheckAndMarkProcessed attempts to record externalID and reports
// whether some caller already had. The unique index on event_id is the
// only synchronization primitive: two racing deliveries of the same
// event both insert, the store rejects exactly one with a uniqueness
// violation, and that loser gets alreadyProcessed=true instead of an
// error. Never replace this with a read-then-insert.
func (s *ProcessedEventStore) CheckAndMarkProcessed(ctx context.Context, externalID, eventType string) (bool, error) {
	event := &models.ProcessedExternalEvent{
		EventID:   externalID,
		EventType: eventType,
	}

	err := s.GetDB(ctx).Create(event).Error
	if err == nil {
		return false, nil
	}
	if IsUniqueViolation(err) {
		return true, nil
	}
	return false, err
}

// WasProcessed is for inspection and debugging only. Basing a
// skip/process decision on it would reintroduce the check-then-act race
// CheckAndMarkProcessed exists to close.
func (s *ProcessedEventStore) WasProcessed(ctx context.Context, externalID string) (bool, error) {
	var count int64
	err := s.GetDB(ctx).Model(&models.ProcessedExternalEvent{}).
		Where("event_id = ?", externalID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetProcessedEvent is for inspection and debugging only.
func (s *ProcessedEventStore) GetProcessedEvent(ctx context.Context, externalID string) (*models.ProcessedExternalEvent, error) {
	var event models.ProcessedExternalEvent
	if err := s.GetDB(ctx).First(&event, "event_id = ?", externalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}
