package database

import (
	"context"
	"time"

	"bugalou/internal/models"
)

func (s *Store) CreateEvent(ctx context.Context, event *models.Event) error {
	return s.db(ctx).Create(event).Error
}

// CompleteEvent stores the engine counters and marks the event processed.
func (s *Store) CompleteEvent(ctx context.Context, eventID string, triggeredFlows, messagesSent int) error {
	return s.db(ctx).Model(&models.Event{}).Where("id = ?", eventID).Updates(map[string]interface{}{
		"triggered_flows": triggeredFlows,
		"messages_sent":   messagesSent,
		"processed_at":    time.Now(),
	}).Error
}

func (s *Store) ListEvents(ctx context.Context, companyID string, limit int) ([]models.Event, error) {
	var events []models.Event
	err := s.db(ctx).Where("company_id = ?", companyID).
		Order("created_at DESC").
		Limit(clampLimit(limit, 50, 500)).
		Find(&events).Error
	return events, err
}
