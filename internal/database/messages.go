package database

import (
	"context"

	"bugalou/internal/models"
)

func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	return s.db(ctx).Create(msg).Error
}

// ListMessages returns the newest messages of a company, optionally for one
// contact only.
func (s *Store) ListMessages(ctx context.Context, companyID, contactID string, limit int) ([]models.Message, error) {
	q := s.db(ctx).Where("company_id = ?", companyID)
	if contactID != "" {
		q = q.Where("contact_id = ?", contactID)
	}
	var messages []models.Message
	err := q.Order("created_at DESC").Limit(clampLimit(limit, 50, 500)).Find(&messages).Error
	return messages, err
}

// UpdateMessageStatus sets the status of every message of the company with
// the given provider id and returns the updated rows.
func (s *Store) UpdateMessageStatus(ctx context.Context, companyID, wamid, status string) ([]models.Message, error) {
	q := s.db(ctx).Model(&models.Message{}).Where("company_id = ? AND whatsapp_message_id = ?", companyID, wamid)
	if err := q.Update("status", status).Error; err != nil {
		return nil, err
	}

	var messages []models.Message
	err := s.db(ctx).Where("company_id = ? AND whatsapp_message_id = ?", companyID, wamid).Find(&messages).Error
	return messages, err
}
