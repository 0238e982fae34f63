package database

import (
	"context"

	"bugalou/internal/models"

	"gorm.io/datatypes"
)

// FindActiveFlows returns the active flows for one trigger, newest first.
func (s *Store) FindActiveFlows(ctx context.Context, companyID, eventType string) ([]models.Flow, error) {
	var flows []models.Flow
	err := s.db(ctx).
		Where("company_id = ? AND trigger_event_type = ? AND is_active = ?", companyID, eventType, true).
		Order("created_at DESC").
		Find(&flows).Error
	return flows, err
}

// GetFlow returns nil, nil when the company owns no such flow.
func (s *Store) GetFlow(ctx context.Context, companyID, flowID string) (*models.Flow, error) {
	var flow models.Flow
	found, err := first(s.db(ctx).Where("id = ? AND company_id = ?", flowID, companyID), &flow)
	if err != nil || !found {
		return nil, err
	}
	return &flow, nil
}

func (s *Store) ListFlows(ctx context.Context, companyID string) ([]models.Flow, error) {
	var flows []models.Flow
	err := s.db(ctx).Where("company_id = ?", companyID).Order("created_at DESC").Find(&flows).Error
	return flows, err
}

func (s *Store) CreateFlow(ctx context.Context, flow *models.Flow) error {
	// gorm skips zero values that have a default, so an inactive flow needs
	// an explicit update after the insert.
	active := flow.IsActive
	if err := s.db(ctx).Create(flow).Error; err != nil {
		return err
	}
	if !active {
		flow.IsActive = false
		return s.db(ctx).Model(flow).Update("is_active", false).Error
	}
	return nil
}

// FlowUpdate lists the fields to change; nil means unchanged.
type FlowUpdate struct {
	Name             *string
	Description      *string
	TriggerEventType *string
	MessageTemplate  *string
	IsActive         *bool
	Definition       datatypes.JSON
	ClearDefinition  bool
}

func (u FlowUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.TriggerEventType == nil &&
		u.MessageTemplate == nil && u.IsActive == nil && u.Definition == nil && !u.ClearDefinition
}

func (s *Store) UpdateFlow(ctx context.Context, companyID, flowID string, u FlowUpdate) (*models.Flow, error) {
	flow, err := s.GetFlow(ctx, companyID, flowID)
	if err != nil {
		return nil, err
	}
	if flow == nil {
		return nil, ErrNotFound
	}

	updates := map[string]interface{}{}
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	if u.TriggerEventType != nil {
		updates["trigger_event_type"] = *u.TriggerEventType
	}
	if u.MessageTemplate != nil {
		updates["message_template"] = *u.MessageTemplate
	}
	if u.IsActive != nil {
		updates["is_active"] = *u.IsActive
	}
	if u.Definition != nil {
		updates["definition"] = u.Definition
	}
	if u.ClearDefinition {
		updates["definition"] = nil
	}
	if len(updates) == 0 {
		return flow, nil
	}

	if err := s.db(ctx).Model(flow).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetFlow(ctx, companyID, flowID)
}

func (s *Store) SetFlowActive(ctx context.Context, companyID, flowID string, active bool) (*models.Flow, error) {
	return s.UpdateFlow(ctx, companyID, flowID, FlowUpdate{IsActive: &active})
}

func (s *Store) DeleteFlow(ctx context.Context, companyID, flowID string) error {
	res := s.db(ctx).Where("id = ? AND company_id = ?", flowID, companyID).Delete(&models.Flow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FlowsWithoutDefinition returns template-only flows of all companies.
func (s *Store) FlowsWithoutDefinition(ctx context.Context) ([]models.Flow, error) {
	var flows []models.Flow
	err := s.db(ctx).Where("definition IS NULL").Order("created_at ASC").Find(&flows).Error
	return flows, err
}

func (s *Store) SetFlowDefinition(ctx context.Context, flowID string, definition datatypes.JSON) error {
	return s.db(ctx).Model(&models.Flow{}).Where("id = ?", flowID).Update("definition", definition).Error
}
