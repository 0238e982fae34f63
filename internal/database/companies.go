package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"bugalou/internal/models"

	"gorm.io/gorm"
)

var ErrSlugTaken = errors.New("slug already in use by another company")

// NewAPIKey returns "bug_" followed by 48 random hex characters.
func NewAPIKey() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return "bug_" + hex.EncodeToString(raw), nil
}

func (s *Store) CreateCompany(ctx context.Context, company *models.Company) error {
	if company.APIKey == "" {
		key, err := NewAPIKey()
		if err != nil {
			return fmt.Errorf("generate api key: %w", err)
		}
		company.APIKey = key
	}
	return s.db(ctx).Create(company).Error
}

// GetCompany returns nil, nil when the company does not exist.
func (s *Store) GetCompany(ctx context.Context, companyID string) (*models.Company, error) {
	var company models.Company
	found, err := first(s.db(ctx).Where("id = ?", companyID), &company)
	if err != nil || !found {
		return nil, err
	}
	return &company, nil
}

func (s *Store) CompanyByAPIKey(ctx context.Context, apiKey string) (*models.Company, error) {
	if apiKey == "" {
		return nil, nil
	}
	var company models.Company
	found, err := first(s.db(ctx).Where("api_key = ?", apiKey), &company)
	if err != nil || !found {
		return nil, err
	}
	return &company, nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	err := s.db(ctx).Order("created_at ASC").Find(&companies).Error
	return companies, err
}

func (s *Store) RotateAPIKey(ctx context.Context, companyID string) (string, error) {
	key, err := NewAPIKey()
	if err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	res := s.db(ctx).Model(&models.Company{}).Where("id = ?", companyID).Update("api_key", key)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", ErrNotFound
	}
	return key, nil
}

// SetSlug stores an already normalized slug, refusing one that another
// company uses.
func (s *Store) SetSlug(ctx context.Context, companyID, slug string) error {
	var count int64
	if err := s.db(ctx).Model(&models.Company{}).
		Where("slug = ? AND id <> ?", slug, companyID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrSlugTaken
	}

	res := s.db(ctx).Model(&models.Company{}).Where("id = ?", companyID).Update("slug", slug)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type Branding struct {
	PrimaryColor *string
	AccentColor  *string
	IntroText    *string
}

// UpdateBranding changes only the fields that are set.
func (s *Store) UpdateBranding(ctx context.Context, companyID string, b Branding) (*models.Company, error) {
	updates := map[string]interface{}{}
	if b.PrimaryColor != nil {
		updates["primary_color"] = *b.PrimaryColor
	}
	if b.AccentColor != nil {
		updates["accent_color"] = *b.AccentColor
	}
	if b.IntroText != nil {
		updates["intro_text"] = *b.IntroText
	}

	if len(updates) > 0 {
		if err := s.db(ctx).Model(&models.Company{}).Where("id = ?", companyID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	company, err := s.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, ErrNotFound
	}
	return company, nil
}

// FindWhatsAppSettings returns nil, nil when the company has no settings.
func (s *Store) FindWhatsAppSettings(ctx context.Context, companyID string) (*models.CompanyWhatsAppSettings, error) {
	var settings models.CompanyWhatsAppSettings
	found, err := first(s.db(ctx).Where("company_id = ?", companyID), &settings)
	if err != nil || !found {
		return nil, err
	}
	return &settings, nil
}

// CompanyIDByPhoneNumberID maps a WhatsApp phone number id back to its
// company. It returns "" when no company owns the number.
func (s *Store) CompanyIDByPhoneNumberID(ctx context.Context, phoneNumberID string) (string, error) {
	if phoneNumberID == "" {
		return "", nil
	}
	var settings models.CompanyWhatsAppSettings
	found, err := first(s.db(ctx).Where("phone_number_id = ?", phoneNumberID), &settings)
	if err != nil || !found {
		return "", err
	}
	return settings.CompanyID, nil
}

// UpsertWhatsAppSettings creates or replaces the settings of settings.CompanyID.
func (s *Store) UpsertWhatsAppSettings(ctx context.Context, settings *models.CompanyWhatsAppSettings) error {
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CompanyWhatsAppSettings
		found, err := first(tx.Where("company_id = ?", settings.CompanyID), &existing)
		if err != nil {
			return err
		}
		if !found {
			return tx.Create(settings).Error
		}

		settings.ID = existing.ID
		settings.CreatedAt = existing.CreatedAt
		return tx.Model(&existing).Updates(map[string]interface{}{
			"phone_number_id": settings.PhoneNumberID,
			"access_token":    settings.AccessToken,
			"waba_id":         settings.WabaID,
		}).Error
	})
}
